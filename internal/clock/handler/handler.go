package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"workclock/internal/clock"
	"workclock/internal/platform/middleware"
	dErrors "workclock/pkg/domain-errors"
	"workclock/pkg/platform/httputil"
)

// Service defines the clock operations the transport layer needs.
type Service interface {
	GenerateToken(ctx context.Context, locationID string) (clock.GenerateTokenResult, error)
	SubmitClockEvent(ctx context.Context, req clock.SubmitRequest) (clock.ClockEvent, error)
	Status(ctx context.Context, employeeID string) (clock.EmployeeClockState, error)
	RecentEvents(ctx context.Context, employeeID string, take int) ([]clock.ClockEvent, error)
	OrganisationEvents(ctx context.Context, organisationID string, take int) ([]clock.ClockEvent, error)
}

// Handler exposes the RCP endpoints.
type Handler struct {
	logger       *slog.Logger
	clock        Service
	jwtValidator middleware.JWTValidator
}

func New(clockService Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		clock:        clockService,
		jwtValidator: jwtValidator,
	}
}

// Register mounts the RCP routes with the shared middleware chain.
func (h *Handler) Register(r chi.Router) {
	rcp := chi.NewRouter()
	rcp.Use(middleware.Recovery(h.logger))
	rcp.Use(middleware.RequestID)
	rcp.Use(middleware.Logger(h.logger))
	rcp.Use(middleware.Timeout(30 * time.Second))
	rcp.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	rcp.Post("/clock", h.handleClock)
	rcp.Get("/status", h.handleStatus)
	rcp.Get("/events/me", h.handleMyEvents)

	rcp.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin)
		admin.Post("/qr/generate", h.handleGenerateQR)
		admin.Get("/events", h.handleOrganisationEvents)
	})

	r.Mount("/rcp", rcp)
}

type generateQRRequest struct {
	LocationID string `json:"locationId"`
}

type generateQRResponse struct {
	QRURL          string    `json:"qrUrl"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt"`
}

func (h *Handler) handleGenerateQR(w http.ResponseWriter, r *http.Request) {
	var req generateQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.LocationID, "1", "100") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "locationId is required"))
		return
	}

	res, err := h.clock.GenerateToken(r.Context(), req.LocationID)
	if err != nil {
		h.logError(r, "generate token failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, generateQRResponse{
		QRURL:          res.QRURL,
		TokenExpiresAt: res.ExpiresAt,
	})
}

type clockRequest struct {
	Token          string     `json:"token"`
	Type           string     `json:"type"`
	ClientLat      float64    `json:"clientLat"`
	ClientLng      float64    `json:"clientLng"`
	AccuracyMeters *float64   `json:"accuracyMeters"`
	ClientTime     *time.Time `json:"clientTime"`
}

type clockResponse struct {
	OK             bool      `json:"ok"`
	DistanceMeters float64   `json:"distanceMeters"`
	HappenedAt     time.Time `json:"happenedAt"`
	LocationName   string    `json:"locationName"`
	Type           string    `json:"type"`
}

func (h *Handler) handleClock(w http.ResponseWriter, r *http.Request) {
	var req clockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validateClockRequest(req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.clock.SubmitClockEvent(r.Context(), clock.SubmitRequest{
		EmployeeID:     middleware.GetEmployeeID(r.Context()),
		OrganisationID: middleware.GetOrganisationID(r.Context()),
		Token:          req.Token,
		Type:           clock.EventType(req.Type),
		ClientLat:      req.ClientLat,
		ClientLng:      req.ClientLng,
		AccuracyMeters: req.AccuracyMeters,
		ClientTime:     req.ClientTime,
	})
	if err != nil {
		h.logError(r, "clock submission rejected", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, clockResponse{
		OK:             true,
		DistanceMeters: event.DistanceMeters,
		HappenedAt:     event.HappenedAt,
		LocationName:   event.LocationName,
		Type:           string(event.Type),
	})
}

type lastEventResponse struct {
	Type         string    `json:"type"`
	HappenedAt   time.Time `json:"happenedAt"`
	LocationName string    `json:"locationName"`
}

type statusResponse struct {
	IsClockedIn bool               `json:"isClockedIn"`
	LastEvent   *lastEventResponse `json:"lastEvent"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.clock.Status(r.Context(), middleware.GetEmployeeID(r.Context()))
	if err != nil {
		h.logError(r, "status lookup failed", err)
		httputil.WriteError(w, err)
		return
	}

	res := statusResponse{IsClockedIn: state.IsClockedIn}
	if state.LastEvent != nil {
		res.LastEvent = &lastEventResponse{
			Type:         string(state.LastEvent.Type),
			HappenedAt:   state.LastEvent.HappenedAt,
			LocationName: state.LastEvent.LocationName,
		}
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

type eventsResponse struct {
	Items []clock.ClockEvent `json:"items"`
}

func (h *Handler) handleMyEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.clock.RecentEvents(r.Context(), middleware.GetEmployeeID(r.Context()), takeParam(r))
	if err != nil {
		h.logError(r, "events lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []clock.ClockEvent{}
	}
	httputil.WriteJSON(w, http.StatusOK, eventsResponse{Items: events})
}

func (h *Handler) handleOrganisationEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.clock.OrganisationEvents(r.Context(), middleware.GetOrganisationID(r.Context()), takeParam(r))
	if err != nil {
		h.logError(r, "organisation events lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []clock.ClockEvent{}
	}
	httputil.WriteJSON(w, http.StatusOK, eventsResponse{Items: events})
}

func validateClockRequest(req clockRequest) error {
	if !govalidator.StringLength(req.Token, "1", "512") {
		return dErrors.New(dErrors.CodeBadRequest, "token is required")
	}
	if req.Type != string(clock.ClockIn) && req.Type != string(clock.ClockOut) {
		return dErrors.New(dErrors.CodeBadRequest, "type must be CLOCK_IN or CLOCK_OUT")
	}
	if !govalidator.InRangeFloat64(req.ClientLat, -90, 90) {
		return dErrors.New(dErrors.CodeBadRequest, "clientLat out of range")
	}
	if !govalidator.InRangeFloat64(req.ClientLng, -180, 180) {
		return dErrors.New(dErrors.CodeBadRequest, "clientLng out of range")
	}
	if req.AccuracyMeters != nil && *req.AccuracyMeters < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "accuracyMeters must be non-negative")
	}
	return nil
}

func takeParam(r *http.Request) int {
	raw := r.URL.Query().Get("take")
	if raw == "" {
		return 0
	}
	take, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return take
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	logFn := h.logger.WarnContext
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeUnavailable {
		logFn = h.logger.ErrorContext
	}
	logFn(r.Context(), msg,
		"error", err.Error(),
		"request_id", middleware.GetRequestID(r.Context()),
	)
}
