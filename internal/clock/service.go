package clock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"workclock/internal/geofence"
	"workclock/internal/location"
	"workclock/internal/platform/metrics"
	"workclock/internal/ratelimit"
	"workclock/internal/token"
	dErrors "workclock/pkg/domain-errors"
	"workclock/pkg/platform/sentinel"
)

// EventPublisher forwards committed events to downstream reporting.
// Best-effort: publish failures never fail the submission.
type EventPublisher interface {
	Publish(ctx context.Context, event ClockEvent)
}

// Limits configures the per-employee submission throttle.
type Limits struct {
	Attempts int
	Window   time.Duration
}

// SubmitRequest carries one clock attempt through the service.
type SubmitRequest struct {
	EmployeeID     string
	OrganisationID string
	Token          string
	Type           EventType
	ClientLat      float64
	ClientLng      float64
	AccuracyMeters *float64
	ClientTime     *time.Time
}

// GenerateTokenResult is the shareable output of token generation.
type GenerateTokenResult struct {
	QRURL     string
	ExpiresAt time.Time
}

// Service orchestrates token issuance and the clock-in/out state machine. It
// is the only component exposed to the transport layer.
type Service struct {
	tokens    *token.Service
	directory location.Directory
	geofence  *geofence.Evaluator
	limiter   ratelimit.Limiter
	store     Store
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	limits    Limits
	tracer    trace.Tracer

	// employeeLocks serializes the read-check-commit sequence per employee.
	// The store's Commit guard is the backstop for multi-instance races.
	employeeLocks *keyedMutex

	now func() time.Time
}

func NewService(
	tokens *token.Service,
	directory location.Directory,
	evaluator *geofence.Evaluator,
	limiter ratelimit.Limiter,
	store Store,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	limits Limits,
) *Service {
	return &Service{
		tokens:        tokens,
		directory:     directory,
		geofence:      evaluator,
		limiter:       limiter,
		store:         store,
		publisher:     publisher,
		metrics:       m,
		logger:        logger,
		limits:        limits,
		tracer:        otel.Tracer("workclock/clock"),
		employeeLocks: newKeyedMutex(),
		now:           time.Now,
	}
}

// GenerateToken mints a location-bound token and returns its QR payload.
func (s *Service) GenerateToken(ctx context.Context, locationID string) (GenerateTokenResult, error) {
	ctx, span := s.tracer.Start(ctx, "clock.GenerateToken")
	defer span.End()

	t, err := s.tokens.Issue(ctx, locationID)
	if err != nil {
		return GenerateTokenResult{}, err
	}
	s.metrics.IncTokensIssued()
	s.logger.InfoContext(ctx, "clock token issued",
		"location_id", locationID,
		"expires_at", t.ExpiresAt,
	)
	return GenerateTokenResult{QRURL: s.tokens.QRURL(t), ExpiresAt: t.ExpiresAt}, nil
}

// SubmitClockEvent runs the full submission pipeline in fixed order: rate
// limit, token, location enabled, geofence, state legality, atomic commit.
// The first violated check wins and nothing is written on failure; only the
// rate-limit counter consumes failed attempts.
func (s *Service) SubmitClockEvent(ctx context.Context, req SubmitRequest) (ClockEvent, error) {
	ctx, span := s.tracer.Start(ctx, "clock.SubmitClockEvent",
		trace.WithAttributes(attribute.String("clock.type", string(req.Type))))
	defer span.End()

	start := s.now()
	event, err := s.submit(ctx, req)
	s.metrics.ObserveSubmit(string(req.Type), resultLabel(err), s.now().Sub(start).Seconds())
	if err != nil {
		return ClockEvent{}, err
	}
	return event, nil
}

func (s *Service) submit(ctx context.Context, req SubmitRequest) (ClockEvent, error) {
	if !req.Type.Valid() {
		return ClockEvent{}, dErrors.New(dErrors.CodeBadRequest, "type must be CLOCK_IN or CLOCK_OUT")
	}
	if req.EmployeeID == "" {
		return ClockEvent{}, dErrors.New(dErrors.CodeBadRequest, "employee is required")
	}

	limited, err := s.limiter.Allow(ctx, ratelimit.Key(req.EmployeeID, ""), s.limits.Attempts, s.limits.Window)
	if err != nil {
		return ClockEvent{}, dErrors.Wrap(dErrors.CodeUnavailable, "rate limiter unavailable", err)
	}
	if !limited.Allowed {
		s.metrics.IncRateLimited()
		return ClockEvent{}, dErrors.New(dErrors.CodeRateLimit, "too many attempts, retry later")
	}

	clockToken, err := s.tokens.Validate(ctx, req.Token)
	if err != nil {
		return ClockEvent{}, err
	}

	loc, err := s.directory.FindByID(ctx, clockToken.LocationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The token outlived its location record.
			return ClockEvent{}, dErrors.New(dErrors.CodeTokenInvalid, "token references unknown location")
		}
		return ClockEvent{}, dErrors.Wrap(dErrors.CodeUnavailable, "location lookup failed", err)
	}
	if !loc.RCPEnabled {
		return ClockEvent{}, dErrors.New(dErrors.CodeLocationDisabled, "time clock is not enabled for this location")
	}

	fence := s.geofence.Evaluate(loc, req.ClientLat, req.ClientLng, req.AccuracyMeters)
	if !fence.Accepted {
		switch fence.Reason {
		case geofence.ReasonLowAccuracy:
			return ClockEvent{}, dErrors.New(dErrors.CodeLowAccuracy, "location accuracy is too low")
		default:
			return ClockEvent{}, dErrors.New(dErrors.CodeOutsideGeofence,
				fmt.Sprintf("you are %.0f m from the location, allowed radius is %.0f m", fence.DistanceMeters, loc.GeoRadiusMeters))
		}
	}

	s.employeeLocks.Lock(req.EmployeeID)
	defer s.employeeLocks.Unlock(req.EmployeeID)

	state, err := s.store.State(ctx, req.EmployeeID)
	if err != nil {
		return ClockEvent{}, dErrors.Wrap(dErrors.CodeUnavailable, "clock store unavailable", err)
	}
	if err := checkTransition(state.IsClockedIn, req.Type); err != nil {
		return ClockEvent{}, err
	}

	event := ClockEvent{
		ID:             uuid.NewString(),
		EmployeeID:     req.EmployeeID,
		OrganisationID: req.OrganisationID,
		LocationID:     loc.ID,
		LocationName:   loc.Name,
		Type:           req.Type,
		HappenedAt:     s.now(),
		DistanceMeters: fence.DistanceMeters,
		AccuracyMeters: req.AccuracyMeters,
		ClientLat:      req.ClientLat,
		ClientLng:      req.ClientLng,
		ClientTime:     req.ClientTime,
	}
	if err := s.store.Commit(ctx, event); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Another instance committed first; report the transition the
			// winner made illegal.
			return ClockEvent{}, checkTransition(req.Type == ClockIn, req.Type)
		}
		return ClockEvent{}, dErrors.Wrap(dErrors.CodeUnavailable, "clock store unavailable", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, event)
	}
	s.logger.InfoContext(ctx, "clock event committed",
		"employee_id", event.EmployeeID,
		"location_id", event.LocationID,
		"type", event.Type,
		"distance_meters", event.DistanceMeters,
	)
	return event, nil
}

// Status returns the employee's current snapshot.
func (s *Service) Status(ctx context.Context, employeeID string) (EmployeeClockState, error) {
	state, err := s.store.State(ctx, employeeID)
	if err != nil {
		return EmployeeClockState{}, dErrors.Wrap(dErrors.CodeUnavailable, "clock store unavailable", err)
	}
	return state, nil
}

// RecentEvents returns the employee's history, most recent first. take is
// clamped to [1, 100] with a default of 20.
func (s *Service) RecentEvents(ctx context.Context, employeeID string, take int) ([]ClockEvent, error) {
	events, err := s.store.RecentEvents(ctx, employeeID, clampTake(take))
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "clock store unavailable", err)
	}
	return events, nil
}

// OrganisationEvents returns the organisation-wide history for reporting.
func (s *Service) OrganisationEvents(ctx context.Context, organisationID string, take int) ([]ClockEvent, error) {
	events, err := s.store.EventsByOrganisation(ctx, organisationID, clampTake(take))
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable, "clock store unavailable", err)
	}
	return events, nil
}

// checkTransition enforces the two-state machine: only CLOCKED_OUT→CLOCK_IN
// and CLOCKED_IN→CLOCK_OUT are legal.
func checkTransition(isClockedIn bool, eventType EventType) error {
	if eventType == ClockIn && isClockedIn {
		return dErrors.New(dErrors.CodeAlreadyClockedIn, "already clocked in")
	}
	if eventType == ClockOut && !isClockedIn {
		return dErrors.New(dErrors.CodeAlreadyClockedOut, "already clocked out")
	}
	return nil
}

func clampTake(take int) int {
	switch {
	case take <= 0:
		return 20
	case take > 100:
		return 100
	default:
		return take
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}
