package clock

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"workclock/internal/geofence"
	"workclock/internal/location"
	"workclock/internal/ratelimit"
	"workclock/internal/token"
	dErrors "workclock/pkg/domain-errors"
)

const (
	officeLat = 52.2297
	officeLng = 21.0122
)

type capturePublisher struct {
	mu     sync.Mutex
	events []ClockEvent
}

func (p *capturePublisher) Publish(_ context.Context, event ClockEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	directory *location.InMemoryDirectory
	tokens    *token.Service
	limiter   *ratelimit.InMemoryLimiter
	store     *InMemoryStore
	publisher *capturePublisher
	service   *Service
	now       time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	s.directory = location.NewInMemoryDirectory()
	s.directory.Put(location.Location{
		ID:                   "loc-1",
		OrganisationID:       "org-1",
		Name:                 "Warsaw Office",
		GeoLat:               officeLat,
		GeoLng:               officeLng,
		GeoRadiusMeters:      100,
		RCPEnabled:           true,
		RCPAccuracyMaxMeters: 100,
	})
	s.directory.Put(location.Location{
		ID:             "loc-disabled",
		OrganisationID: "org-1",
		RCPEnabled:     false,
	})

	s.tokens = token.NewService(token.NewInMemoryStore(), s.directory, 10*time.Minute, "https://clock.example.com/rcp/clock")
	s.limiter = ratelimit.NewInMemoryLimiter()
	s.store = NewInMemoryStore()
	s.publisher = &capturePublisher{}

	s.service = NewService(
		s.tokens,
		s.directory,
		geofence.NewEvaluator(geofence.Policy{DefaultAccuracyMaxMeters: 100}),
		s.limiter,
		s.store,
		s.publisher,
		nil,
		slog.New(slog.DiscardHandler),
		Limits{Attempts: 5, Window: time.Minute},
	)
	s.service.now = func() time.Time { return s.now }
}

func (s *ServiceSuite) issueToken(locationID string) string {
	t, err := s.tokens.Issue(s.ctx, locationID)
	s.Require().NoError(err)
	return t.Token
}

func (s *ServiceSuite) request(employeeID string, eventType EventType, tokenValue string) SubmitRequest {
	accuracy := 30.0
	return SubmitRequest{
		EmployeeID:     employeeID,
		OrganisationID: "org-1",
		Token:          tokenValue,
		Type:           eventType,
		ClientLat:      officeLat,
		ClientLng:      officeLng,
		AccuracyMeters: &accuracy,
	}
}

func (s *ServiceSuite) TestGenerateToken() {
	res, err := s.service.GenerateToken(s.ctx, "loc-1")
	s.Require().NoError(err)
	s.Contains(res.QRURL, "https://clock.example.com/rcp/clock?token=")
	s.Equal(s.now.Add(10*time.Minute), res.ExpiresAt)

	_, err = s.service.GenerateToken(s.ctx, "loc-disabled")
	s.True(dErrors.Is(err, dErrors.CodeLocationDisabled))

	_, err = s.service.GenerateToken(s.ctx, "loc-missing")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestSubmitHappyPath() {
	tokenValue := s.issueToken("loc-1")

	event, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-1", ClockIn, tokenValue))
	s.Require().NoError(err)
	s.Equal(ClockIn, event.Type)
	s.Equal("loc-1", event.LocationID)
	s.Equal(s.now, event.HappenedAt)
	s.InDelta(0, event.DistanceMeters, 0.001)

	state, err := s.service.Status(s.ctx, "emp-1")
	s.Require().NoError(err)
	s.True(state.IsClockedIn)
	s.Require().NotNil(state.LastEvent)
	s.Equal(event.ID, state.LastEvent.ID)

	s.Len(s.publisher.events, 1)
}

func (s *ServiceSuite) TestStateMachine() {
	tokenValue := s.issueToken("loc-1")

	s.Run("clock in twice", func() {
		_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-a", ClockIn, tokenValue))
		s.Require().NoError(err)
		_, err = s.service.SubmitClockEvent(s.ctx, s.request("emp-a", ClockIn, tokenValue))
		s.True(dErrors.Is(err, dErrors.CodeAlreadyClockedIn))
	})

	s.Run("clock out twice", func() {
		_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-b", ClockIn, tokenValue))
		s.Require().NoError(err)
		_, err = s.service.SubmitClockEvent(s.ctx, s.request("emp-b", ClockOut, tokenValue))
		s.Require().NoError(err)
		_, err = s.service.SubmitClockEvent(s.ctx, s.request("emp-b", ClockOut, tokenValue))
		s.True(dErrors.Is(err, dErrors.CodeAlreadyClockedOut))
	})

	s.Run("fresh employee cannot clock out", func() {
		_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-c", ClockOut, tokenValue))
		s.True(dErrors.Is(err, dErrors.CodeAlreadyClockedOut))
	})

	s.Run("failed attempt leaves no events behind", func() {
		_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-d", ClockOut, tokenValue))
		s.Require().Error(err)
		events, err := s.service.RecentEvents(s.ctx, "emp-d", 10)
		s.Require().NoError(err)
		s.Empty(events)
	})
}

func (s *ServiceSuite) TestCheckOrdering() {
	s.Run("invalid type fails before consuming the rate limit", func() {
		req := s.request("emp-shape", EventType("BREAK"), "whatever")
		_, err := s.service.SubmitClockEvent(s.ctx, req)
		s.True(dErrors.Is(err, dErrors.CodeBadRequest))

		res, err := s.limiter.Allow(s.ctx, ratelimit.Key("emp-shape", ""), 5, time.Minute)
		s.Require().NoError(err)
		s.Equal(4, res.Remaining) // the probe above is the first counted attempt
	})

	s.Run("rate limit precedes token validation", func() {
		for range 5 {
			_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-order", ClockIn, "bad-token"))
			s.True(dErrors.Is(err, dErrors.CodeTokenInvalid))
		}
		_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-order", ClockIn, "bad-token"))
		s.True(dErrors.Is(err, dErrors.CodeRateLimit))
	})

	s.Run("geofence checked before state", func() {
		tokenValue := s.issueToken("loc-1")
		req := s.request("emp-far", ClockOut, tokenValue)
		req.ClientLat = 52.2400 // over a kilometer north
		_, err := s.service.SubmitClockEvent(s.ctx, req)
		// Outside the fence wins over the illegal CLOCK_OUT transition.
		s.True(dErrors.Is(err, dErrors.CodeOutsideGeofence))
	})
}

func (s *ServiceSuite) TestGeofenceRejections() {
	tokenValue := s.issueToken("loc-1")

	s.Run("outside geofence", func() {
		req := s.request("emp-geo", ClockIn, tokenValue)
		req.ClientLat = 52.2400
		_, err := s.service.SubmitClockEvent(s.ctx, req)
		s.True(dErrors.Is(err, dErrors.CodeOutsideGeofence))
	})

	s.Run("low accuracy", func() {
		req := s.request("emp-geo", ClockIn, tokenValue)
		accuracy := 500.0
		req.AccuracyMeters = &accuracy
		_, err := s.service.SubmitClockEvent(s.ctx, req)
		s.True(dErrors.Is(err, dErrors.CodeLowAccuracy))
	})

	s.Run("missing accuracy rejected by default policy", func() {
		req := s.request("emp-geo", ClockIn, tokenValue)
		req.AccuracyMeters = nil
		_, err := s.service.SubmitClockEvent(s.ctx, req)
		s.True(dErrors.Is(err, dErrors.CodeLowAccuracy))
	})
}

func (s *ServiceSuite) TestExpiredToken() {
	tokenValue := s.issueToken("loc-1")
	s.now = s.now.Add(11 * time.Minute)
	_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-exp", ClockIn, tokenValue))
	s.True(dErrors.Is(err, dErrors.CodeTokenExpired))
}

func (s *ServiceSuite) TestDisabledLocationAfterIssue() {
	tokenValue := s.issueToken("loc-1")

	// RCP switched off between issuance and submission.
	s.directory.Put(location.Location{
		ID:              "loc-1",
		OrganisationID:  "org-1",
		GeoLat:          officeLat,
		GeoLng:          officeLng,
		GeoRadiusMeters: 100,
		RCPEnabled:      false,
	})

	_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-dis", ClockIn, tokenValue))
	s.True(dErrors.Is(err, dErrors.CodeLocationDisabled))
}

func (s *ServiceSuite) TestConcurrentClockIn() {
	tokenValue := s.issueToken("loc-1")
	// Generous limit so the throttle stays out of the way.
	s.service.limits = Limits{Attempts: 100, Window: time.Minute}

	var g errgroup.Group
	results := make(chan error, 10)
	for range 10 {
		g.Go(func() error {
			_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-race", ClockIn, tokenValue))
			results <- err
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	close(results)

	var successes, alreadyIn int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case dErrors.Is(err, dErrors.CodeAlreadyClockedIn):
			alreadyIn++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, successes, "exactly one concurrent clock-in may win")
	s.Equal(9, alreadyIn)

	events, err := s.service.RecentEvents(s.ctx, "emp-race", 50)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *ServiceSuite) TestRateLimitWindowSlides() {
	tokenValue := s.issueToken("loc-1")

	for range 5 {
		_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-rl", ClockIn, "nope"))
		s.True(dErrors.Is(err, dErrors.CodeTokenInvalid))
	}
	_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-rl", ClockIn, tokenValue))
	s.True(dErrors.Is(err, dErrors.CodeRateLimit))
}

func (s *ServiceSuite) TestHistoryAndReporting() {
	tokenValue := s.issueToken("loc-1")

	for i := range 3 {
		eventType := ClockIn
		if i%2 == 1 {
			eventType = ClockOut
		}
		s.now = s.now.Add(time.Hour)
		_, err := s.service.SubmitClockEvent(s.ctx, s.request("emp-hist", eventType, tokenValue))
		s.Require().NoError(err)
	}

	events, err := s.service.RecentEvents(s.ctx, "emp-hist", 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.True(events[0].HappenedAt.After(events[1].HappenedAt), "most recent first")

	orgEvents, err := s.service.OrganisationEvents(s.ctx, "org-1", 50)
	s.Require().NoError(err)
	s.Len(orgEvents, 3)
}
