package clock

import (
	"context"
	"fmt"
	"sync"

	"workclock/pkg/platform/sentinel"
)

// InMemoryStore keeps clock state and events in memory for tests and dev.
type InMemoryStore struct {
	mu       sync.RWMutex
	states   map[string]EmployeeClockState
	events   map[string][]ClockEvent // per employee, append order
	orgIndex map[string][]ClockEvent // per organisation, append order
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		states:   make(map[string]EmployeeClockState),
		events:   make(map[string][]ClockEvent),
		orgIndex: make(map[string][]ClockEvent),
	}
}

func (s *InMemoryStore) State(_ context.Context, employeeID string) (EmployeeClockState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if state, ok := s.states[employeeID]; ok {
		return state, nil
	}
	return EmployeeClockState{EmployeeID: employeeID}, nil
}

func (s *InMemoryStore) Commit(_ context.Context, event ClockEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior := s.states[event.EmployeeID]
	expectClockedIn := event.Type == ClockOut
	if prior.IsClockedIn != expectClockedIn {
		return fmt.Errorf("clock state changed concurrently: %w", sentinel.ErrConflict)
	}

	s.events[event.EmployeeID] = append(s.events[event.EmployeeID], event)
	s.orgIndex[event.OrganisationID] = append(s.orgIndex[event.OrganisationID], event)
	stored := event
	s.states[event.EmployeeID] = EmployeeClockState{
		EmployeeID:  event.EmployeeID,
		IsClockedIn: event.Type == ClockIn,
		LastEvent:   &stored,
	}
	return nil
}

func (s *InMemoryStore) RecentEvents(_ context.Context, employeeID string, limit int) ([]ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastDescending(s.events[employeeID], limit), nil
}

func (s *InMemoryStore) EventsByOrganisation(_ context.Context, organisationID string, limit int) ([]ClockEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastDescending(s.orgIndex[organisationID], limit), nil
}

// lastDescending copies the newest limit entries of an append-ordered slice,
// most recent first.
func lastDescending(events []ClockEvent, limit int) []ClockEvent {
	if limit <= 0 || limit > len(events) {
		limit = len(events)
	}
	out := make([]ClockEvent, 0, limit)
	for i := len(events) - 1; i >= len(events)-limit; i-- {
		out = append(out, events[i])
	}
	return out
}
