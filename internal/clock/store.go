package clock

import "context"

// Store combines the per-employee state snapshot with the append-only event
// log. Commit is the only write path and performs the state transition and
// the event append as one atomic unit.
type Store interface {
	// State returns the current snapshot. An employee with no history gets
	// the zero snapshot (clocked out, no last event), not an error.
	State(ctx context.Context, employeeID string) (EmployeeClockState, error)

	// Commit appends the event and flips the state, guarded by the prior
	// state the caller observed: a CLOCK_IN commits only against a
	// clocked-out snapshot and vice versa. A lost race surfaces as
	// sentinel.ErrConflict and nothing is written.
	Commit(ctx context.Context, event ClockEvent) error

	// RecentEvents returns up to limit events for the employee, most recent
	// first.
	RecentEvents(ctx context.Context, employeeID string, limit int) ([]ClockEvent, error)

	// EventsByOrganisation returns up to limit events across the
	// organisation, most recent first, for reporting reads.
	EventsByOrganisation(ctx context.Context, organisationID string, limit int) ([]ClockEvent, error)
}
