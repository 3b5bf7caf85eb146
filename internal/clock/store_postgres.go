package clock

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"workclock/pkg/platform/sentinel"
)

// PostgresStore is the durable clock store.
//
// Expected schema:
//
//	CREATE TABLE clock_events (
//	    id              UUID PRIMARY KEY,
//	    employee_id     TEXT NOT NULL,
//	    organisation_id TEXT NOT NULL,
//	    location_id     TEXT NOT NULL,
//	    location_name   TEXT NOT NULL,
//	    type            TEXT NOT NULL,
//	    happened_at     TIMESTAMPTZ NOT NULL,
//	    distance_meters DOUBLE PRECISION NOT NULL,
//	    accuracy_meters DOUBLE PRECISION,
//	    client_lat      DOUBLE PRECISION NOT NULL,
//	    client_lng      DOUBLE PRECISION NOT NULL,
//	    client_time     TIMESTAMPTZ
//	);
//	CREATE INDEX clock_events_employee_idx ON clock_events (employee_id, happened_at DESC);
//	CREATE INDEX clock_events_org_idx ON clock_events (organisation_id, happened_at DESC);
//
//	CREATE TABLE employee_clock_state (
//	    employee_id   TEXT PRIMARY KEY,
//	    is_clocked_in BOOLEAN NOT NULL,
//	    last_event_id UUID NOT NULL REFERENCES clock_events (id)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) State(ctx context.Context, employeeID string) (EmployeeClockState, error) {
	const query = `
		SELECT st.is_clocked_in,
		       ev.id, ev.employee_id, ev.organisation_id, ev.location_id,
		       ev.location_name, ev.type, ev.happened_at, ev.distance_meters,
		       ev.accuracy_meters, ev.client_lat, ev.client_lng, ev.client_time
		FROM employee_clock_state st
		JOIN clock_events ev ON ev.id = st.last_event_id
		WHERE st.employee_id = $1
	`
	state := EmployeeClockState{EmployeeID: employeeID}
	var last ClockEvent
	err := s.pool.QueryRow(ctx, query, employeeID).Scan(
		&state.IsClockedIn,
		&last.ID, &last.EmployeeID, &last.OrganisationID, &last.LocationID,
		&last.LocationName, &last.Type, &last.HappenedAt, &last.DistanceMeters,
		&last.AccuracyMeters, &last.ClientLat, &last.ClientLng, &last.ClientTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return EmployeeClockState{}, fmt.Errorf("load clock state: %w", err)
	}
	state.LastEvent = &last
	return state, nil
}

// Commit writes the event and flips the snapshot in one transaction. The
// state update carries a guard on the prior is_clocked_in value; losing a
// race rolls the whole transaction back with sentinel.ErrConflict.
func (s *PostgresStore) Commit(ctx context.Context, event ClockEvent) error {
	expectClockedIn := event.Type == ClockOut

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin clock commit: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertEvent = `
		INSERT INTO clock_events (
			id, employee_id, organisation_id, location_id, location_name, type,
			happened_at, distance_meters, accuracy_meters, client_lat,
			client_lng, client_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, insertEvent,
		event.ID, event.EmployeeID, event.OrganisationID, event.LocationID,
		event.LocationName, event.Type, event.HappenedAt, event.DistanceMeters,
		event.AccuracyMeters, event.ClientLat, event.ClientLng, event.ClientTime,
	)
	if err != nil {
		return fmt.Errorf("append clock event: %w", err)
	}

	const upsertState = `
		INSERT INTO employee_clock_state (employee_id, is_clocked_in, last_event_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (employee_id) DO UPDATE
		SET is_clocked_in = EXCLUDED.is_clocked_in,
		    last_event_id = EXCLUDED.last_event_id
		WHERE employee_clock_state.is_clocked_in = $4
	`
	tag, err := tx.Exec(ctx, upsertState,
		event.EmployeeID, event.Type == ClockIn, event.ID, expectClockedIn,
	)
	if err != nil {
		return fmt.Errorf("update clock state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("clock state changed concurrently: %w", sentinel.ErrConflict)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit clock event: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentEvents(ctx context.Context, employeeID string, limit int) ([]ClockEvent, error) {
	const query = `
		SELECT id, employee_id, organisation_id, location_id, location_name,
		       type, happened_at, distance_meters, accuracy_meters,
		       client_lat, client_lng, client_time
		FROM clock_events
		WHERE employee_id = $1
		ORDER BY happened_at DESC
		LIMIT $2
	`
	return s.queryEvents(ctx, query, employeeID, limit)
}

func (s *PostgresStore) EventsByOrganisation(ctx context.Context, organisationID string, limit int) ([]ClockEvent, error) {
	const query = `
		SELECT id, employee_id, organisation_id, location_id, location_name,
		       type, happened_at, distance_meters, accuracy_meters,
		       client_lat, client_lng, client_time
		FROM clock_events
		WHERE organisation_id = $1
		ORDER BY happened_at DESC
		LIMIT $2
	`
	return s.queryEvents(ctx, query, organisationID, limit)
}

func (s *PostgresStore) queryEvents(ctx context.Context, query, key string, limit int) ([]ClockEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, query, key, limit)
	if err != nil {
		return nil, fmt.Errorf("query clock events: %w", err)
	}
	defer rows.Close()

	var events []ClockEvent
	for rows.Next() {
		var ev ClockEvent
		err := rows.Scan(
			&ev.ID, &ev.EmployeeID, &ev.OrganisationID, &ev.LocationID,
			&ev.LocationName, &ev.Type, &ev.HappenedAt, &ev.DistanceMeters,
			&ev.AccuracyMeters, &ev.ClientLat, &ev.ClientLng, &ev.ClientTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan clock event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
