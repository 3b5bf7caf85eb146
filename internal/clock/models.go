package clock

import "time"

// EventType is the direction of a clock event.
type EventType string

const (
	ClockIn  EventType = "CLOCK_IN"
	ClockOut EventType = "CLOCK_OUT"
)

// Valid reports whether t is a member of the closed event type set.
func (t EventType) Valid() bool {
	return t == ClockIn || t == ClockOut
}

// ClockEvent is one immutable entry in the append-only clock log.
type ClockEvent struct {
	ID             string    `json:"id"`
	EmployeeID     string    `json:"employeeId"`
	OrganisationID string    `json:"organisationId"`
	LocationID     string    `json:"locationId"`
	// LocationName is denormalized at commit time so history and reporting
	// reads need no directory round trip.
	LocationName string    `json:"locationName"`
	Type         EventType `json:"type"`
	// HappenedAt is server-observed time; ClientTime is kept only as an
	// audit annotation and never drives ordering.
	HappenedAt     time.Time  `json:"happenedAt"`
	DistanceMeters float64    `json:"distanceMeters"`
	AccuracyMeters *float64   `json:"accuracyMeters,omitempty"`
	ClientLat      float64    `json:"clientLat"`
	ClientLng      float64    `json:"clientLng"`
	ClientTime     *time.Time `json:"clientTime,omitempty"`
}

// EmployeeClockState is the derived per-employee snapshot, recomputable from
// the event log if lost.
type EmployeeClockState struct {
	EmployeeID  string
	IsClockedIn bool
	LastEvent   *ClockEvent
}
