package location

import "context"

// Directory provides read access to location records. Implementations wrap
// whatever system owns the location data; the clock subsystem only reads.
type Directory interface {
	FindByID(ctx context.Context, id string) (Location, error)
}
