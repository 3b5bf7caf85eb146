package location

import (
	"context"
	"fmt"
	"sync"

	"workclock/pkg/platform/sentinel"
)

// InMemoryDirectory keeps location records in memory for tests and dev.
type InMemoryDirectory struct {
	mu        sync.RWMutex
	locations map[string]Location
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{locations: make(map[string]Location)}
}

// Put seeds a location record. Test/dev helper, not part of Directory.
func (d *InMemoryDirectory) Put(loc Location) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locations[loc.ID] = loc
}

func (d *InMemoryDirectory) FindByID(_ context.Context, id string) (Location, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if loc, ok := d.locations[id]; ok {
		return loc, nil
	}
	return Location{}, fmt.Errorf("location %s: %w", id, sentinel.ErrNotFound)
}
