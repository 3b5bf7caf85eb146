package clock

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workclock/pkg/platform/sentinel"
)

func memEvent(employeeID string, eventType EventType, happenedAt time.Time) ClockEvent {
	return ClockEvent{
		ID:             uuid.NewString(),
		EmployeeID:     employeeID,
		OrganisationID: "org-1",
		LocationID:     "loc-1",
		LocationName:   "Warsaw Office",
		Type:           eventType,
		HappenedAt:     happenedAt,
	}
}

func TestInMemoryStoreCommitGuard(t *testing.T) {
	ctx := t.Context()
	store := NewInMemoryStore()
	now := time.Now()

	t.Run("fresh clock out conflicts", func(t *testing.T) {
		err := store.Commit(ctx, memEvent("emp-1", ClockOut, now))
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("clock in then duplicate clock in conflicts", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, memEvent("emp-2", ClockIn, now)))
		err := store.Commit(ctx, memEvent("emp-2", ClockIn, now.Add(time.Second)))
		require.ErrorIs(t, err, sentinel.ErrConflict)

		events, err := store.RecentEvents(ctx, "emp-2", 10)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("legal alternation flips state", func(t *testing.T) {
		require.NoError(t, store.Commit(ctx, memEvent("emp-3", ClockIn, now)))
		require.NoError(t, store.Commit(ctx, memEvent("emp-3", ClockOut, now.Add(time.Hour))))

		state, err := store.State(ctx, "emp-3")
		require.NoError(t, err)
		assert.False(t, state.IsClockedIn)
		require.NotNil(t, state.LastEvent)
		assert.Equal(t, ClockOut, state.LastEvent.Type)
	})
}

func TestLastDescending(t *testing.T) {
	base := time.Now()
	events := []ClockEvent{
		memEvent("emp-1", ClockIn, base),
		memEvent("emp-1", ClockOut, base.Add(time.Hour)),
		memEvent("emp-1", ClockIn, base.Add(2*time.Hour)),
	}

	t.Run("limit smaller than history", func(t *testing.T) {
		out := lastDescending(events, 2)
		require.Len(t, out, 2)
		assert.Equal(t, events[2].ID, out[0].ID)
		assert.Equal(t, events[1].ID, out[1].ID)
	})

	t.Run("limit larger than history returns all", func(t *testing.T) {
		out := lastDescending(events, 10)
		assert.Len(t, out, 3)
	})

	t.Run("empty history", func(t *testing.T) {
		assert.Empty(t, lastDescending(nil, 5))
	})
}
