// Package eventstoretest is a compliance suite shared by every
// eventstore.Store implementation.
package eventstoretest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/minimal-calendar/internal/eventstore"
	"github.com/iliyamo/minimal-calendar/internal/model"
)

// Run exercises a fresh, empty store returned by makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) eventstore.Store) {
	t.Helper()

	t.Run("AddThenList", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		date := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

		got, err := s.Add(ctx, model.NewEvent{Title: "Standup", Date: date, Color: "#4f46e5"})
		require.NoError(t, err)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "Standup", got.Title)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, got.ID, list[0].ID)
		assert.Equal(t, "Standup", list[0].Title)
		assert.Equal(t, "#4f46e5", list[0].Color)
		assert.True(t, date.Equal(list[0].Date), "date %s != %s", list[0].Date, date)
	})

	t.Run("DefaultColor", func(t *testing.T) {
		s := makeStore(t)
		got, err := s.Add(context.Background(), model.NewEvent{Title: "No color", Date: time.Now()})
		require.NoError(t, err)
		assert.Equal(t, model.DefaultColor, got.Color)
	})

	t.Run("AddThenRemoveRestoresCollection", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		_, err := s.Add(ctx, model.NewEvent{Title: "Keep", Date: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		before, err := s.List(ctx)
		require.NoError(t, err)

		added, err := s.Add(ctx, model.NewEvent{Title: "Drop", Date: time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		require.NoError(t, s.Remove(ctx, added.ID))

		after, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, after, len(before))
		for i := range before {
			assert.Equal(t, before[i].ID, after[i].ID)
			assert.Equal(t, before[i].Title, after[i].Title)
			assert.True(t, before[i].Date.Equal(after[i].Date))
		}
	})

	t.Run("UniqueIDs", func(t *testing.T) {
		s := makeStore(t)
		ctx := context.Background()
		seen := map[string]bool{}
		for i := 0; i < 25; i++ {
			ev, err := s.Add(ctx, model.NewEvent{Title: "n", Date: time.Now()})
			require.NoError(t, err)
			require.False(t, seen[ev.ID], "duplicate id %s", ev.ID)
			seen[ev.ID] = true
		}
	})

	t.Run("RemoveUnknown", func(t *testing.T) {
		s := makeStore(t)
		err := s.Remove(context.Background(), "does-not-exist")
		if err != nil && !errors.Is(err, eventstore.ErrNotFound) {
			t.Fatalf("remove unknown: unexpected error %v", err)
		}
	})
}
