package eventstore_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/minimal-calendar/internal/eventstore"
	"github.com/iliyamo/minimal-calendar/internal/eventstore/eventstoretest"
	"github.com/iliyamo/minimal-calendar/internal/kv"
	"github.com/iliyamo/minimal-calendar/internal/model"
)

func TestAnonymousStore_Compliance(t *testing.T) {
	eventstoretest.Run(t, func(t *testing.T) eventstore.Store {
		return eventstore.NewAnonymousStore(kv.NewMemoryStore(), zerolog.Nop())
	})
}

func TestOwnedLocalStore_Compliance(t *testing.T) {
	eventstoretest.Run(t, func(t *testing.T) eventstore.Store {
		return eventstore.NewOwnedLocalStore(kv.NewMemoryStore(), "local-user-1", zerolog.Nop())
	})
}

func TestAnonymousStore_Standup(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	s := eventstore.NewAnonymousStore(mem, zerolog.Nop())

	_, err := s.Add(ctx, model.NewEvent{
		Title: "Standup",
		Date:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local),
		Color: "#4f46e5",
	})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Standup", list[0].Title)
	assert.Len(t, list[0].ID, 7)
	assert.Empty(t, list[0].UserID)

	raw, ok, _ := mem.Get(ctx, kv.KeyAnonymousEvents)
	require.True(t, ok)
	assert.Contains(t, raw, `"title":"Standup"`)
}

func TestLocalStore_MalformedBlobIsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, kv.KeyAnonymousEvents, "{not json"))
	s := eventstore.NewAnonymousStore(mem, zerolog.Nop())

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// a later add replaces the broken blob
	_, err = s.Add(ctx, model.NewEvent{Title: "fresh", Date: time.Now()})
	require.NoError(t, err)
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLocalStore_RoundTripPreservesInstant(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	s := eventstore.NewAnonymousStore(mem, zerolog.Nop())
	date := time.Date(2024, 12, 31, 23, 59, 30, 0, time.FixedZone("X", 5*3600+1800))

	added, err := s.Add(ctx, model.NewEvent{Title: "NYE", Date: date, Description: "party", Color: "#f97316"})
	require.NoError(t, err)

	raw, _, _ := mem.Get(ctx, kv.KeyAnonymousEvents)
	var decoded []model.Event
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, added.ID, decoded[0].ID)
	assert.Equal(t, added.Title, decoded[0].Title)
	assert.Equal(t, added.Description, decoded[0].Description)
	assert.Equal(t, added.Color, decoded[0].Color)
	assert.True(t, date.Equal(decoded[0].Date))
}

func TestOwnedLocalStore_NeverMixesPopulations(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	anon := eventstore.NewAnonymousStore(mem, zerolog.Nop())
	alice := eventstore.NewOwnedLocalStore(mem, "alice", zerolog.Nop())
	bob := eventstore.NewOwnedLocalStore(mem, "bob", zerolog.Nop())

	_, err := anon.Add(ctx, model.NewEvent{Title: "anon", Date: time.Now()})
	require.NoError(t, err)
	a, err := alice.Add(ctx, model.NewEvent{Title: "alice", Date: time.Now()})
	require.NoError(t, err)
	_, err = bob.Add(ctx, model.NewEvent{Title: "bob", Date: time.Now()})
	require.NoError(t, err)

	aliceList, _ := alice.List(ctx)
	require.Len(t, aliceList, 1)
	assert.Equal(t, "alice", aliceList[0].UserID)

	// bob cannot remove alice's event
	require.NoError(t, bob.Remove(ctx, a.ID))
	aliceList, _ = alice.List(ctx)
	assert.Len(t, aliceList, 1)

	require.NoError(t, alice.Clear(ctx))
	aliceList, _ = alice.List(ctx)
	bobList, _ := bob.List(ctx)
	anonList, _ := anon.List(ctx)
	assert.Empty(t, aliceList)
	assert.Len(t, bobList, 1)
	assert.Len(t, anonList, 1)
}

func TestAnonymousStore_Clear(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemoryStore()
	s := eventstore.NewAnonymousStore(mem, zerolog.Nop())
	_, err := s.Add(ctx, model.NewEvent{Title: "x", Date: time.Now()})
	require.NoError(t, err)

	require.NoError(t, s.Clear(ctx))
	_, ok, _ := mem.Get(ctx, kv.KeyAnonymousEvents)
	assert.False(t, ok)
}
