package eventstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/kv"
	"github.com/iliyamo/minimal-calendar/internal/model"
)

const (
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idLength   = 7
)

// LocalStore keeps the full collection as one JSON array in a kv.Store.
// Every Add and Remove rewrites the whole blob. Several processes on
// one device are not synchronised; the last writer wins.
type LocalStore struct {
	kv    kv.Store
	key   string
	owner string
	log   zerolog.Logger
}

// NewAnonymousStore is the device-only store with no account.
func NewAnonymousStore(s kv.Store, log zerolog.Logger) *LocalStore {
	return &LocalStore{kv: s, key: kv.KeyAnonymousEvents, log: log}
}

// NewOwnedLocalStore keeps the events of a local-simulation account.
// Events are stamped with owner and List only returns that owner's.
func NewOwnedLocalStore(s kv.Store, owner string, log zerolog.Logger) *LocalStore {
	return &LocalStore{kv: s, key: kv.KeyCalendarEvents, owner: owner, log: log}
}

// load reads the whole blob. Malformed data is treated as empty.
func (s *LocalStore) load(ctx context.Context) ([]model.Event, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.key, err)
	}
	if !ok || raw == "" {
		return []model.Event{}, nil
	}
	var events []model.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("discarding malformed local events")
		return []model.Event{}, nil
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

func (s *LocalStore) save(ctx context.Context, events []model.Event) error {
	b, err := json.Marshal(events)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, string(b)); err != nil {
		return fmt.Errorf("write %s: %w", s.key, err)
	}
	return nil
}

func (s *LocalStore) List(ctx context.Context) ([]model.Event, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.owner == "" {
		return all, nil
	}
	out := make([]model.Event, 0, len(all))
	for _, ev := range all {
		if ev.UserID == s.owner {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *LocalStore) Add(ctx context.Context, in model.NewEvent) (model.Event, error) {
	all, err := s.load(ctx)
	if err != nil {
		return model.Event{}, err
	}
	taken := make(map[string]bool, len(all))
	for _, ev := range all {
		taken[ev.ID] = true
	}
	id, err := newLocalID(taken)
	if err != nil {
		return model.Event{}, err
	}
	ev := in.WithID(id, s.owner)
	if err := s.save(ctx, append(all, ev)); err != nil {
		return model.Event{}, err
	}
	return ev, nil
}

// Remove drops the event with id. An unknown id is a no-op.
func (s *LocalStore) Remove(ctx context.Context, id string) error {
	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]model.Event, 0, len(all))
	for _, ev := range all {
		if ev.ID == id && ev.UserID == s.owner {
			continue
		}
		kept = append(kept, ev)
	}
	if len(kept) == len(all) {
		return nil
	}
	return s.save(ctx, kept)
}

// Clear deletes the whole namespace. For an owned store only the
// owner's events go.
func (s *LocalStore) Clear(ctx context.Context) error {
	if s.owner == "" {
		return s.kv.Delete(ctx, s.key)
	}
	all, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]model.Event, 0, len(all))
	for _, ev := range all {
		if ev.UserID != s.owner {
			kept = append(kept, ev)
		}
	}
	return s.save(ctx, kept)
}

// newLocalID draws 7 base-36 characters, retrying on collision.
func newLocalID(taken map[string]bool) (string, error) {
	max := big.NewInt(int64(len(idAlphabet)))
	for {
		b := make([]byte, idLength)
		for i := range b {
			n, err := rand.Int(rand.Reader, max)
			if err != nil {
				return "", err
			}
			b[i] = idAlphabet[n.Int64()]
		}
		if id := string(b); !taken[id] {
			return id, nil
		}
	}
}
