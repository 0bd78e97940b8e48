// Package calendar owns the in-memory event collection of one run and
// keeps it in step with the selected eventstore.Store.
package calendar

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/minimal-calendar/internal/eventindex"
	"github.com/iliyamo/minimal-calendar/internal/eventstore"
	"github.com/iliyamo/minimal-calendar/internal/model"
	"github.com/iliyamo/minimal-calendar/internal/session"
)

// Calendar is the view model behind the month grid and the day list.
// Memory only changes after the store confirmed the write.
type Calendar struct {
	notify session.Notifier
	log    zerolog.Logger
	loc    *time.Location

	mu       sync.RWMutex
	store    eventstore.Store
	events   []model.Event
	selected time.Time
	month    time.Time
}

// New starts with today selected. loc is the zone used to bucket days;
// nil means time.Local.
func New(store eventstore.Store, notify session.Notifier, log zerolog.Logger, loc *time.Location) *Calendar {
	if notify == nil {
		notify = session.NotifierFunc(func(session.Level, string, string) {})
	}
	if loc == nil {
		loc = time.Local
	}
	now := time.Now().In(loc)
	return &Calendar{
		notify:   notify,
		log:      log,
		loc:      loc,
		store:    store,
		events:   []model.Event{},
		selected: now,
		month:    firstOfMonth(now),
	}
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Load replaces memory with the store's collection.
func (c *Calendar) Load(ctx context.Context) error {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()

	events, err := store.List(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("load events failed")
		c.notify.Notify(session.LevelError, "Erro ao carregar eventos", err.Error())
		return err
	}
	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
	c.log.Debug().Int("count", len(events)).Msg("events loaded")
	return nil
}

// Add persists ev and then appends it.
func (c *Calendar) Add(ctx context.Context, ev model.NewEvent) (model.Event, error) {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()

	saved, err := store.Add(ctx, ev)
	if err != nil {
		c.log.Error().Err(err).Str("title", ev.Title).Msg("add event failed")
		c.notify.Notify(session.LevelError, "Erro ao adicionar evento", err.Error())
		return model.Event{}, err
	}
	c.mu.Lock()
	c.events = append(c.events, saved)
	c.mu.Unlock()
	c.notify.Notify(session.LevelInfo, "Evento adicionado", "Seu evento foi adicionado com sucesso.")
	return saved, nil
}

// Remove deletes id from the store and then from memory. A missing id
// is reported but memory is still pruned.
func (c *Calendar) Remove(ctx context.Context, id string) error {
	c.mu.RLock()
	store := c.store
	c.mu.RUnlock()

	err := store.Remove(ctx, id)
	if err != nil && !errors.Is(err, eventstore.ErrNotFound) {
		c.log.Error().Err(err).Str("id", id).Msg("remove event failed")
		c.notify.Notify(session.LevelError, "Erro ao remover evento", err.Error())
		return err
	}
	c.mu.Lock()
	c.events = slices.DeleteFunc(c.events, func(ev model.Event) bool { return ev.ID == id })
	c.mu.Unlock()
	if err != nil {
		c.notify.Notify(session.LevelError, "Evento não encontrado", "O evento já havia sido removido.")
		return err
	}
	c.notify.Notify(session.LevelInfo, "Evento removido", "O evento foi removido com sucesso.")
	return nil
}

// Select changes the selected day and shows its month.
func (c *Calendar) Select(day time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = day.In(c.loc)
	c.month = firstOfMonth(c.selected)
}

// Selected is the selected day.
func (c *Calendar) Selected() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// ShiftMonth moves the displayed month by n (negative for previous).
// The selection is kept.
func (c *Calendar) ShiftMonth(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.month = c.month.AddDate(0, n, 0)
}

// Month is the first day of the displayed month.
func (c *Calendar) Month() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.month
}

// Location is the zone days are bucketed in.
func (c *Calendar) Location() *time.Location { return c.loc }

// SelectedDayEvents lists the selected day's events by date.
func (c *Calendar) SelectedDayEvents() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return eventindex.SortedByDate(eventindex.ByDayIn(c.events, c.selected, c.loc))
}

// All returns a copy of the whole collection in store order.
func (c *Calendar) All() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.events)
}

// Follow swaps the store whenever the session settles and reloads.
// pick decides which store serves the new state. The returned func
// stops following.
func (c *Calendar) Follow(ctx context.Context, s *session.Session, pick func(session.State, *model.Identity) (eventstore.Store, error)) func() {
	return s.Subscribe(func(state session.State, user *model.Identity) {
		if state == session.StatePending {
			return
		}
		store, err := pick(state, user)
		if err != nil {
			c.log.Error().Err(err).Str("state", state.String()).Msg("select store failed")
			return
		}
		c.mu.Lock()
		c.store = store
		c.events = []model.Event{}
		c.mu.Unlock()
		_ = c.Load(ctx)
	})
}
