// Package eventindex derives the per-day and date-ordered views of an
// in-memory event collection. Every function is pure and recomputes its
// result on each call.
package eventindex

import (
	"slices"
	"time"

	"github.com/iliyamo/minimal-calendar/internal/model"
)

// dayLayout is the day-string used for equality. Events are bucketed
// by the calendar day of the given location, so two viewers in
// different zones may see an event on different days.
const dayLayout = "2006-01-02"

// DayKey truncates t to its calendar day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dayLayout)
}

// ByDay returns the events whose local calendar day equals day's,
// keeping the collection order.
func ByDay(events []model.Event, day time.Time) []model.Event {
	return ByDayIn(events, day, time.Local)
}

// ByDayIn is ByDay with an explicit location.
func ByDayIn(events []model.Event, day time.Time, loc *time.Location) []model.Event {
	key := DayKey(day, loc)
	out := make([]model.Event, 0)
	for _, ev := range events {
		if DayKey(ev.Date, loc) == key {
			out = append(out, ev)
		}
	}
	return out
}

// SortedByDate returns a copy ordered by ascending timestamp. Events
// with equal timestamps keep their collection order.
func SortedByDate(events []model.Event) []model.Event {
	out := slices.Clone(events)
	if out == nil {
		out = []model.Event{}
	}
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// Markers returns the colors of at most max events on day, used for
// the dots of the month grid.
func Markers(events []model.Event, day time.Time, loc *time.Location, max int) []string {
	out := make([]string, 0, max)
	for _, ev := range ByDayIn(events, day, loc) {
		if len(out) == max {
			break
		}
		color := ev.Color
		if color == "" {
			color = model.DefaultColor
		}
		out = append(out, color)
	}
	return out
}
