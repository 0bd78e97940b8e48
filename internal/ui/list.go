package ui

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/iliyamo/minimal-calendar/internal/datefmt"
	"github.com/iliyamo/minimal-calendar/internal/eventindex"
	"github.com/iliyamo/minimal-calendar/internal/model"
)

// EmptyDayMessage is printed when a day has no events.
const EmptyDayMessage = "Não há eventos para este dia"

// RenderEventList prints events ordered by date, one row each, with a
// long date and a clock in the given locale. Descriptions go on their
// own indented line.
func RenderEventList(w io.Writer, events []model.Event, locale datefmt.Locale, loc *time.Location) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, EmptyDayMessage)
		return err
	}
	if loc == nil {
		loc = time.Local
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, ev := range eventindex.SortedByDate(events) {
		t := ev.Date.In(loc)
		color := ev.Color
		if color == "" {
			color = model.DefaultColor
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			ev.ID, ev.Title,
			datefmt.Format(t, datefmt.LongDate, locale),
			datefmt.Format(t, datefmt.Clock, locale),
			color)
		if ev.Description != "" {
			fmt.Fprintf(tw, "\t  %s\t\t\t\n", ev.Description)
		}
	}
	return tw.Flush()
}

// RenderDayHeader prints the selected day title, e.g. "1 Maio 2024".
func RenderDayHeader(w io.Writer, day time.Time, locale datefmt.Locale) error {
	_, err := fmt.Fprintln(w, datefmt.Format(day, datefmt.DayTitle, locale))
	return err
}
