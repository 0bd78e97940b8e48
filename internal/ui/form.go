// Package ui renders the calendar to a terminal: the event form
// validation, the month grid and the day's event list.
package ui

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/minimal-calendar/internal/model"
)

// FormInput is the raw text of the add-event form.
type FormInput struct {
	Title       string
	Date        string // YYYY-MM-DD or RFC 3339
	Time        string // optional HH:MM, only with YYYY-MM-DD dates
	Description string
	Color       string
}

// ValidationErrors maps a form field to its message. It is returned
// as an error; nothing is persisted when it is non-empty.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, "; ")
}

// ParseEventForm validates in and builds the event to add. Dates
// without a zone are read in loc (time.Local when nil).
func ParseEventForm(in FormInput, loc *time.Location) (model.NewEvent, error) {
	if loc == nil {
		loc = time.Local
	}
	errs := ValidationErrors{}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		errs["title"] = "Título é obrigatório"
	}

	rawDate, clock := strings.TrimSpace(in.Date), strings.TrimSpace(in.Time)
	date, err := parseDate(rawDate, clock, loc)
	switch {
	case errors.Is(err, errClockWithInstant):
		errs["time"] = err.Error()
	case err != nil:
		errs["date"] = err.Error()
	}

	color := strings.TrimSpace(in.Color)
	switch {
	case color == "":
		color = model.DefaultColor
	case !model.IsHexColor(color):
		errs["color"] = "Cor inválida, use o formato #rrggbb"
	default:
		color = strings.ToLower(color)
	}

	if len(errs) > 0 {
		return model.NewEvent{}, errs
	}
	return model.NewEvent{
		Title:       title,
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Color:       color,
	}, nil
}

var errClockWithInstant = errors.New("Horário não pode ser usado com data e hora completas")

func parseDate(date, clock string, loc *time.Location) (time.Time, error) {
	if date == "" {
		return time.Time{}, fmt.Errorf("Data é obrigatória")
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		if clock != "" {
			return time.Time{}, errClockWithInstant
		}
		return t, nil
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("Data inválida, use AAAA-MM-DD")
	}
	if clock == "" {
		return day, nil
	}
	hm, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("Horário inválido, use HH:MM")
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}
