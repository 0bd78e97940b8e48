// Package ics converts events to and from iCalendar documents.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/iliyamo/minimal-calendar/internal/model"
)

const (
	productID = "-//minimal-calendar//calendarctl//PT"
	// uidDomain makes event ids globally unique as RFC 5545 asks.
	uidDomain = "minimal-calendar"
)

var propColor = ical.ComponentProperty("COLOR")

// Build returns a VCALENDAR with one VEVENT per event. Events carry no
// duration, so only DTSTART is set.
func Build(events []model.Event, name string, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	for _, e := range events {
		ve := cal.AddEvent(e.ID + "@" + uidDomain)
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(e.Date.UTC())
		ve.SetSummary(e.Title)
		if e.Description != "" {
			ve.SetDescription(e.Description)
		}
		color := e.Color
		if color == "" {
			color = model.DefaultColor
		}
		ve.SetProperty(propColor, color)
	}
	return cal
}

// Export writes events as an iCalendar document.
func Export(w io.Writer, events []model.Event, name string) error {
	_, err := io.WriteString(w, Build(events, name, time.Now()).Serialize())
	return err
}

// Parse reads the VEVENTs of r as new events. All-day and floating
// starts are read in loc (time.Local when nil); a TZID parameter wins
// over loc. Events without a start or summary are skipped and colors
// that are not #rrggbb become DefaultColor.
func Parse(r io.Reader, loc *time.Location) ([]model.NewEvent, error) {
	if loc == nil {
		loc = time.Local
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}
	out := make([]model.NewEvent, 0)
	for _, ve := range cal.Events() {
		start, err := startOf(ve, loc)
		if err != nil {
			continue
		}
		ev := model.NewEvent{Date: start, Color: model.DefaultColor}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			ev.Title = strings.TrimSpace(p.Value)
		}
		if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
			ev.Description = p.Value
		}
		if p := ve.GetProperty(propColor); p != nil && model.IsHexColor(strings.TrimSpace(p.Value)) {
			ev.Color = strings.ToLower(strings.TrimSpace(p.Value))
		}
		if ev.Title == "" {
			continue
		}
		out = append(out, ev)
	}
	if len(out) == 0 && len(cal.Events()) > 0 {
		return nil, errors.New("parse ics: no usable events")
	}
	return out, nil
}

const (
	layoutDate  = "20060102"
	layoutLocal = "20060102T150405"
	layoutUTC   = "20060102T150405Z"
)

// startOf decodes DTSTART in its three RFC 5545 forms: DATE, UTC
// (trailing Z) and local time, the latter in TZID or loc.
func startOf(ve *ical.VEvent, loc *time.Location) (time.Time, error) {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return time.Time{}, errors.New("no DTSTART")
	}
	v := strings.TrimSpace(p.Value)
	if strings.EqualFold(param(p, ical.ParameterValue), "DATE") || len(v) == len(layoutDate) {
		return time.ParseInLocation(layoutDate, v, loc)
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse(layoutUTC, v)
	}
	if tzid := param(p, ical.ParameterTzid); tzid != "" {
		if tz, err := time.LoadLocation(tzid); err == nil {
			loc = tz
		}
	}
	return time.ParseInLocation(layoutLocal, v, loc)
}

func param(p *ical.IANAProperty, name ical.Parameter) string {
	vals := p.ICalParameters[string(name)]
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}
