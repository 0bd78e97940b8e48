package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iliyamo/minimal-calendar/internal/datefmt"
	"github.com/iliyamo/minimal-calendar/internal/eventindex"
	"github.com/iliyamo/minimal-calendar/internal/model"
)

// MaxMarkers is how many event dots a day cell shows.
const MaxMarkers = 3

// cellWidth fits a bracketed two-digit day plus MaxMarkers dots.
const cellWidth = 4 + MaxMarkers

// MonthView is everything the month grid needs.
type MonthView struct {
	Month     time.Time // any instant inside the month to draw
	Selected  time.Time
	Events    []model.Event
	WeekStart time.Weekday
	Locale    datefmt.Locale
	Location  *time.Location
}

// RenderMonth draws a month grid. The selected day is wrapped in
// brackets and every day with events gets up to MaxMarkers dots.
//
//	          Maio 2024
//	 Do     Se     Te     Qu     Qu     Se     Sá
//	                      1•     2      3      4
func RenderMonth(w io.Writer, v MonthView) error {
	loc := v.Location
	if loc == nil {
		loc = time.Local
	}
	m := v.Month.In(loc)
	first := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, loc)
	days := first.AddDate(0, 1, -1).Day()

	title := datefmt.Format(first, datefmt.MonthTitle, v.Locale)
	width := 7 * cellWidth
	pad := (width - len([]rune(title))) / 2
	if pad < 0 {
		pad = 0
	}
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", pad) + title + "\n")
	for _, h := range datefmt.WeekdayInitials(v.WeekStart, v.Locale) {
		b.WriteString(" " + h + strings.Repeat(" ", cellWidth-1-len([]rune(h))))
	}
	b.WriteString("\n")

	offset := (int(first.Weekday()) - int(v.WeekStart) + 7) % 7
	b.WriteString(strings.Repeat(" ", offset*cellWidth))
	selected := eventindex.DayKey(v.Selected, loc)
	col := offset
	for d := 1; d <= days; d++ {
		day := time.Date(m.Year(), m.Month(), d, 12, 0, 0, 0, loc)
		b.WriteString(cell(d, eventindex.DayKey(day, loc) == selected,
			len(eventindex.Markers(v.Events, day, loc, MaxMarkers))))
		col++
		if col == 7 && d != days {
			b.WriteString("\n")
			col = 0
		}
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// cell is always cellWidth runes wide.
func cell(day int, selected bool, markers int) string {
	num := fmt.Sprintf("%2d", day)
	if selected {
		num = "[" + strings.TrimSpace(num) + "]"
		if day < 10 {
			num = " " + num
		}
	} else {
		num = " " + num + " "
	}
	dots := strings.Repeat("•", markers)
	s := num + dots
	if n := len([]rune(s)); n < cellWidth {
		s += strings.Repeat(" ", cellWidth-n)
	}
	return s
}
