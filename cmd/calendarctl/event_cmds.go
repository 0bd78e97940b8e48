package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/minimal-calendar/internal/datefmt"
	"github.com/iliyamo/minimal-calendar/internal/eventstore"
	"github.com/iliyamo/minimal-calendar/internal/ics"
	"github.com/iliyamo/minimal-calendar/internal/ui"
)

// parseDay reads YYYY-MM-DD in the configured zone; empty means today.
func (a *app) parseDay(s string) (time.Time, error) {
	loc := a.cfg.Location()
	if strings.TrimSpace(s) == "" {
		return time.Now().In(loc), nil
	}
	d, err := time.ParseInLocation(datefmt.ISODay, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("dia inválido %q, use AAAA-MM-DD", s)
	}
	return d, nil
}

func newAddCmd(a *app) *cobra.Command {
	var in ui.FormInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event",
		Example: `  calendarctl add --title "Dentista" --date 2024-05-10 --time 14:30
  calendarctl add --title "Aniversário" --date 2024-05-12 --color "#16a34a"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := ui.ParseEventForm(in, a.cfg.Location())
			if err != nil {
				var verr ui.ValidationErrors
				if errors.As(err, &verr) {
					fields := make([]string, 0, len(verr))
					for f := range verr {
						fields = append(fields, f)
					}
					sort.Strings(fields)
					for _, f := range fields {
						fmt.Fprintf(a.errOut, "  --%s: %s\n", f, verr[f])
					}
				}
				return err
			}
			cal, err := a.openCalendar(cmd.Context())
			if err != nil {
				return err
			}
			saved, err := cal.Add(cmd.Context(), ev)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, saved.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "event title (required)")
	f.StringVar(&in.Date, "date", "", "day as AAAA-MM-DD (required)")
	f.StringVar(&in.Time, "time", "", "time of day as HH:MM")
	f.StringVar(&in.Description, "desc", "", "description")
	f.StringVar(&in.Color, "color", "", "color as #rrggbb")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	var (
		day string
		all bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the events of a day (today by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.parseDay(day)
			if err != nil {
				return err
			}
			cal, err := a.openCalendar(cmd.Context())
			if err != nil {
				return err
			}
			if all {
				return ui.RenderEventList(a.out, cal.All(), a.locale, cal.Location())
			}
			cal.Select(d)
			if err := ui.RenderDayHeader(a.out, cal.Selected(), a.locale); err != nil {
				return err
			}
			return ui.RenderEventList(a.out, cal.SelectedDayEvents(), a.locale, cal.Location())
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "day as AAAA-MM-DD")
	cmd.Flags().BoolVar(&all, "all", false, "list every event")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove an event by id",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cal, err := a.openCalendar(cmd.Context())
			if err != nil {
				return err
			}
			err = cal.Remove(cmd.Context(), args[0])
			if errors.Is(err, eventstore.ErrNotFound) {
				return nil // already reported
			}
			return err
		},
	}
}

func newMonthCmd(a *app) *cobra.Command {
	var (
		month      string
		day        string
		prev, next int
	)
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show the month grid and the selected day's events",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.parseDay(day)
			if err != nil {
				return err
			}
			cal, err := a.openCalendar(cmd.Context())
			if err != nil {
				return err
			}
			cal.Select(d)
			if month != "" {
				m, err := time.ParseInLocation("2006-01", month, cal.Location())
				if err != nil {
					return fmt.Errorf("mês inválido %q, use AAAA-MM", month)
				}
				cal.ShiftMonth((m.Year()-cal.Month().Year())*12 + int(m.Month()-cal.Month().Month()))
			}
			cal.ShiftMonth(next - prev)

			err = ui.RenderMonth(a.out, ui.MonthView{
				Month:     cal.Month(),
				Selected:  cal.Selected(),
				Events:    cal.All(),
				WeekStart: a.cfg.StartOfWeek(),
				Locale:    a.locale,
				Location:  cal.Location(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			if err := ui.RenderDayHeader(a.out, cal.Selected(), a.locale); err != nil {
				return err
			}
			return ui.RenderEventList(a.out, cal.SelectedDayEvents(), a.locale, cal.Location())
		},
	}
	f := cmd.Flags()
	f.StringVar(&month, "month", "", "month to show as AAAA-MM")
	f.StringVar(&day, "day", "", "selected day as AAAA-MM-DD (today by default)")
	f.IntVar(&prev, "prev", 0, "go back N months")
	f.IntVar(&next, "next", 0, "go forward N months")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events as iCalendar (.ics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var w io.Writer = a.out
			if out != "" && out != "-" {
				f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			if _, remote := store.(*eventstore.RemoteStore); remote {
				body, err := a.api.ExportICS(cmd.Context(), a.remote.AccessToken())
				if err != nil {
					return err
				}
				_, err = w.Write(body)
				return err
			}
			events, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return ics.Export(w, events, "Calendário")
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.ics>",
		Short: "Add every event of an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			events, err := ics.Parse(f, a.cfg.Location())
			if err != nil {
				return err
			}
			cal, err := a.openCalendar(cmd.Context())
			if err != nil {
				return err
			}
			added := 0
			for _, ev := range events {
				if strings.TrimSpace(ev.Title) == "" {
					continue
				}
				if _, err := cal.Add(cmd.Context(), ev); err != nil {
					return fmt.Errorf("importados %d de %d: %w", added, len(events), err)
				}
				added++
			}
			fmt.Fprintf(a.out, "%d eventos importados\n", added)
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every event kept on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("use --yes para confirmar")
			}
			store, err := a.store(cmd.Context())
			if err != nil {
				return err
			}
			local, ok := store.(*eventstore.LocalStore)
			if !ok {
				return errors.New("clear só se aplica a eventos locais")
			}
			if err := local.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Eventos removidos")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}
