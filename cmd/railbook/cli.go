package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"railbook/internal/booking"
	"railbook/internal/chart"
	"railbook/internal/civil"
	"railbook/internal/controller"
	"railbook/internal/countdown"
	"railbook/internal/ics"
	"railbook/internal/model"
	"railbook/internal/preference"
	"railbook/internal/share"
)

// nowLayouts are accepted by --now, interpreted in IST.
var nowLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

// parseNow returns a fixed clock for --now, or nil for the wall clock.
func parseNow(s string) (func() time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range nowLayouts {
		if t, err := time.ParseInLocation(layout, s, civil.IST); err == nil {
			return func() time.Time { return t }, nil
		}
	}
	return nil, fmt.Errorf("invalid --now %q", s)
}

// withApp builds the app for a one-shot command.
func withApp(cmd *cobra.Command, nowFlag string, fn func(a *app) error) error {
	now, err := parseNow(nowFlag)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg, now)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func whenCmd() *cobra.Command {
	var nowFlag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "when [YYYY-MM-DD]",
		Short: "Show when booking opens for a travel date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nowFlag, func(a *app) error {
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					return printHorizon(out, a, asJSON)
				}
				d, err := civil.Parse(args[0])
				if err != nil {
					return err
				}
				p := a.ctrl.Share(d)
				if asJSON {
					return printJSON(out, p)
				}
				fmt.Fprintf(out, "%s\n%s\n", d.Format(booking.LongLayout), p.Message.Text)
				if p.BookURL != "" {
					fmt.Fprintf(out, "Book now: %s\n", p.BookURL)
				}
				if p.GoogleCalendarURL != "" {
					fmt.Fprintf(out, "Google Calendar: %s\n", p.GoogleCalendarURL)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate at this IST time instead of now")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printHorizon(w io.Writer, a *app, asJSON bool) error {
	rules := a.ctrl.Rules()
	now := a.ctrl.Now()
	today := civil.FromTime(now)
	general := rules.GeneralTravelDateFor(now)
	tatkal := rules.TatkalTravelDateFor(now)
	if asJSON {
		return printJSON(w, map[string]any{
			"today":             today,
			"summary":           a.ctrl.Summary(),
			"general_travel":    general,
			"tatkal_travel":     tatkal,
			"opens_at":          rules.OpenTimeLabel(),
			"holidays_version":  a.holidays.Version(),
			"upcoming_holidays": a.holidays.Between(today, today.AddDays(rules.AdvanceDays)),
		})
	}
	fmt.Fprintf(w, "Today: %s\n", today.Format(booking.LongLayout))
	fmt.Fprintln(w, a.ctrl.Summary())
	fmt.Fprintf(w, "General quota opening today (%s IST): travel on %s\n", rules.OpenTimeLabel(), general.Format(booking.LongLayout))
	fmt.Fprintf(w, "Tatkal opening today: travel on %s\n", tatkal.Format(booking.LongLayout))
	for _, h := range a.holidays.Between(today, today.AddDays(rules.AdvanceDays)) {
		fmt.Fprintf(w, "  %s  %s (%s)\n", h.Date.Format(booking.ShortLayout), h.Name, h.Category.Label())
	}
	return nil
}

func calendarCmd() *cobra.Command {
	var nowFlag string
	var picker, asJSON bool

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the overview calendar (or the date picker)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nowFlag, func(a *app) error {
				cal := a.ctrl.Overview()
				if picker {
					cal = a.ctrl.Picker()
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), cal)
				}
				printCalendar(cmd.OutOrStdout(), cal)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate at this IST time instead of now")
	cmd.Flags().BoolVar(&picker, "picker", false, "Print the travel-date picker range instead of the overview")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

var statusMarks = map[model.DayStatus]string{
	model.DayPast:         ".",
	model.DayTatkalWindow: "T",
	model.DayOpen:         "*",
	model.DayFuture:       " ",
}

func printCalendar(w io.Writer, cal model.Calendar) {
	if cal.Summary != "" {
		fmt.Fprintln(w, cal.Summary)
	}
	fmt.Fprintf(w, "%s to %s (%s)\n", cal.From, cal.To, cal.Mode)
	fmt.Fprintln(w, "Legend: . passed  T tatkal opens today  * open  H holiday  x disabled")
	for _, m := range cal.Months {
		fmt.Fprintf(w, "\n%s\n Sun  Mon  Tue  Wed  Thu  Fri  Sat\n", m.Name)
		for _, week := range m.Weeks() {
			var b strings.Builder
			for _, c := range week {
				if c.Empty {
					b.WriteString("     ")
					continue
				}
				mark := statusMarks[c.Status]
				switch {
				case c.Disabled:
					mark = "x"
				case c.Holiday != nil:
					mark = "H"
				}
				fmt.Fprintf(&b, " %3d%s", c.Day, mark)
			}
			fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
		}
	}
}

func countdownCmd() *cobra.Command {
	var nowFlag string
	var watch bool

	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Show time left until the next booking windows open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nowFlag, func(a *app) error {
				out := cmd.OutOrStdout()
				if !watch {
					printSnapshot(out, a.ctrl.Countdown())
					return nil
				}
				ctx, cancel := signalContext(cmd.Context())
				defer cancel()
				a.ctrl.OnTick(func(s countdown.Snapshot) { printSnapshot(out, s) })
				if err := a.ctrl.StartCountdown(); err != nil {
					return err
				}
				<-ctx.Done()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate at this IST time instead of now")
	cmd.Flags().BoolVar(&watch, "watch", false, "Refresh every second until interrupted")
	return cmd
}

func printSnapshot(w io.Writer, s countdown.Snapshot) {
	if s.Hidden {
		fmt.Fprintf(w, "%s  countdown hidden before %02d:00 IST\n", s.At.Format("15:04:05"), countdown.HideBeforeHour)
		return
	}
	for _, it := range s.Items {
		line := fmt.Sprintf("%-15s %s", it.Label, it.Clock())
		if it.State == countdown.StateWindowOpen {
			line = fmt.Sprintf("%-15s %s", it.Label, it.Message)
		}
		if it.TravelLabel != "" {
			line += "  for " + it.TravelLabel
		}
		if it.Urgent() {
			line += "  (hurry!)"
		}
		fmt.Fprintln(w, line)
	}
}

func reminderCmd() *cobra.Command {
	var nowFlag, outPath, inspect string

	cmd := &cobra.Command{
		Use:   "reminder [YYYY-MM-DD]",
		Short: "Write an .ics reminder for when booking opens, or inspect one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if inspect != "" {
				return inspectReminder(out, inspect)
			}
			if len(args) != 1 {
				return fmt.Errorf("a travel date is required")
			}
			d, err := civil.Parse(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, nowFlag, func(a *app) error {
				doc, err := a.ctrl.Reminder(d)
				if err != nil {
					return fmt.Errorf("%s: %w", d, err)
				}
				if outPath == "-" {
					_, err = io.WriteString(out, doc)
					return err
				}
				if err := os.WriteFile(outPath, []byte(doc), 0o644); err != nil {
					return err
				}
				p := a.ctrl.Share(d)
				fmt.Fprintln(out, share.ExportResult(nil).Message, outPath)
				fmt.Fprintf(out, "Google Calendar: %s\n", p.GoogleCalendarURL)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate at this IST time instead of now")
	cmd.Flags().StringVarP(&outPath, "out", "o", ics.FileName, `Output file ("-" for stdout)`)
	cmd.Flags().StringVar(&inspect, "inspect", "", "Parse an existing .ics file and print its event")
	return cmd
}

func inspectReminder(w io.Writer, path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	in, err := ics.Inspect(body)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Summary:  %s\n", in.Summary)
	fmt.Fprintf(w, "Start:    %s (%s)\n", in.Start.Format(time.RFC3339), in.StartTZ)
	fmt.Fprintf(w, "End:      %s (%s)\n", in.End.Format(time.RFC3339), in.EndTZ)
	fmt.Fprintf(w, "Location: %s\n", in.Location)
	fmt.Fprintf(w, "UID:      %s\n", in.UID)
	for _, al := range in.Alarms {
		fmt.Fprintf(w, "Alarm:    %s %s\n", al.Action, al.Trigger)
	}
	return nil
}

func chartCmd() *cobra.Command {
	var nowFlag, outPath string

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render the overview as an HTML bar chart of day statuses per month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, nowFlag, func(a *app) error {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := chart.Render(f, a.ctrl.Overview()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "chart written to", outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&nowFlag, "now", "", "Evaluate at this IST time instead of now")
	cmd.Flags().StringVarP(&outPath, "out", "o", "overview.html", "Output HTML file")
	return cmd
}

func themeCmd() *cobra.Command {
	var visitor string

	cmd := &cobra.Command{
		Use:   "theme [light|dark|toggle]",
		Short: "Show or change a visitor's stored theme",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, "", func(a *app) error {
				ctx := cmd.Context()
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					fmt.Fprintln(out, a.ctrl.Theme(ctx, visitor))
					return nil
				}
				t, err := setTheme(ctx, a.ctrl, visitor, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, t)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&visitor, "visitor", "cli", "Visitor id the preference is stored under")
	return cmd
}

func setTheme(ctx context.Context, c *controller.Controller, visitor, arg string) (preference.Theme, error) {
	if arg == "toggle" {
		res, err := c.Dispatch(ctx, controller.Event{Kind: controller.EventToggleTheme, Visitor: visitor})
		return res.Theme, err
	}
	t, err := preference.ParseTheme(arg)
	if err != nil {
		return "", err
	}
	return t, c.SetTheme(ctx, visitor, t)
}
