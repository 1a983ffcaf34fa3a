// Package chart renders the overview calendar as a stacked bar chart of
// day statuses per month.
package chart

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"railbook/internal/model"
)

type series struct {
	status model.DayStatus
	name   string
	color  string
}

// Order is bottom-to-top in the stack.
var statusSeries = []series{
	{model.DayPast, "Passed", "#9ca3af"},
	{model.DayTatkalWindow, "Tatkal window", "#f59e0b"},
	{model.DayOpen, "Booking open", "#10b981"},
	{model.DayFuture, "Opens later", "#6366f1"},
}

// Overview builds the chart for cal. Holidays form a separate, unstacked
// series.
func Overview(cal model.Calendar) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Booking overview",
			Width:     "900px",
			Height:    "420px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Travel days by booking status",
			Subtitle: cal.Summary,
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)

	names := make([]string, 0, len(cal.Months))
	for _, m := range cal.Months {
		names = append(names, m.Name)
	}
	bar.SetXAxis(names)

	for _, s := range statusSeries {
		data := make([]opts.BarData, 0, len(cal.Months))
		for _, m := range cal.Months {
			data = append(data, opts.BarData{Value: m.Counts()[s.status]})
		}
		bar.AddSeries(s.name, data,
			charts.WithBarChartOpts(opts.BarChart{Stack: "days"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: s.color}),
		)
	}

	holidays := make([]opts.BarData, 0, len(cal.Months))
	for _, m := range cal.Months {
		n := 0
		for _, c := range m.Cells {
			if c.Holiday != nil {
				n++
			}
		}
		holidays = append(holidays, opts.BarData{Value: n})
	}
	bar.AddSeries("Holidays", holidays, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ef4444"}))

	return bar
}

// Render writes the chart as a standalone HTML page.
func Render(w io.Writer, cal model.Calendar) error {
	return Overview(cal).Render(w)
}
