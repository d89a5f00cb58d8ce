// Package report renders the fitted models, filter outcomes and accuracy
// summaries as go-echarts HTML pages and gonum/plot images.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/queue.report/internal/analysis"
	"github.com/banshee-data/queue.report/internal/enhance"
	"github.com/banshee-data/queue.report/internal/outlier"
	"github.com/banshee-data/queue.report/internal/passage"
	"github.com/banshee-data/queue.report/internal/units"
)

const (
	chartWidth  = "100%"
	chartHeight = "480px"
)

func hourLabels() []string {
	x := make([]string, enhance.HoursPerDay)
	for h := range x {
		x[h] = fmt.Sprintf("%02d:00", h)
	}
	return x
}

// HourlyFactorsChart builds a line per algorithm over the 24 hourly
// factors.
func HourlyFactorsChart(m *enhance.TimeOfDayModel) (*charts.Line, error) {
	if !m.Trained() {
		return nil, fmt.Errorf("hourly factors chart: %w", enhance.ErrUntrained)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Time-of-day factors", Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Time-of-day correction factors",
			Subtitle: fmt.Sprintf("records=%d hours with data=%d", m.TotalRecords, m.HoursWithData()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "hour", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "actual / predicted", NameLocation: "middle", NameGap: 40}),
	)

	line.SetXAxis(hourLabels())
	for _, alg := range passage.Algorithms {
		data := make([]opts.LineData, enhance.HoursPerDay)
		for h := range data {
			data[h] = opts.LineData{Value: m.Factor(h, alg)}
		}
		line.AddSeries(alg.String(), data)
	}
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}))
	return line, nil
}

// GrowthFactorsChart builds grouped bars of the per-state factors.
func GrowthFactorsChart(m *enhance.QueueGrowthModel) (*charts.Bar, error) {
	if !m.Trained() {
		return nil, fmt.Errorf("growth factors chart: %w", enhance.ErrUntrained)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Queue growth factors", Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Queue growth correction factors",
			Subtitle: fmt.Sprintf("window=%dmin windows=%d", m.WindowMinutes, m.TotalWindows),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	x := make([]string, len(enhance.States))
	for i, s := range enhance.States {
		x[i] = string(s)
	}
	bar.SetXAxis(x)
	for _, alg := range passage.Algorithms {
		data := make([]opts.BarData, len(enhance.States))
		for i, s := range enhance.States {
			data[i] = opts.BarData{Value: m.Factors[s][alg]}
		}
		bar.AddSeries(alg.String(), data)
	}
	return bar, nil
}

// ZoneErrorsChart builds grouped bars of per-zone MAE, converted to unit.
func ZoneErrorsChart(s *analysis.Summary, unit string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Zone errors", Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Mean absolute error by zone",
			Subtitle: fmt.Sprintf("records=%d", s.Analyzed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "zone", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "MAE " + units.Label(unit), NameLocation: "middle", NameGap: 40}),
	)

	x := make([]string, len(s.Zones))
	for i, z := range s.Zones {
		x[i] = strconv.Itoa(z)
	}
	bar.SetXAxis(x)
	for _, alg := range passage.Algorithms {
		data := make([]opts.BarData, len(s.Zones))
		for i, z := range s.Zones {
			data[i] = opts.BarData{Value: units.ConvertWait(s.ByZone[z].MAE[alg], unit)}
		}
		bar.AddSeries(alg.String(), data)
	}
	return bar
}

// FilterBreakdownChart builds stacked bars of filter outcomes per
// congestion level.
func FilterBreakdownChart(st outlier.Stats) *charts.Bar {
	byLevel := st.ByLevel()

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Outlier filter", Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Outlier filter outcomes by congestion level",
			Subtitle: fmt.Sprintf("total=%d removed=%d (%.1f%%)", st.TotalRecords, st.RemovedRecords, st.RemovalRatePct),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	x := make([]string, len(passage.CongestionLevels))
	kept := make([]opts.BarData, len(passage.CongestionLevels))
	stage1 := make([]opts.BarData, len(passage.CongestionLevels))
	stage2 := make([]opts.BarData, len(passage.CongestionLevels))
	for i, level := range passage.CongestionLevels {
		t := byLevel[level]
		x[i] = string(level)
		kept[i] = opts.BarData{Value: t.Kept}
		stage1[i] = opts.BarData{Value: t.RemovedStage1}
		stage2[i] = opts.BarData{Value: t.RemovedStage2}
	}

	bar.SetXAxis(x).
		AddSeries("kept", kept).
		AddSeries("removed (hard bounds)", stage1).
		AddSeries("removed (adaptive)", stage2)
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "outcome"}))
	return bar
}

// RenderHourlyFactors writes the hourly factor chart as a standalone page.
func RenderHourlyFactors(w io.Writer, m *enhance.TimeOfDayModel) error {
	line, err := HourlyFactorsChart(m)
	if err != nil {
		return err
	}
	return line.Render(w)
}

// RenderZoneErrors writes the per-zone MAE chart as a standalone page.
func RenderZoneErrors(w io.Writer, s *analysis.Summary, unit string) error {
	return ZoneErrorsChart(s, unit).Render(w)
}

// RenderFilterBreakdown writes the filter outcome chart as a standalone
// page.
func RenderFilterBreakdown(w io.Writer, st outlier.Stats) error {
	return FilterBreakdownChart(st).Render(w)
}

// Dashboard collects whichever inputs are available into one page.
type Dashboard struct {
	TimeOfDay *enhance.TimeOfDayModel
	Growth    *enhance.QueueGrowthModel
	Summary   *analysis.Summary
	Filter    *outlier.Stats
	Unit      string
}

// Render writes every chart the dashboard has data for. Untrained models
// are skipped.
func (d Dashboard) Render(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "queue.report"
	n := 0

	if line, err := HourlyFactorsChart(d.TimeOfDay); err == nil {
		page.AddCharts(line)
		n++
	}
	if bar, err := GrowthFactorsChart(d.Growth); err == nil {
		page.AddCharts(bar)
		n++
	}
	if d.Summary != nil {
		page.AddCharts(ZoneErrorsChart(d.Summary, d.Unit))
		n++
	}
	if d.Filter != nil {
		page.AddCharts(FilterBreakdownChart(*d.Filter))
		n++
	}
	if n == 0 {
		return fmt.Errorf("dashboard has nothing to render")
	}
	return page.Render(w)
}
