package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/queue.report/internal/enhance"
	"github.com/banshee-data/queue.report/internal/passage"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 5 * vg.Inch
)

func hourlyFactorsPlot(m *enhance.TimeOfDayModel) (*plot.Plot, error) {
	if !m.Trained() {
		return nil, fmt.Errorf("hourly factors plot: %w", enhance.ErrUntrained)
	}

	p := plot.New()
	p.Title.Text = "Time-of-day correction factors"
	p.X.Label.Text = "Hour"
	p.Y.Label.Text = "Actual / predicted"
	p.X.Min = 0
	p.X.Max = enhance.HoursPerDay - 1
	p.Add(plotter.NewGrid())

	for i, alg := range passage.Algorithms {
		pts := make(plotter.XYs, enhance.HoursPerDay)
		for h := range pts {
			pts[h] = plotter.XY{X: float64(h), Y: m.Factor(h, alg)}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(alg.String(), line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// PlotHourlyFactors saves the hourly factors as an image. The format
// follows the file extension (png, svg, pdf).
func PlotHourlyFactors(path string, m *enhance.TimeOfDayModel) error {
	p, err := hourlyFactorsPlot(m)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteHourlyFactorsPNG streams the hourly factors plot as PNG.
func WriteHourlyFactorsPNG(w io.Writer, m *enhance.TimeOfDayModel) error {
	p, err := hourlyFactorsPlot(m)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
