// Package render produces plots of light curves and pixel frames, as
// static PNG images (gonum/plot) and as interactive HTML charts
// (go-echarts).
package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/skywatch-data/lightcurve.report/internal/lightcurve"
	"github.com/skywatch-data/lightcurve.report/internal/tpf"
)

// CurvePlot builds a line plot of flux against time. Cadences with NaN
// flux are skipped.
func CurvePlot(lc *lightcurve.LightCurve, title string) (*plot.Plot, error) {
	if lc == nil || lc.Len() == 0 {
		return nil, fmt.Errorf("no light curve data to plot")
	}

	pts := make(plotter.XYs, 0, lc.Len())
	for i := range lc.Time {
		if math.IsNaN(lc.Flux[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: lc.Time[i], Y: lc.Flux[i]})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("all flux values are NaN")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = fmt.Sprintf("Time (%s)", lc.TimeScale)
	p.Y.Label.Text = "Flux (e-/s)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build flux line: %w", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Add(plotter.NewGrid())

	return p, nil
}

// WriteCurvePNG renders a light curve plot as PNG to w.
func WriteCurvePNG(w io.Writer, lc *lightcurve.LightCurve, title string) error {
	p, err := CurvePlot(lc, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render curve plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write curve plot: %w", err)
	}
	return nil
}

// SaveCurvePNG renders a light curve plot as PNG to a file.
func SaveCurvePNG(path string, lc *lightcurve.LightCurve, title string) error {
	p, err := CurvePlot(lc, title)
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save curve plot: %w", err)
	}
	return nil
}

// frameGrid adapts a pixel frame to the heat map grid interface.
// Uncollected pixels (NaN) render at the low end of the palette.
type frameGrid struct {
	f     tpf.Frame
	floor float64
}

func newFrameGrid(f tpf.Frame) frameGrid {
	floor := math.Inf(1)
	for _, v := range f.Pixels {
		fv := float64(v)
		if !math.IsNaN(fv) && fv < floor {
			floor = fv
		}
	}
	if math.IsInf(floor, 1) {
		floor = 0
	}
	return frameGrid{f: f, floor: floor}
}

func (g frameGrid) Dims() (c, r int) { return g.f.Cols, g.f.Rows }
func (g frameGrid) X(c int) float64  { return float64(c) }
func (g frameGrid) Y(r int) float64  { return float64(r) }

func (g frameGrid) Z(c, r int) float64 {
	v := float64(g.f.At(r, c))
	if math.IsNaN(v) {
		return g.floor
	}
	return v
}

// FramePlot builds a heat map of a single cadence frame, column index
// on X and row index on Y.
func FramePlot(fr tpf.Frame, title string) (*plot.Plot, error) {
	if len(fr.Pixels) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Column"
	p.Y.Label.Text = "Row"

	hm := plotter.NewHeatMap(newFrameGrid(fr), palette.Heat(16, 1))
	p.Add(hm)

	return p, nil
}

// WriteFramePNG renders a cadence frame heat map as PNG to w.
func WriteFramePNG(w io.Writer, fr tpf.Frame, title string) error {
	p, err := FramePlot(fr, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render frame plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write frame plot: %w", err)
	}
	return nil
}

// SaveFramePNG renders a cadence frame heat map as PNG to a file.
func SaveFramePNG(path string, fr tpf.Frame, title string) error {
	p, err := FramePlot(fr, title)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save frame plot: %w", err)
	}
	return nil
}
