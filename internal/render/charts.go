package render

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/skywatch-data/lightcurve.report/internal/lightcurve"
	"github.com/skywatch-data/lightcurve.report/internal/tpf"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridisColors is the colour ramp used by visual maps on pixel charts.
var viridisColors = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// CurveChart builds an interactive line chart of flux against time.
// Cadences with NaN flux are skipped.
func CurveChart(lc *lightcurve.LightCurve, title string) (*charts.Line, error) {
	if lc == nil || lc.Len() == 0 {
		return nil, fmt.Errorf("no light curve data to chart")
	}

	x := make([]string, 0, lc.Len())
	y := make([]opts.LineData, 0, lc.Len())
	for i := range lc.Time {
		if math.IsNaN(lc.Flux[i]) {
			continue
		}
		x = append(x, fmt.Sprintf("%.5f", lc.Time[i]))
		y = append(y, opts.LineData{Value: lc.Flux[i]})
	}
	if len(y) == 0 {
		return nil, fmt.Errorf("all flux values are NaN")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "1200px", Height: "600px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("cadences=%d scale=%s", len(y), lc.TimeScale)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: fmt.Sprintf("Time (%s)", lc.TimeScale), NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Flux (e-/s)", NameLocation: "middle", NameGap: 50, Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x).
		AddSeries("flux", y,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		)

	return line, nil
}

// FrameChart builds an interactive pixel view of a single cadence frame
// as a scatter of pixel centres coloured by flux.
func FrameChart(fr tpf.Frame, title string) (*charts.Scatter, error) {
	if len(fr.Pixels) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	data := make([]opts.ScatterData, 0, fr.Rows*fr.Cols)
	maxFlux := 0.0
	for r := 0; r < fr.Rows; r++ {
		for c := 0; c < fr.Cols; c++ {
			v := float64(fr.At(r, c))
			if math.IsNaN(v) {
				continue
			}
			if v > maxFlux {
				maxFlux = v
			}
			data = append(data, opts.ScatterData{Value: []interface{}{c, r, v}})
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("all pixels are NaN")
	}
	if maxFlux == 0 {
		maxFlux = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "700px", Height: "700px", AssetsHost: echartsAssetsPrefix}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("shape=%dx%d", fr.Rows, fr.Cols)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -1, Max: fr.Cols, Name: "Column", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -1, Max: fr.Rows, Name: "Row", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxFlux),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: viridisColors},
		}),
	)
	scatter.AddSeries("flux", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 28}))

	return scatter, nil
}

// WriteCurveHTML renders a standalone HTML page with the light curve chart.
func WriteCurveHTML(w io.Writer, lc *lightcurve.LightCurve, title string) error {
	line, err := CurveChart(lc, title)
	if err != nil {
		return err
	}
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render curve page: %w", err)
	}
	return nil
}

// WriteFrameHTML renders a standalone HTML page with the pixel frame chart.
func WriteFrameHTML(w io.Writer, fr tpf.Frame, title string) error {
	scatter, err := FrameChart(fr, title)
	if err != nil {
		return err
	}
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(scatter)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render frame page: %w", err)
	}
	return nil
}

// WriteTargetHTML renders a combined page with the pixel frame and light
// curve for one target.
func WriteTargetHTML(w io.Writer, fr tpf.Frame, lc *lightcurve.LightCurve, title string) error {
	scatter, err := FrameChart(fr, title+" - median frame")
	if err != nil {
		return err
	}
	line, err := CurveChart(lc, title+" - light curve")
	if err != nil {
		return err
	}
	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsPrefix)
	page.AddCharts(scatter, line)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("failed to render target page: %w", err)
	}
	return nil
}
