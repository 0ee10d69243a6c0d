package render

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/skywatch-data/lightcurve.report/internal/lightcurve"
	"github.com/skywatch-data/lightcurve.report/internal/tpf"
)

func testCurve() *lightcurve.LightCurve {
	return &lightcurve.LightCurve{
		Time:      []float64{100, 101, 102, 103},
		Flux:      []float64{1000, 1010, math.NaN(), 990},
		FluxErr:   []float64{10, 10, 10, 10},
		TimeScale: "bkjd",
	}
}

func testFrame() tpf.Frame {
	return tpf.Frame{
		Rows:   2,
		Cols:   3,
		Pixels: []float32{10, 500, 480, 20, 15, float32(math.NaN())},
	}
}

func TestCurvePlot(t *testing.T) {
	p, err := CurvePlot(testCurve(), "test target")
	if err != nil {
		t.Fatalf("CurvePlot returned error: %v", err)
	}
	if p.Title.Text != "test target" {
		t.Errorf("expected title %q, got %q", "test target", p.Title.Text)
	}
	if !strings.Contains(p.X.Label.Text, "bkjd") {
		t.Errorf("expected X label to name the time scale, got %q", p.X.Label.Text)
	}
}

func TestCurvePlotErrors(t *testing.T) {
	if _, err := CurvePlot(nil, "t"); err == nil {
		t.Error("expected error for nil curve")
	}
	if _, err := CurvePlot(&lightcurve.LightCurve{}, "t"); err == nil {
		t.Error("expected error for empty curve")
	}
	allNaN := &lightcurve.LightCurve{
		Time: []float64{1, 2},
		Flux: []float64{math.NaN(), math.NaN()},
	}
	if _, err := CurvePlot(allNaN, "t"); err == nil {
		t.Error("expected error for all-NaN flux")
	}
}

func TestWriteCurvePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCurvePNG(&buf, testCurve(), "test target"); err != nil {
		t.Fatalf("WriteCurvePNG returned error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output does not start with PNG magic bytes")
	}
}

func TestWriteFramePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFramePNG(&buf, testFrame(), "frame 0"); err != nil {
		t.Fatalf("WriteFramePNG returned error: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output does not start with PNG magic bytes")
	}
}

func TestFramePlotEmpty(t *testing.T) {
	if _, err := FramePlot(tpf.Frame{}, "t"); err == nil {
		t.Error("expected error for empty frame")
	}
}

func TestFrameGridFloor(t *testing.T) {
	g := newFrameGrid(testFrame())

	c, r := g.Dims()
	if c != 3 || r != 2 {
		t.Errorf("expected dims (3,2), got (%d,%d)", c, r)
	}
	// NaN pixel at row 1, col 2 maps to the frame minimum.
	if got := g.Z(2, 1); got != 10 {
		t.Errorf("expected NaN pixel to map to floor 10, got %v", got)
	}
	if got := g.Z(1, 0); got != 500 {
		t.Errorf("expected Z(1,0)=500, got %v", got)
	}
}

func TestCurveChart(t *testing.T) {
	line, err := CurveChart(testCurve(), "test target")
	if err != nil {
		t.Fatalf("CurveChart returned error: %v", err)
	}
	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "echarts") {
		t.Error("rendered chart does not reference echarts")
	}
	if !strings.Contains(html, "test target") {
		t.Error("rendered chart does not contain the title")
	}
}

func TestFrameChart(t *testing.T) {
	scatter, err := FrameChart(testFrame(), "frame 0")
	if err != nil {
		t.Fatalf("FrameChart returned error: %v", err)
	}
	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "echarts") {
		t.Error("rendered chart does not reference echarts")
	}
}

func TestFrameChartAllNaN(t *testing.T) {
	nan := float32(math.NaN())
	fr := tpf.Frame{Rows: 1, Cols: 2, Pixels: []float32{nan, nan}}
	if _, err := FrameChart(fr, "t"); err == nil {
		t.Error("expected error for all-NaN frame")
	}
}

func TestWriteCurveHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCurveHTML(&buf, testCurve(), "test target"); err != nil {
		t.Fatalf("WriteCurveHTML returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "<html") {
		t.Error("expected an HTML document")
	}
}

func TestWriteTargetHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTargetHTML(&buf, testFrame(), testCurve(), "test target"); err != nil {
		t.Fatalf("WriteTargetHTML returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "<html") {
		t.Error("expected an HTML document")
	}
}
