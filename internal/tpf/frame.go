package tpf

import (
	"math"
	"sort"
)

// Frame is one pixel stamp, stored row-major.
type Frame struct {
	Rows   int
	Cols   int
	Pixels []float32
}

// At returns the pixel at row r, column c.
func (f Frame) At(r, c int) float32 {
	return f.Pixels[r*f.Cols+c]
}

// IsZero reports whether the frame carries no data.
func (f Frame) IsZero() bool {
	return len(f.Pixels) == 0
}

// Mask selects the stamp pixels summed during photometry.
type Mask struct {
	Rows     int
	Cols     int
	Selected []bool
}

// At reports whether the pixel at row r, column c is selected.
func (m Mask) At(r, c int) bool {
	return m.Selected[r*m.Cols+c]
}

// CountSelected returns the number of selected pixels.
func (m Mask) CountSelected() int {
	n := 0
	for _, s := range m.Selected {
		if s {
			n++
		}
	}
	return n
}

// PipelineAperture returns the mask of pixels flagged by the pipeline's
// optimal aperture bit. Returns an error-free all-false mask when the file
// has no aperture extension.
func (t *TargetPixelFile) PipelineAperture() Mask {
	m := Mask{Rows: t.rows, Cols: t.cols, Selected: make([]bool, t.rows*t.cols)}
	if t.aperture == nil {
		return m
	}
	for r := 0; r < t.rows; r++ {
		for c := 0; c < t.cols; c++ {
			m.Selected[r*t.cols+c] = t.aperture.IntAt(r, c)&AperturePipeline != 0
		}
	}
	return m
}

// AllPixels returns a mask selecting every pixel in the stamp.
func (t *TargetPixelFile) AllPixels() Mask {
	m := Mask{Rows: t.rows, Cols: t.cols, Selected: make([]bool, t.rows*t.cols)}
	for i := range m.Selected {
		m.Selected[i] = true
	}
	return m
}

// MedianFrame computes the per-pixel median over all cadences, skipping NaN
// samples. Pixels that are NaN in every cadence stay NaN.
func (t *TargetPixelFile) MedianFrame() Frame {
	n := t.rows * t.cols
	out := Frame{Rows: t.rows, Cols: t.cols, Pixels: make([]float32, n)}
	samples := make([]float64, 0, t.NCadences())
	for p := 0; p < n; p++ {
		samples = samples[:0]
		for i := range t.flux {
			v := float64(t.flux[i][p])
			if !math.IsNaN(v) {
				samples = append(samples, v)
			}
		}
		if len(samples) == 0 {
			out.Pixels[p] = float32(math.NaN())
			continue
		}
		sort.Float64s(samples)
		mid := len(samples) / 2
		if len(samples)%2 == 1 {
			out.Pixels[p] = float32(samples[mid])
		} else {
			out.Pixels[p] = float32((samples[mid-1] + samples[mid]) / 2)
		}
	}
	return out
}

// ThresholdAperture selects pixels whose median flux exceeds the overall
// median by sigma robust standard deviations (1.4826 * MAD). This mirrors the
// usual fallback when the pipeline aperture is too aggressive or absent.
func (t *TargetPixelFile) ThresholdAperture(sigma float64) Mask {
	med := t.MedianFrame()

	finite := make([]float64, 0, len(med.Pixels))
	for _, v := range med.Pixels {
		if !math.IsNaN(float64(v)) {
			finite = append(finite, float64(v))
		}
	}
	m := Mask{Rows: t.rows, Cols: t.cols, Selected: make([]bool, t.rows*t.cols)}
	if len(finite) == 0 {
		return m
	}

	sort.Float64s(finite)
	overall := quantile(finite, 0.5)
	dev := make([]float64, len(finite))
	for i, v := range finite {
		dev[i] = math.Abs(v - overall)
	}
	sort.Float64s(dev)
	mad := quantile(dev, 0.5)
	cutoff := overall + sigma*1.4826*mad

	for p, v := range med.Pixels {
		f := float64(v)
		m.Selected[p] = !math.IsNaN(f) && f > cutoff
	}
	return m
}

// quantile interpolates the q-quantile of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
