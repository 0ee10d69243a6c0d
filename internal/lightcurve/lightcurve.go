// Package lightcurve holds time-series brightness data extracted from pixel
// stamps and the standard operations on it: normalization, binning,
// detrending, and phase folding.
package lightcurve

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/skywatch-data/lightcurve.report/internal/units"
)

// LightCurve is one brightness measurement per retained cadence. All slices
// have equal length. Time values are on TimeScale (BKJD for Kepler products,
// BTJD for TESS).
type LightCurve struct {
	Time      []float64
	Flux      []float64
	FluxErr   []float64
	Cadence   []int32
	Quality   []int32
	TimeScale string
}

// Len returns the number of cadences.
func (lc *LightCurve) Len() int {
	return len(lc.Time)
}

// Validate checks the parallel slices are consistent.
func (lc *LightCurve) Validate() error {
	n := len(lc.Time)
	if len(lc.Flux) != n {
		return fmt.Errorf("flux length %d does not match time length %d", len(lc.Flux), n)
	}
	if lc.FluxErr != nil && len(lc.FluxErr) != n {
		return fmt.Errorf("flux_err length %d does not match time length %d", len(lc.FluxErr), n)
	}
	if lc.Cadence != nil && len(lc.Cadence) != n {
		return fmt.Errorf("cadence length %d does not match time length %d", len(lc.Cadence), n)
	}
	if lc.Quality != nil && len(lc.Quality) != n {
		return fmt.Errorf("quality length %d does not match time length %d", len(lc.Quality), n)
	}
	return nil
}

// clone copies the curve so operations never mutate their receiver.
func (lc *LightCurve) clone() *LightCurve {
	out := &LightCurve{TimeScale: lc.TimeScale}
	out.Time = append([]float64(nil), lc.Time...)
	out.Flux = append([]float64(nil), lc.Flux...)
	if lc.FluxErr != nil {
		out.FluxErr = append([]float64(nil), lc.FluxErr...)
	}
	if lc.Cadence != nil {
		out.Cadence = append([]int32(nil), lc.Cadence...)
	}
	if lc.Quality != nil {
		out.Quality = append([]int32(nil), lc.Quality...)
	}
	return out
}

// Normalize divides flux and flux error by the median flux, so the curve
// scatters around unity. Returns an error when the median is not positive.
func (lc *LightCurve) Normalize() (*LightCurve, error) {
	med := median(lc.Flux)
	if !(med > 0) {
		return nil, fmt.Errorf("cannot normalize: median flux %f is not positive", med)
	}
	out := lc.clone()
	for i := range out.Flux {
		out.Flux[i] /= med
		if out.FluxErr != nil {
			out.FluxErr[i] /= med
		}
	}
	return out, nil
}

// Bin groups consecutive cadences into chunks of size n and averages each
// chunk. Errors combine in quadrature. A short final chunk is kept.
func (lc *LightCurve) Bin(n int) (*LightCurve, error) {
	if n < 1 {
		return nil, fmt.Errorf("bin size must be >= 1, got %d", n)
	}
	out := &LightCurve{TimeScale: lc.TimeScale}
	for start := 0; start < lc.Len(); start += n {
		end := start + n
		if end > lc.Len() {
			end = lc.Len()
		}
		m := float64(end - start)
		out.Time = append(out.Time, stat.Mean(lc.Time[start:end], nil))
		out.Flux = append(out.Flux, stat.Mean(lc.Flux[start:end], nil))
		if lc.FluxErr != nil {
			var sumSq float64
			for _, e := range lc.FluxErr[start:end] {
				sumSq += e * e
			}
			out.FluxErr = append(out.FluxErr, math.Sqrt(sumSq)/m)
		}
	}
	return out, nil
}

// Flatten removes low-frequency trends by dividing flux through a running
// median of the given window (in cadences). The window is clamped at the
// series edges. Windows of 2 or less leave the curve unchanged aside from
// normalization by each point's own neighborhood.
func (lc *LightCurve) Flatten(window int) (*LightCurve, error) {
	if window < 1 {
		return nil, fmt.Errorf("flatten window must be >= 1, got %d", window)
	}
	out := lc.clone()
	half := window / 2
	buf := make([]float64, 0, window)
	for i := range lc.Flux {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half + 1
		if hi > lc.Len() {
			hi = lc.Len()
		}
		buf = append(buf[:0], lc.Flux[lo:hi]...)
		trend := median(buf)
		if trend == 0 {
			return nil, fmt.Errorf("flatten failed: zero running median at index %d", i)
		}
		out.Flux[i] = lc.Flux[i] / trend
		if out.FluxErr != nil {
			out.FluxErr[i] = lc.FluxErr[i] / math.Abs(trend)
		}
	}
	return out, nil
}

// Fold phases the curve on the given period and epoch. Time becomes phase in
// days over [-period/2, period/2), sorted ascending. Cadence and quality
// follow their measurements through the reorder.
func (lc *LightCurve) Fold(period, epoch float64) (*LightCurve, error) {
	if !(period > 0) {
		return nil, fmt.Errorf("fold period must be positive, got %f", period)
	}
	out := lc.clone()
	for i, t := range out.Time {
		phase := math.Mod(t-epoch, period)
		if phase < -period/2 {
			phase += period
		} else if phase >= period/2 {
			phase -= period
		}
		out.Time[i] = phase
	}

	idx := make([]int, out.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return out.Time[idx[a]] < out.Time[idx[b]] })

	folded := &LightCurve{TimeScale: "phase"}
	for _, i := range idx {
		folded.Time = append(folded.Time, out.Time[i])
		folded.Flux = append(folded.Flux, out.Flux[i])
		if out.FluxErr != nil {
			folded.FluxErr = append(folded.FluxErr, out.FluxErr[i])
		}
		if out.Cadence != nil {
			folded.Cadence = append(folded.Cadence, out.Cadence[i])
		}
		if out.Quality != nil {
			folded.Quality = append(folded.Quality, out.Quality[i])
		}
	}
	return folded, nil
}

// ConvertTimeScale rebases the time axis onto another scale.
func (lc *LightCurve) ConvertTimeScale(toScale string) (*LightCurve, error) {
	if !units.IsValid(toScale) {
		return nil, fmt.Errorf("invalid time scale %q (valid: %s)", toScale, units.GetValidScalesString())
	}
	if !units.IsValid(lc.TimeScale) {
		return nil, fmt.Errorf("curve has no convertible time scale (%q)", lc.TimeScale)
	}
	out := lc.clone()
	for i, t := range out.Time {
		out.Time[i] = units.ConvertTime(t, lc.TimeScale, toScale)
	}
	out.TimeScale = toScale
	return out, nil
}

// WriteCSV writes the curve as time,flux,flux_err,cadence,quality rows with a
// header line.
func (lc *LightCurve) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "flux", "flux_err", "cadence", "quality"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}
	for i := 0; i < lc.Len(); i++ {
		rec := []string{
			strconv.FormatFloat(lc.Time[i], 'f', -1, 64),
			strconv.FormatFloat(lc.Flux[i], 'f', -1, 64),
			"", "", "",
		}
		if lc.FluxErr != nil {
			rec[2] = strconv.FormatFloat(lc.FluxErr[i], 'f', -1, 64)
		}
		if lc.Cadence != nil {
			rec[3] = strconv.FormatInt(int64(lc.Cadence[i]), 10)
		}
		if lc.Quality != nil {
			rec[4] = strconv.FormatInt(int64(lc.Quality[i]), 10)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %v", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// median returns the median of values without mutating the input.
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
