package lightcurve

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary collects the standard per-curve statistics served by the API and
// printed by the inspection tooling.
type Summary struct {
	Cadences int     `json:"cadences"`
	TimeMin  float64 `json:"time_min"`
	TimeMax  float64 `json:"time_max"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	MAD      float64 `json:"mad"`
	// Scatter is the median absolute point-to-point difference of normalized
	// flux, in parts per million. A rough precision figure in the spirit of
	// CDPP without the transit-duration weighting.
	Scatter float64 `json:"scatter_ppm"`
}

// Stats computes summary statistics. Returns a zero Summary for an empty
// curve.
func (lc *LightCurve) Stats() Summary {
	if lc.Len() == 0 {
		return Summary{}
	}

	s := Summary{
		Cadences: lc.Len(),
		TimeMin:  floats.Min(lc.Time),
		TimeMax:  floats.Max(lc.Time),
		Mean:     stat.Mean(lc.Flux, nil),
		Median:   median(lc.Flux),
	}
	if lc.Len() > 1 {
		s.StdDev = stat.StdDev(lc.Flux, nil)
	}

	// median absolute deviation about the median
	dev := make([]float64, lc.Len())
	for i, f := range lc.Flux {
		dev[i] = math.Abs(f - s.Median)
	}
	s.MAD = median(dev)

	if lc.Len() > 1 && s.Median > 0 {
		diffs := make([]float64, 0, lc.Len()-1)
		for i := 1; i < lc.Len(); i++ {
			diffs = append(diffs, math.Abs(lc.Flux[i]-lc.Flux[i-1])/s.Median)
		}
		s.Scatter = median(diffs) * 1e6
	}
	return s
}
