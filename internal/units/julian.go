package units

import (
	"math"
	"time"
)

// UnixEpochJD is the Julian Date of the Unix epoch (1970-01-01T00:00:00 UTC).
const UnixEpochJD = 2440587.5

// secondsPerDay is used when converting fractional Julian days to wall time.
const secondsPerDay = 86400.0

// JDToTime converts a Julian Date to a time.Time in UTC.
func JDToTime(jd float64) time.Time {
	seconds := (jd - UnixEpochJD) * secondsPerDay
	sec, frac := math.Modf(seconds)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// TimeToJD converts a time.Time to a Julian Date.
func TimeToJD(t time.Time) float64 {
	return UnixEpochJD + float64(t.UnixNano())/1e9/secondsPerDay
}

// FluxToMagnitude converts a flux measurement to a magnitude relative to the
// given zero-point flux. Returns NaN for non-positive inputs since the
// logarithm is undefined there.
func FluxToMagnitude(flux, zeroPoint float64) float64 {
	if flux <= 0 || zeroPoint <= 0 {
		return math.NaN()
	}
	return -2.5 * math.Log10(flux/zeroPoint)
}

// RelativeToPPM converts a normalized (median-divided) flux value to
// parts-per-million deviation from unity.
func RelativeToPPM(normalized float64) float64 {
	return (normalized - 1.0) * 1e6
}
