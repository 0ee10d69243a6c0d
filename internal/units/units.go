// Package units provides shared constants and validation for time scales
// used on light-curve time axes.
package units

// Time scale constants
const (
	JD   = "jd"   // Julian Date
	MJD  = "mjd"  // Modified Julian Date (JD - 2400000.5)
	BKJD = "bkjd" // Barycentric Kepler Julian Date (JD - 2454833.0)
	BTJD = "btjd" // Barycentric TESS Julian Date (JD - 2457000.0)
)

// ValidScales contains all valid time scale values
var ValidScales = []string{JD, MJD, BKJD, BTJD}

// Offsets from Julian Date for each scale. A value on a scale equals
// JD minus its offset.
var scaleOffsets = map[string]float64{
	JD:   0,
	MJD:  2400000.5,
	BKJD: 2454833.0,
	BTJD: 2457000.0,
}

// IsValid checks if the given scale is in the list of valid time scales
func IsValid(scale string) bool {
	for _, validScale := range ValidScales {
		if scale == validScale {
			return true
		}
	}
	return false
}

// GetValidScalesString returns a comma-separated string of valid scales for error messages
func GetValidScalesString() string {
	return "jd, mjd, bkjd, btjd"
}

// ConvertTime converts a time value between two scales. Unknown scales are
// treated as Julian Date, matching the archive's native convention.
func ConvertTime(value float64, fromScale, toScale string) float64 {
	fromOffset, ok := scaleOffsets[fromScale]
	if !ok {
		fromOffset = 0
	}
	toOffset, ok := scaleOffsets[toScale]
	if !ok {
		toOffset = 0
	}
	return value + fromOffset - toOffset
}
