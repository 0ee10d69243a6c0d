package tpf

// Quality flag bits recorded per cadence. These follow the Kepler/TESS
// pipeline bit assignments for the conditions that matter to photometry.
const (
	QualityAttitudeTweak   int32 = 1 << 0
	QualitySafeMode        int32 = 1 << 1
	QualityCoarsePoint     int32 = 1 << 2
	QualityEarthPoint      int32 = 1 << 3
	QualityZeroCrossing    int32 = 1 << 4
	QualityDesat           int32 = 1 << 5
	QualityArgabrightening int32 = 1 << 6
	QualityCosmicRay       int32 = 1 << 7
	QualityManualExclude   int32 = 1 << 8
)

// Named quality bitmask presets accepted by the API and CLI tools.
const (
	// QualityNone retains every cadence.
	QualityNone int32 = 0
	// QualityDefault drops cadences taken during spacecraft events that
	// corrupt photometry outright.
	QualityDefault = QualityAttitudeTweak | QualitySafeMode | QualityCoarsePoint |
		QualityEarthPoint | QualityDesat | QualityManualExclude
	// QualityHard additionally drops cadences with cosmic ray hits and
	// argabrightening events in the aperture.
	QualityHard = QualityDefault | QualityZeroCrossing | QualityArgabrightening |
		QualityCosmicRay
)

// QualityMaskByName maps the CLI/API preset names to bitmasks. Unknown names
// report false.
func QualityMaskByName(name string) (int32, bool) {
	switch name {
	case "none":
		return QualityNone, true
	case "default", "":
		return QualityDefault, true
	case "hard":
		return QualityHard, true
	}
	return 0, false
}
