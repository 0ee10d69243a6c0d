// Package tpf models target pixel files: time-ordered stacks of small pixel
// stamps cut out around one target, plus the aperture mask used to turn them
// into a light curve.
package tpf

import (
	"fmt"
	"io"
	"math"

	"github.com/skywatch-data/lightcurve.report/internal/fits"
	"github.com/skywatch-data/lightcurve.report/internal/lightcurve"
	"github.com/skywatch-data/lightcurve.report/internal/units"
)

// Extension names carrying the pixel table in the products we read. Kepler
// and K2 products use TARGETTABLES; TESS products use PIXELS.
var pixelTableNames = []string{"TARGETTABLES", "PIXELS"}

// apertureExtName is the mask extension present in both product families.
const apertureExtName = "APERTURE"

// Aperture mask bits as stored in the APERTURE image extension
const (
	ApertureCollected = 1 << 0 // pixel was collected by the spacecraft
	AperturePipeline  = 1 << 1 // pixel is in the pipeline's optimal aperture
)

// TargetPixelFile is a fully loaded pixel-stamp stack. All per-cadence
// slices share indexing: Time(i), Flux(i) and Quality(i) describe the same
// exposure.
type TargetPixelFile struct {
	primary fits.Header
	table   fits.Header

	rows int
	cols int

	time    []float64
	cadence []int32
	quality []int32
	flux    [][]float32
	fluxErr [][]float32

	aperture *fits.Image
}

// PrimaryHeader returns the primary HDU header.
func (t *TargetPixelFile) PrimaryHeader() fits.Header {
	return t.primary
}

// ApertureAt returns the raw aperture bitmask for one pixel, or 0 when
// the file carries no aperture extension.
func (t *TargetPixelFile) ApertureAt(r, c int) int32 {
	if t.aperture == nil {
		return 0
	}
	return t.aperture.IntAt(r, c)
}

// Open loads a target pixel file from disk (plain or gzip-compressed).
func Open(path string) (*TargetPixelFile, error) {
	f, err := fits.Open(path)
	if err != nil {
		return nil, err
	}
	return FromFITS(f)
}

// Read loads a target pixel file from a stream.
func Read(r io.Reader) (*TargetPixelFile, error) {
	f, err := fits.Read(r)
	if err != nil {
		return nil, err
	}
	return FromFITS(f)
}

// FromFITS builds a TargetPixelFile from an already-parsed container.
func FromFITS(f *fits.File) (*TargetPixelFile, error) {
	var pixelHDU *fits.HDU
	for _, name := range pixelTableNames {
		if h := f.ByName(name); h != nil {
			pixelHDU = h
			break
		}
	}
	if pixelHDU == nil {
		return nil, fmt.Errorf("no pixel table extension found (looked for %v)", pixelTableNames)
	}

	table, err := fits.NewTable(pixelHDU)
	if err != nil {
		return nil, fmt.Errorf("failed to read pixel table: %v", err)
	}

	t := &TargetPixelFile{
		primary: f.Primary().Header,
		table:   pixelHDU.Header,
	}

	if t.time, err = table.Float64Col("TIME"); err != nil {
		return nil, fmt.Errorf("failed to read time axis: %v", err)
	}
	if t.flux, err = table.Float32Array("FLUX"); err != nil {
		return nil, fmt.Errorf("failed to read flux stamps: %v", err)
	}
	// optional columns: some exports omit them
	t.cadence, _ = table.Int32Col("CADENCENO")
	t.quality, _ = table.Int32Col("QUALITY")
	t.fluxErr, _ = table.Float32Array("FLUX_ERR")

	fluxCol, _ := table.Column("FLUX")
	if len(fluxCol.Dims) == 2 {
		t.cols, t.rows = fluxCol.Dims[0], fluxCol.Dims[1]
	}

	if h := f.ByName(apertureExtName); h != nil {
		im, err := fits.ReadImage(h)
		if err != nil {
			return nil, fmt.Errorf("failed to read aperture mask: %v", err)
		}
		t.aperture = im
		if t.rows == 0 {
			t.rows, t.cols = im.Rows, im.Cols
		}
	}

	if t.rows == 0 || t.cols == 0 {
		return nil, fmt.Errorf("cannot determine stamp shape: no TDIM on FLUX and no aperture extension")
	}
	if len(t.flux) == 0 {
		return nil, fmt.Errorf("pixel table has no cadences")
	}
	if t.rows*t.cols != len(t.flux[0]) {
		return nil, fmt.Errorf("stamp shape %dx%d does not match flux array length %d",
			t.rows, t.cols, len(t.flux[0]))
	}
	if t.aperture != nil && (t.aperture.Rows != t.rows || t.aperture.Cols != t.cols) {
		return nil, fmt.Errorf("aperture shape %dx%d does not match stamp shape %dx%d",
			t.aperture.Rows, t.aperture.Cols, t.rows, t.cols)
	}
	return t, nil
}

// NCadences returns the number of frames in the stack.
func (t *TargetPixelFile) NCadences() int {
	return len(t.time)
}

// Shape returns the stamp dimensions as (rows, cols).
func (t *TargetPixelFile) Shape() (int, int) {
	return t.rows, t.cols
}

// Time returns the timestamp of cadence i on the mission's native scale.
func (t *TargetPixelFile) Time(i int) float64 {
	return t.time[i]
}

// Cadence returns the cadence number of frame i, or -1 when the file does
// not carry cadence numbers.
func (t *TargetPixelFile) Cadence(i int) int32 {
	if t.cadence == nil {
		return -1
	}
	return t.cadence[i]
}

// Quality returns the quality bitfield of frame i (0 when absent).
func (t *TargetPixelFile) Quality(i int) int32 {
	if t.quality == nil {
		return 0
	}
	return t.quality[i]
}

// Flux returns the pixel stamp of cadence i.
func (t *TargetPixelFile) Flux(i int) Frame {
	return Frame{Rows: t.rows, Cols: t.cols, Pixels: t.flux[i]}
}

// FluxErr returns the per-pixel uncertainties of cadence i, or a zero-size
// frame when the file carries none.
func (t *TargetPixelFile) FluxErr(i int) Frame {
	if t.fluxErr == nil {
		return Frame{}
	}
	return Frame{Rows: t.rows, Cols: t.cols, Pixels: t.fluxErr[i]}
}

// Object returns the catalog name of the observed target.
func (t *TargetPixelFile) Object() string {
	return t.primary.StrDefault("OBJECT", "")
}

// Mission returns the TELESCOP header value.
func (t *TargetPixelFile) Mission() string {
	return t.primary.StrDefault("TELESCOP", "")
}

// ObservingPeriod returns the mission's observation segment number: QUARTER
// for Kepler, SECTOR for TESS, CAMPAIGN for K2. Returns -1 when none is
// recorded.
func (t *TargetPixelFile) ObservingPeriod() int {
	for _, key := range []string{"QUARTER", "SECTOR", "CAMPAIGN"} {
		if t.primary.Has(key) {
			return int(t.primary.IntDefault(key, -1))
		}
	}
	return -1
}

// RADec returns the catalog right ascension and declination in degrees, or
// NaNs when unrecorded.
func (t *TargetPixelFile) RADec() (float64, float64) {
	return t.primary.FloatDefault("RA_OBJ", math.NaN()),
		t.primary.FloatDefault("DEC_OBJ", math.NaN())
}

// TimeScale returns the time scale of the time axis, inferred from the
// mission: BKJD for Kepler/K2, BTJD for TESS, JD otherwise.
func (t *TargetPixelFile) TimeScale() string {
	switch t.Mission() {
	case "Kepler", "K2":
		return units.BKJD
	case "TESS":
		return units.BTJD
	}
	return units.JD
}

// ExtractLightCurve performs aperture photometry: for each cadence not
// excluded by qualityBitmask, sum the masked pixels into one flux value, with
// errors combined in quadrature. NaN pixels are skipped; cadences whose
// timestamp is NaN or whose mask holds no finite pixel are dropped.
func (t *TargetPixelFile) ExtractLightCurve(mask Mask, qualityBitmask int32) (*lightcurve.LightCurve, error) {
	if mask.Rows != t.rows || mask.Cols != t.cols {
		return nil, fmt.Errorf("mask shape %dx%d does not match stamp shape %dx%d",
			mask.Rows, mask.Cols, t.rows, t.cols)
	}
	if mask.CountSelected() == 0 {
		return nil, fmt.Errorf("aperture mask selects no pixels")
	}

	lc := &lightcurve.LightCurve{TimeScale: t.TimeScale()}
	for i := 0; i < t.NCadences(); i++ {
		if math.IsNaN(t.time[i]) {
			continue
		}
		if q := t.Quality(i); q&qualityBitmask != 0 {
			continue
		}

		var sum, errSq float64
		finite := 0
		for p := 0; p < t.rows*t.cols; p++ {
			if !mask.Selected[p] {
				continue
			}
			v := float64(t.flux[i][p])
			if math.IsNaN(v) {
				continue
			}
			sum += v
			finite++
			if t.fluxErr != nil {
				e := float64(t.fluxErr[i][p])
				if !math.IsNaN(e) {
					errSq += e * e
				}
			}
		}
		if finite == 0 {
			continue
		}

		lc.Time = append(lc.Time, t.time[i])
		lc.Flux = append(lc.Flux, sum)
		if t.fluxErr != nil {
			lc.FluxErr = append(lc.FluxErr, math.Sqrt(errSq))
		}
		if t.cadence != nil {
			lc.Cadence = append(lc.Cadence, t.cadence[i])
		}
		if t.quality != nil {
			lc.Quality = append(lc.Quality, t.quality[i])
		}
	}

	if lc.Len() == 0 {
		return nil, fmt.Errorf("no usable cadences after quality and NaN filtering")
	}
	return lc, nil
}
