package testutil

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"math"
)

// TPFSpec describes a synthetic target pixel file. Zero-valued optional
// fields are filled in by BuildTPF: sequential cadence numbers, zero quality
// flags, unit flux errors, and an all-pixels aperture.
type TPFSpec struct {
	Object  string
	Mission string // TELESCOP value, e.g. "Kepler" or "TESS"
	Quarter int
	Rows    int
	Cols    int

	Time     []float64
	Cadence  []int32
	Quality  []int32
	Flux     [][]float32 // one Rows*Cols stamp per cadence, row-major
	FluxErr  [][]float32
	Aperture []int32 // Rows*Cols bitmask; bit 1 collected, bit 2 pipeline

	Gzip bool
}

// BuildTPF encodes the spec as FITS bytes: a primary header, a TARGETTABLES
// binary table (TIME, CADENCENO, FLUX, FLUX_ERR, QUALITY), and an APERTURE
// image extension.
func BuildTPF(spec TPFSpec) []byte {
	nCad := len(spec.Time)
	nPix := spec.Rows * spec.Cols

	if spec.Cadence == nil {
		spec.Cadence = make([]int32, nCad)
		for i := range spec.Cadence {
			spec.Cadence[i] = int32(1000 + i)
		}
	}
	if spec.Quality == nil {
		spec.Quality = make([]int32, nCad)
	}
	if spec.FluxErr == nil {
		spec.FluxErr = make([][]float32, nCad)
		for i := range spec.FluxErr {
			errs := make([]float32, nPix)
			for j := range errs {
				errs[j] = 1.0
			}
			spec.FluxErr[i] = errs
		}
	}
	if spec.Aperture == nil {
		spec.Aperture = make([]int32, nPix)
		for i := range spec.Aperture {
			spec.Aperture[i] = 3
		}
	}

	var out bytes.Buffer
	writePrimaryHeader(&out, spec)
	writePixelTable(&out, spec, nCad, nPix)
	writeApertureImage(&out, spec, nPix)

	if spec.Gzip {
		var gzOut bytes.Buffer
		gz := gzip.NewWriter(&gzOut)
		_, _ = gz.Write(out.Bytes())
		_ = gz.Close()
		return gzOut.Bytes()
	}
	return out.Bytes()
}

func writePrimaryHeader(out *bytes.Buffer, spec TPFSpec) {
	var cards []string
	cards = append(cards,
		cardLogical("SIMPLE", true),
		cardInt("BITPIX", 8),
		cardInt("NAXIS", 0),
		cardLogical("EXTEND", true),
		cardStr("TELESCOP", spec.Mission),
		cardStr("OBJECT", spec.Object),
		cardInt("QUARTER", spec.Quarter),
	)
	writeHeader(out, cards)
}

func writePixelTable(out *bytes.Buffer, spec TPFSpec, nCad, nPix int) {
	rowSize := 8 + 4 + 4*nPix + 4*nPix + 4
	tdim := fmt.Sprintf("(%d,%d)", spec.Cols, spec.Rows)

	var cards []string
	cards = append(cards,
		cardStr("XTENSION", "BINTABLE"),
		cardInt("BITPIX", 8),
		cardInt("NAXIS", 2),
		cardInt("NAXIS1", rowSize),
		cardInt("NAXIS2", nCad),
		cardInt("PCOUNT", 0),
		cardInt("GCOUNT", 1),
		cardInt("TFIELDS", 5),
		cardStr("TTYPE1", "TIME"),
		cardStr("TFORM1", "D"),
		cardStr("TTYPE2", "CADENCENO"),
		cardStr("TFORM2", "J"),
		cardStr("TTYPE3", "FLUX"),
		cardStr("TFORM3", fmt.Sprintf("%dE", nPix)),
		cardStr("TDIM3", tdim),
		cardStr("TTYPE4", "FLUX_ERR"),
		cardStr("TFORM4", fmt.Sprintf("%dE", nPix)),
		cardStr("TDIM4", tdim),
		cardStr("TTYPE5", "QUALITY"),
		cardStr("TFORM5", "J"),
		cardStr("EXTNAME", "TARGETTABLES"),
	)
	writeHeader(out, cards)

	var data bytes.Buffer
	for r := 0; r < nCad; r++ {
		binWrite64(&data, math.Float64bits(spec.Time[r]))
		binWrite32(&data, uint32(spec.Cadence[r]))
		for _, v := range spec.Flux[r] {
			binWrite32(&data, math.Float32bits(v))
		}
		for _, v := range spec.FluxErr[r] {
			binWrite32(&data, math.Float32bits(v))
		}
		binWrite32(&data, uint32(spec.Quality[r]))
	}
	writePadded(out, data.Bytes())
}

func writeApertureImage(out *bytes.Buffer, spec TPFSpec, nPix int) {
	var cards []string
	cards = append(cards,
		cardStr("XTENSION", "IMAGE"),
		cardInt("BITPIX", 32),
		cardInt("NAXIS", 2),
		cardInt("NAXIS1", spec.Cols),
		cardInt("NAXIS2", spec.Rows),
		cardInt("PCOUNT", 0),
		cardInt("GCOUNT", 1),
		cardStr("EXTNAME", "APERTURE"),
	)
	writeHeader(out, cards)

	var data bytes.Buffer
	for i := 0; i < nPix; i++ {
		binWrite32(&data, uint32(spec.Aperture[i]))
	}
	writePadded(out, data.Bytes())
}

// writeHeader emits the cards plus an END card, padded to a 2880-byte block.
func writeHeader(out *bytes.Buffer, cards []string) {
	for _, c := range cards {
		out.WriteString(c)
	}
	out.WriteString(padCard("END"))
	for out.Len()%2880 != 0 {
		out.WriteString(padCard(""))
	}
}

// writePadded emits data padded with zero bytes to a 2880-byte boundary.
func writePadded(out *bytes.Buffer, data []byte) {
	out.Write(data)
	if rem := len(data) % 2880; rem != 0 {
		out.Write(make([]byte, 2880-rem))
	}
}

// cardStr formats a string-valued card in FITS fixed format.
func cardStr(key, value string) string {
	quoted := fmt.Sprintf("'%-8s'", value)
	return padCard(fmt.Sprintf("%-8s= %s", key, quoted))
}

// cardInt formats an integer card with the value right-justified to column 30.
func cardInt(key string, value int) string {
	return padCard(fmt.Sprintf("%-8s= %20d", key, value))
}

// cardLogical formats a T/F card with the value in column 30.
func cardLogical(key string, value bool) string {
	v := "F"
	if value {
		v = "T"
	}
	return padCard(fmt.Sprintf("%-8s= %20s", key, v))
}

func padCard(s string) string {
	return fmt.Sprintf("%-80s", s)
}

func binWrite32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.Write(buf[:])
}

func binWrite64(b *bytes.Buffer, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	b.Write(buf[:])
}
