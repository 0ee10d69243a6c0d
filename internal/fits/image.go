package fits

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Image is a decoded 2-D image extension. Pixels are stored row-major with
// Rows = NAXIS2 and Cols = NAXIS1, so Pixels[r*Cols+c] addresses row r,
// column c.
type Image struct {
	Rows   int
	Cols   int
	Pixels []float64
}

// At returns the pixel at row r, column c.
func (im *Image) At(r, c int) float64 {
	return im.Pixels[r*im.Cols+c]
}

// IntAt returns the pixel at row r, column c truncated to an integer. Useful
// for bitmask images such as aperture extensions.
func (im *Image) IntAt(r, c int) int32 {
	return int32(im.Pixels[r*im.Cols+c])
}

// ReadImage decodes a 2-D IMAGE extension or a primary HDU carrying an image.
// BZERO/BSCALE scaling is applied when present.
func ReadImage(hdu *HDU) (*Image, error) {
	if t := hdu.Type(); t != ExtImage && t != "PRIMARY" {
		return nil, fmt.Errorf("not an image extension: %q", t)
	}
	naxis, err := hdu.Header.Int("NAXIS")
	if err != nil {
		return nil, fmt.Errorf("missing NAXIS: %v", err)
	}
	if naxis != 2 {
		return nil, fmt.Errorf("unsupported image dimensionality NAXIS = %d", naxis)
	}
	bitpix, err := hdu.Header.Int("BITPIX")
	if err != nil {
		return nil, fmt.Errorf("missing BITPIX: %v", err)
	}
	cols, err := hdu.Header.Int("NAXIS1")
	if err != nil {
		return nil, err
	}
	rows, err := hdu.Header.Int("NAXIS2")
	if err != nil {
		return nil, err
	}

	bscale := hdu.Header.FloatDefault("BSCALE", 1)
	bzero := hdu.Header.FloatDefault("BZERO", 0)

	n := int(rows * cols)
	bytesPerPix := int(bitpix) / 8
	if bytesPerPix < 0 {
		bytesPerPix = -bytesPerPix
	}
	if len(hdu.Data) < n*bytesPerPix {
		return nil, fmt.Errorf("image data truncated: need %d bytes, have %d", n*bytesPerPix, len(hdu.Data))
	}

	im := &Image{Rows: int(rows), Cols: int(cols), Pixels: make([]float64, n)}
	for i := 0; i < n; i++ {
		b := hdu.Data[i*bytesPerPix:]
		var v float64
		switch bitpix {
		case 8:
			v = float64(b[0])
		case 16:
			v = float64(int16(binary.BigEndian.Uint16(b)))
		case 32:
			v = float64(int32(binary.BigEndian.Uint32(b)))
		case -32:
			v = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		case -64:
			v = math.Float64frombits(binary.BigEndian.Uint64(b))
		default:
			return nil, fmt.Errorf("unsupported BITPIX %d", bitpix)
		}
		im.Pixels[i] = bzero + bscale*v
	}
	return im, nil
}
