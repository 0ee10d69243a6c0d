package fits

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Binary table field type codes (TFORMn) and their widths in bytes
const (
	TypeLogical = 'L' // 1 byte
	TypeByte    = 'B' // 1 byte
	TypeInt16   = 'I' // 2 bytes
	TypeInt32   = 'J' // 4 bytes
	TypeInt64   = 'K' // 8 bytes
	TypeFloat32 = 'E' // 4 bytes
	TypeFloat64 = 'D' // 8 bytes
)

var typeSizes = map[byte]int{
	TypeLogical: 1,
	TypeByte:    1,
	TypeInt16:   2,
	TypeInt32:   4,
	TypeInt64:   8,
	TypeFloat32: 4,
	TypeFloat64: 8,
}

// Column describes one field of a binary table row.
type Column struct {
	Name   string
	Type   byte  // TFORM type code
	Repeat int   // elements per row
	Offset int   // byte offset within a row
	Dims   []int // TDIM shape, fastest-varying axis first; nil for scalars
}

// Table provides typed access to a BINTABLE extension.
type Table struct {
	hdu     *HDU
	columns []Column
	rowSize int
	rows    int
}

// NewTable validates a BINTABLE HDU and indexes its columns.
func NewTable(hdu *HDU) (*Table, error) {
	if hdu.Type() != ExtBinTable {
		return nil, fmt.Errorf("not a binary table extension: %q", hdu.Type())
	}

	rowSize, err := hdu.Header.Int("NAXIS1")
	if err != nil {
		return nil, fmt.Errorf("missing NAXIS1: %v", err)
	}
	rows, err := hdu.Header.Int("NAXIS2")
	if err != nil {
		return nil, fmt.Errorf("missing NAXIS2: %v", err)
	}
	nfields, err := hdu.Header.Int("TFIELDS")
	if err != nil {
		return nil, fmt.Errorf("missing TFIELDS: %v", err)
	}

	t := &Table{hdu: hdu, rowSize: int(rowSize), rows: int(rows)}
	offset := 0
	for i := int64(1); i <= nfields; i++ {
		tform, err := hdu.Header.Str(fmt.Sprintf("TFORM%d", i))
		if err != nil {
			return nil, fmt.Errorf("missing TFORM%d: %v", i, err)
		}
		repeat, code, err := parseTForm(tform)
		if err != nil {
			return nil, fmt.Errorf("field %d: %v", i, err)
		}

		col := Column{
			Name:   hdu.Header.StrDefault(fmt.Sprintf("TTYPE%d", i), fmt.Sprintf("COL%d", i)),
			Type:   code,
			Repeat: repeat,
			Offset: offset,
		}
		if tdim, err := hdu.Header.Str(fmt.Sprintf("TDIM%d", i)); err == nil {
			dims, err := parseTDim(tdim)
			if err != nil {
				return nil, fmt.Errorf("field %d: %v", i, err)
			}
			col.Dims = dims
		}
		t.columns = append(t.columns, col)
		offset += repeat * typeSizes[code]
	}

	if offset != t.rowSize {
		return nil, fmt.Errorf("row size mismatch: fields total %d bytes, NAXIS1 = %d", offset, t.rowSize)
	}
	if t.rows*t.rowSize > len(hdu.Data) {
		return nil, fmt.Errorf("table data truncated: need %d bytes, have %d", t.rows*t.rowSize, len(hdu.Data))
	}
	return t, nil
}

// NumRows returns the number of table rows.
func (t *Table) NumRows() int {
	return t.rows
}

// Columns returns the column descriptors in field order.
func (t *Table) Columns() []Column {
	return t.columns
}

// Column finds a column by name (case-insensitive).
func (t *Table) Column(name string) (Column, error) {
	for _, c := range t.columns {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Column{}, fmt.Errorf("column %s not found", name)
}

// Float64Col reads a scalar D or E column as one float64 per row.
func (t *Table) Float64Col(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Repeat != 1 {
		return nil, fmt.Errorf("column %s is an array column (repeat %d)", name, col.Repeat)
	}
	out := make([]float64, t.rows)
	for r := 0; r < t.rows; r++ {
		b := t.cell(r, col)
		switch col.Type {
		case TypeFloat64:
			out[r] = math.Float64frombits(binary.BigEndian.Uint64(b))
		case TypeFloat32:
			out[r] = float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
		default:
			return nil, fmt.Errorf("column %s is not a float column (type %c)", name, col.Type)
		}
	}
	return out, nil
}

// Int32Col reads a scalar J, I or B column as one int32 per row.
func (t *Table) Int32Col(name string) ([]int32, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Repeat != 1 {
		return nil, fmt.Errorf("column %s is an array column (repeat %d)", name, col.Repeat)
	}
	out := make([]int32, t.rows)
	for r := 0; r < t.rows; r++ {
		b := t.cell(r, col)
		switch col.Type {
		case TypeInt32:
			out[r] = int32(binary.BigEndian.Uint32(b))
		case TypeInt16:
			out[r] = int32(int16(binary.BigEndian.Uint16(b)))
		case TypeByte:
			out[r] = int32(b[0])
		default:
			return nil, fmt.Errorf("column %s is not an integer column (type %c)", name, col.Type)
		}
	}
	return out, nil
}

// Float32Array reads an E array column as a repeat-length slice per row.
// This is the layout used by per-cadence pixel stamps.
func (t *Table) Float32Array(name string) ([][]float32, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Type != TypeFloat32 {
		return nil, fmt.Errorf("column %s is not a float32 array column (type %c)", name, col.Type)
	}
	out := make([][]float32, t.rows)
	for r := 0; r < t.rows; r++ {
		b := t.cell(r, col)
		row := make([]float32, col.Repeat)
		for i := 0; i < col.Repeat; i++ {
			row[i] = math.Float32frombits(binary.BigEndian.Uint32(b[i*4:]))
		}
		out[r] = row
	}
	return out, nil
}

// cell returns the raw bytes for one row of a column.
func (t *Table) cell(row int, col Column) []byte {
	start := row*t.rowSize + col.Offset
	return t.hdu.Data[start : start+col.Repeat*typeSizes[col.Type]]
}

// parseTForm splits a TFORM value like "121E" into repeat count and type code.
func parseTForm(tform string) (repeat int, code byte, err error) {
	s := strings.TrimSpace(tform)
	if s == "" {
		return 0, 0, fmt.Errorf("empty TFORM")
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	repeat = 1
	if i > 0 {
		repeat, err = strconv.Atoi(s[:i])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid TFORM repeat in %q", tform)
		}
	}
	if i >= len(s) {
		return 0, 0, fmt.Errorf("missing TFORM type code in %q", tform)
	}
	code = s[i]
	if _, ok := typeSizes[code]; !ok {
		return 0, 0, fmt.Errorf("unsupported TFORM type %c in %q", code, tform)
	}
	return repeat, code, nil
}

// parseTDim parses a TDIM value like "(11,13)" into a dimension list with the
// fastest-varying axis first.
func parseTDim(tdim string) ([]int, error) {
	s := strings.TrimSpace(tdim)
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, fmt.Errorf("invalid TDIM %q", tdim)
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	dims := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid TDIM dimension %q in %q", p, tdim)
		}
		dims = append(dims, v)
	}
	return dims, nil
}
