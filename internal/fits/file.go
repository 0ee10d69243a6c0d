package fits

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// HDU extension type names as they appear in the XTENSION keyword
const (
	ExtBinTable = "BINTABLE"
	ExtImage    = "IMAGE"
)

// HDU is one header-data unit: a parsed header plus its raw data section with
// block padding removed.
type HDU struct {
	Header Header
	Data   []byte
}

// Name returns the EXTNAME of the HDU, or "" for an unnamed unit.
func (h *HDU) Name() string {
	return h.Header.StrDefault("EXTNAME", "")
}

// Type returns the XTENSION value, or "PRIMARY" for the first HDU.
func (h *HDU) Type() string {
	if h.Header.Has("SIMPLE") {
		return "PRIMARY"
	}
	return h.Header.StrDefault("XTENSION", "")
}

// File is a fully read FITS file.
type File struct {
	HDUs []*HDU
}

// Open reads a FITS file from disk. Gzip-compressed files are detected by
// magic bytes and decompressed transparently.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	file, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return file, nil
}

// Read parses a FITS stream into its HDUs.
func Read(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)

	// sniff for gzip magic
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %v", err)
		}
		defer gz.Close()
		return readAll(bufio.NewReader(gz))
	}

	return readAll(br)
}

func readAll(r io.Reader) (*File, error) {
	file := &File{}
	for {
		hdu, err := readHDU(r, len(file.HDUs) == 0)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read HDU %d: %v", len(file.HDUs), err)
		}
		file.HDUs = append(file.HDUs, hdu)
	}
	if len(file.HDUs) == 0 {
		return nil, fmt.Errorf("no HDUs found")
	}
	return file, nil
}

// Primary returns the first HDU.
func (f *File) Primary() *HDU {
	return f.HDUs[0]
}

// ByName finds an extension by its EXTNAME (case-insensitive). Returns nil
// when no extension matches.
func (f *File) ByName(name string) *HDU {
	for _, h := range f.HDUs {
		if strings.EqualFold(h.Name(), name) {
			return h
		}
	}
	return nil
}

// readHDU reads one header and its padded data section. Returns io.EOF
// cleanly when the stream ends at an HDU boundary.
func readHDU(r io.Reader, primary bool) (*HDU, error) {
	header, err := readHeader(r)
	if err != nil {
		return nil, err
	}

	if primary {
		if ok, err := header.Bool("SIMPLE"); err != nil || !ok {
			return nil, fmt.Errorf("primary header missing SIMPLE = T")
		}
	}

	size, err := dataSize(header)
	if err != nil {
		return nil, err
	}

	hdu := &HDU{Header: header}
	if size > 0 {
		padded := ((size + BlockSize - 1) / BlockSize) * BlockSize
		buf := make([]byte, padded)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("truncated data section: %v", err)
		}
		hdu.Data = buf[:size]
	}
	return hdu, nil
}

// readHeader consumes 2880-byte blocks until the END card.
func readHeader(r io.Reader) (Header, error) {
	var cards []Card
	block := make([]byte, BlockSize)
	for {
		n, err := io.ReadFull(r, block)
		if err == io.EOF && len(cards) == 0 {
			return Header{}, io.EOF
		}
		if err != nil {
			return Header{}, fmt.Errorf("truncated header block (%d bytes): %v", n, err)
		}

		for i := 0; i < CardsPerBlock; i++ {
			card, err := parseCard(block[i*CardSize : (i+1)*CardSize])
			if err != nil {
				return Header{}, err
			}
			if card.Keyword == "END" {
				return newHeader(cards), nil
			}
			cards = append(cards, card)
		}
	}
}

// dataSize computes the byte length of the data section that follows a
// header: (|BITPIX|/8) * GCOUNT * (PCOUNT + NAXIS1*...*NAXISn).
func dataSize(h Header) (int, error) {
	naxis := h.IntDefault("NAXIS", 0)
	if naxis == 0 {
		return 0, nil
	}
	bitpix, err := h.Int("BITPIX")
	if err != nil {
		return 0, fmt.Errorf("missing BITPIX: %v", err)
	}
	elems := int64(1)
	for i := int64(1); i <= naxis; i++ {
		n, err := h.Int(fmt.Sprintf("NAXIS%d", i))
		if err != nil {
			return 0, err
		}
		elems *= n
	}
	gcount := h.IntDefault("GCOUNT", 1)
	pcount := h.IntDefault("PCOUNT", 0)
	bytesPerElem := bitpix / 8
	if bytesPerElem < 0 {
		bytesPerElem = -bytesPerElem
	}
	return int(bytesPerElem * gcount * (pcount + elems)), nil
}
