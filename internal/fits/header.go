// Package fits reads the subset of the FITS container format used by target
// pixel files: primary headers, binary table extensions, and image extensions.
//
// A FITS file is a sequence of HDUs (header-data units). Each header is a run
// of 2880-byte blocks holding 80-character cards of the form
// "KEYWORD = value / comment", terminated by an END card. The data section
// that follows is padded out to the next 2880-byte boundary. Binary table
// fields and image pixels are big-endian.
package fits

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout constants for the FITS container format
const (
	BlockSize     = 2880 // Logical record size in bytes; headers and data are padded to this
	CardSize      = 80   // One header card: 8-byte keyword, value indicator, value and comment
	CardsPerBlock = BlockSize / CardSize
	KeywordSize   = 8 // Keyword field width within a card
)

// Card is a single parsed header card. Value holds the raw value token as it
// appears in the card: quoted for strings, bare for numbers and logicals.
type Card struct {
	Keyword string
	Value   string
	Comment string
}

// Header is an ordered set of cards with keyword lookup. Commentary cards
// (COMMENT, HISTORY, blank keyword) are kept in order but excluded from the
// lookup index.
type Header struct {
	cards []Card
	index map[string]int
}

// newHeader builds a Header from parsed cards.
func newHeader(cards []Card) Header {
	h := Header{cards: cards, index: make(map[string]int, len(cards))}
	for i, c := range cards {
		if c.Keyword == "" || c.Keyword == "COMMENT" || c.Keyword == "HISTORY" {
			continue
		}
		if _, dup := h.index[c.Keyword]; !dup {
			h.index[c.Keyword] = i
		}
	}
	return h
}

// Cards returns all cards in file order.
func (h Header) Cards() []Card {
	return h.cards
}

// Has reports whether the keyword is present.
func (h Header) Has(keyword string) bool {
	_, ok := h.index[keyword]
	return ok
}

// raw returns the raw value token for a keyword.
func (h Header) raw(keyword string) (string, bool) {
	i, ok := h.index[keyword]
	if !ok {
		return "", false
	}
	return h.cards[i].Value, true
}

// Str returns a string-valued keyword with FITS quoting removed. Trailing
// spaces are stripped since FITS pads short strings.
func (h Header) Str(keyword string) (string, error) {
	raw, ok := h.raw(keyword)
	if !ok {
		return "", fmt.Errorf("keyword %s not present", keyword)
	}
	if len(raw) < 2 || raw[0] != '\'' {
		return "", fmt.Errorf("keyword %s is not a string value: %q", keyword, raw)
	}
	// strip the surrounding quotes and collapse '' escapes
	inner := raw[1 : len(raw)-1]
	return strings.TrimRight(strings.ReplaceAll(inner, "''", "'"), " "), nil
}

// StrDefault returns the string value or def when absent or malformed.
func (h Header) StrDefault(keyword, def string) string {
	v, err := h.Str(keyword)
	if err != nil {
		return def
	}
	return v
}

// Int returns an integer-valued keyword.
func (h Header) Int(keyword string) (int64, error) {
	raw, ok := h.raw(keyword)
	if !ok {
		return 0, fmt.Errorf("keyword %s not present", keyword)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("keyword %s is not an integer: %q", keyword, raw)
	}
	return v, nil
}

// IntDefault returns the integer value or def when absent or malformed.
func (h Header) IntDefault(keyword string, def int64) int64 {
	v, err := h.Int(keyword)
	if err != nil {
		return def
	}
	return v
}

// Float returns a floating-point keyword. Integer-formatted values parse too.
func (h Header) Float(keyword string) (float64, error) {
	raw, ok := h.raw(keyword)
	if !ok {
		return 0, fmt.Errorf("keyword %s not present", keyword)
	}
	// FITS allows D exponents in place of E
	s := strings.ReplaceAll(strings.TrimSpace(raw), "D", "E")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("keyword %s is not a float: %q", keyword, raw)
	}
	return v, nil
}

// FloatDefault returns the float value or def when absent or malformed.
func (h Header) FloatDefault(keyword string, def float64) float64 {
	v, err := h.Float(keyword)
	if err != nil {
		return def
	}
	return v
}

// Bool returns a logical-valued keyword (T or F).
func (h Header) Bool(keyword string) (bool, error) {
	raw, ok := h.raw(keyword)
	if !ok {
		return false, fmt.Errorf("keyword %s not present", keyword)
	}
	switch strings.TrimSpace(raw) {
	case "T":
		return true, nil
	case "F":
		return false, nil
	}
	return false, fmt.Errorf("keyword %s is not a logical: %q", keyword, raw)
}

// parseCard decodes one 80-byte card.
func parseCard(b []byte) (Card, error) {
	if len(b) != CardSize {
		return Card{}, fmt.Errorf("invalid card size: expected %d, got %d", CardSize, len(b))
	}
	keyword := strings.TrimRight(string(b[:KeywordSize]), " ")

	// commentary cards and cards without a value indicator carry no value
	if keyword == "" || keyword == "COMMENT" || keyword == "HISTORY" || keyword == "END" ||
		b[8] != '=' || b[9] != ' ' {
		return Card{Keyword: keyword, Comment: strings.TrimSpace(string(b[KeywordSize:]))}, nil
	}

	rest := string(b[10:])
	trimmed := strings.TrimLeft(rest, " ")
	if strings.HasPrefix(trimmed, "'") {
		return parseStringCard(keyword, trimmed)
	}

	// non-string value: everything up to an optional / comment
	value := trimmed
	comment := ""
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		value = trimmed[:i]
		comment = strings.TrimSpace(trimmed[i+1:])
	}
	return Card{Keyword: keyword, Value: strings.TrimSpace(value), Comment: comment}, nil
}

// parseStringCard handles quoted values, where a doubled quote escapes a
// literal quote.
func parseStringCard(keyword, s string) (Card, error) {
	var sb strings.Builder
	sb.WriteByte('\'')
	i := 1
	for {
		if i >= len(s) {
			return Card{}, fmt.Errorf("unterminated string value for keyword %s", keyword)
		}
		if s[i] == '\'' {
			if i+1 < len(s) && s[i+1] == '\'' {
				sb.WriteString("''")
				i += 2
				continue
			}
			sb.WriteByte('\'')
			i++
			break
		}
		sb.WriteByte(s[i])
		i++
	}
	comment := ""
	if j := strings.IndexByte(s[i:], '/'); j >= 0 {
		comment = strings.TrimSpace(s[i+j+1:])
	}
	return Card{Keyword: keyword, Value: sb.String(), Comment: comment}, nil
}
