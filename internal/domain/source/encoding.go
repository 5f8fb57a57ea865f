package source

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported by Decode.
const (
	EncodingUTF8    = "utf-8"
	EncodingLatin1  = "iso-8859-1"
	EncodingCP1252  = "windows-1252"
	utf8ByteOrdMark = "\xef\xbb\xbf"
)

// Decode converts raw bytes to a string, trying UTF-8, Latin-1 and CP1252
// in that order. Latin-1 output holding C1 control characters is treated as
// CP1252 text.
func Decode(raw []byte) (string, string, error) {
	raw = bytes.TrimPrefix(raw, []byte(utf8ByteOrdMark))
	if utf8.Valid(raw) {
		return string(raw), EncodingUTF8, nil
	}
	if s, err := decodeWith(charmap.ISO8859_1, raw); err == nil && !hasC1(s) {
		return s, EncodingLatin1, nil
	}
	s, err := decodeWith(charmap.Windows1252, raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: undecodable bytes: %w", ErrSourceFormat, err)
	}
	return s, EncodingCP1252, nil
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func hasC1(s string) bool {
	for _, r := range s {
		if r >= 0x80 && r <= 0x9f {
			return true
		}
	}
	return false
}

// Sanitize drops non-ASCII runes and control characters other than tab,
// newline and carriage return.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r < 0x20, r > 0x7e:
			return -1
		default:
			return r
		}
	}, s)
}

// EscapeAmpersands escapes every & that does not start an entity.
func EscapeAmpersands(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		if s[i] == '&' && !isEntity(s[i+1:]) {
			b.WriteString("&amp;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// isEntity reports whether s, the text after an &, begins with a named or
// numeric character reference.
func isEntity(s string) bool {
	end := strings.IndexByte(s, ';')
	if end <= 0 || end > 10 {
		return false
	}
	name := s[:end]
	if name[0] == '#' {
		digits := name[1:]
		hex := false
		if len(digits) > 0 && (digits[0] == 'x' || digits[0] == 'X') {
			digits, hex = digits[1:], true
		}
		if digits == "" {
			return false
		}
		for _, c := range digits {
			if !isDigit(c, hex) {
				return false
			}
		}
		return true
	}
	for _, c := range name {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

func isDigit(c rune, hex bool) bool {
	if c >= '0' && c <= '9' {
		return true
	}
	return hex && (c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F')
}
