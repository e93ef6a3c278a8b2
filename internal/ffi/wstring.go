package ffi

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// ErrStringTooLong is returned when a string does not fit a fixed UTF-16 field.
var ErrStringTooLong = errors.New("string too long for native field")

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// decodeUTF16 converts a NUL-terminated UTF-16 field to UTF-8. Unpaired
// surrogates become U+FFFD. A field without a NUL is decoded in full.
func decodeUTF16(w []uint16) string {
	n := 0
	for n < len(w) && w[n] != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	raw := make([]byte, 2*n)
	for i, u := range w[:n] {
		binary.LittleEndian.PutUint16(raw[2*i:], u)
	}
	out, err := utf16LE.NewDecoder().Bytes(raw)
	if err != nil {
		return string(utf16.Decode(w[:n]))
	}
	return string(out)
}

// encodeUTF16 writes s into dst as NUL-terminated UTF-16. dst is zeroed first.
func encodeUTF16(s string, dst []uint16) error {
	clear(dst)
	raw, err := utf16LE.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return err
	}
	units := len(raw) / 2
	if units >= len(dst) {
		return ErrStringTooLong
	}
	for i := 0; i < units; i++ {
		dst[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	return nil
}
