package protocol

import (
	"golang.org/x/text/encoding/charmap"
)

// Strings on the wire carry one byte per character. The host treats those
// bytes as ISO-8859-1, so Go text has to be transcoded at the boundary.

// NewText returns a String value holding s transcoded to ISO-8859-1.
// It fails when s contains a rune outside that character set.
func NewText(s string) (Value, error) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return Value{}, &TextEncodingError{Text: s, Err: err}
	}
	return NewString(encoded), nil
}

// Text returns the String payload of v decoded from ISO-8859-1 into UTF-8.
func (v Value) Text() (string, error) {
	raw, err := v.ToString()
	if err != nil {
		return "", err
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().String(raw)
	if err != nil {
		return "", &TextEncodingError{Text: raw, Err: err}
	}
	return decoded, nil
}
