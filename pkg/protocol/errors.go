package protocol

import "fmt"

// TypeMismatchError occurs when a Value is narrowed to a variant it does not hold.
type TypeMismatchError struct {
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Want, e.Got)
}

// TextEncodingError occurs when text cannot be represented with one byte per character.
type TextEncodingError struct {
	Text string
	Err  error
}

func (e *TextEncodingError) Error() string {
	return fmt.Sprintf("text %q is not single-byte representable: %v", e.Text, e.Err)
}

func (e *TextEncodingError) Unwrap() error {
	return e.Err
}
