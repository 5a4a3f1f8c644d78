package codec

import (
	"fmt"
)

// CapacityExceededError occurs when a write does not fit in the remaining buffer space.
type CapacityExceededError struct {
	Need      int
	Remaining int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("buffer capacity exceeded: need %d bytes, %d remaining", e.Need, e.Remaining)
}

// MalformedPayloadError occurs when buffer contents cannot be decoded as a Value.
type MalformedPayloadError struct {
	Offset int
	Reason string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload at offset %d: %s", e.Offset, e.Reason)
}
