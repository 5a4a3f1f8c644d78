package shm

import (
	"fmt"
)

// BoundsError occurs when an access falls outside a region.
type BoundsError struct {
	Operation string
	Region    string
	Offset    int64
	Length    int
	Size      int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("region '%s' %s out of bounds (off=%d, len=%d, size=%d)",
		e.Region, e.Operation, e.Offset, e.Length, e.Size)
}

// RegionTooSmallError occurs when a region cannot hold what the protocol puts in it.
type RegionTooSmallError struct {
	Role string
	Size int
	Want int
}

func (e *RegionTooSmallError) Error() string {
	return fmt.Sprintf("%s region too small: %d bytes, need at least %d", e.Role, e.Size, e.Want)
}

// TransferError occurs when copying between a buffer and a region fails.
type TransferError struct {
	Direction string
	Err       error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("shared memory copy %s failed: %v", e.Direction, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
