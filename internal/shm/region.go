// Package shm models the externally owned memory regions shared with the
// host and the adapter that moves codec buffers and signal bytes through them.
package shm

import (
	"sync"
)

// Region is a capability for a fixed-size block of memory owned outside the
// bridge. Implementations must bounds-check every access and must not grow.
//
// The host and the bridge never write the same region at the same time; that
// discipline is enforced by the signal protocol, not by Region.
type Region interface {
	// Size returns the fixed size of the region in bytes.
	Size() int

	// ReadAt copies len(p) bytes starting at off into p.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt copies p into the region starting at off.
	WriteAt(p []byte, off int64) (int, error)
}

// ByteRegion is a Region backed by a Go byte slice. Each access holds a lock,
// so a host goroutine and the bridge workers can share one safely.
type ByteRegion struct {
	mu   sync.RWMutex
	name string
	data []byte
}

// NewByteRegion allocates a zeroed region of size bytes.
func NewByteRegion(name string, size int) *ByteRegion {
	return &ByteRegion{name: name, data: make([]byte, size)}
}

// WrapBytes exposes an existing slice as a region. The caller keeps ownership
// of data and must keep it alive while the region is in use.
func WrapBytes(name string, data []byte) *ByteRegion {
	return &ByteRegion{name: name, data: data}
}

// Name returns the region's identifier.
func (r *ByteRegion) Name() string {
	return r.name
}

// Size returns the region size in bytes.
func (r *ByteRegion) Size() int {
	return len(r.data)
}

// ReadAt implements io.ReaderAt with strict bounds: a short read is an error.
func (r *ByteRegion) ReadAt(p []byte, off int64) (int, error) {
	if err := checkBounds("read", r.name, off, len(p), len(r.data)); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return copy(p, r.data[off:]), nil
}

// WriteAt implements io.WriterAt with strict bounds.
func (r *ByteRegion) WriteAt(p []byte, off int64) (int, error) {
	if err := checkBounds("write", r.name, off, len(p), len(r.data)); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return copy(r.data[off:], p), nil
}

func checkBounds(op, name string, off int64, length, size int) error {
	if off < 0 || length < 0 || off > int64(size) || int64(length) > int64(size)-off {
		return &BoundsError{
			Operation: op,
			Region:    name,
			Offset:    off,
			Length:    length,
			Size:      size,
		}
	}
	return nil
}
