package wasm

import (
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/pnbridge/internal/shm"
)

var errOutOfRange = errors.New("out of range of guest memory")

// Memory provides bounds-checked access to a module's linear memory.
//
// Guest pointers are plain offsets, so every read goes through wazero's
// checked Read and copies out before the guest can change the bytes again.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// ReadString reads a NUL-terminated string starting at ptr, scanning at most
// maxLen bytes or up to the end of memory.
func (m *Memory) ReadString(ptr uint32, maxLen uint32) (string, bool) {
	size := m.mem.Size()
	if ptr >= size {
		return "", false
	}
	if avail := size - ptr; maxLen > avail {
		maxLen = avail
	}

	buf, ok := m.mem.Read(ptr, maxLen)
	if !ok {
		return "", false
	}

	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), true
		}
	}

	// No terminator within maxLen
	return "", false
}

// ReadBytes copies length bytes starting at ptr.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, bool) {
	view, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, false
	}
	out := make([]byte, len(view))
	copy(out, view)
	return out, true
}

// Region returns a window of size bytes at offset as a shm.Region.
func (m *Memory) Region(name string, offset uint32, size int) (*MemoryRegion, error) {
	if size < 0 || uint64(offset)+uint64(size) > uint64(m.mem.Size()) {
		return nil, &MemoryAccessError{
			Operation: "region " + name,
			Address:   offset,
			Length:    uint32(size),
			Err:       errOutOfRange,
		}
	}
	return &MemoryRegion{mem: m.mem, name: name, offset: offset, size: size}, nil
}

// MemoryRegion is a fixed window of guest linear memory.
type MemoryRegion struct {
	mem    api.Memory
	name   string
	offset uint32
	size   int
}

var _ shm.Region = (*MemoryRegion)(nil)

// Name returns the region name used in errors.
func (r *MemoryRegion) Name() string {
	return r.name
}

// Offset returns the guest address of the first byte.
func (r *MemoryRegion) Offset() uint32 {
	return r.offset
}

// Size returns the window size in bytes.
func (r *MemoryRegion) Size() int {
	return r.size
}

// ReadAt copies len(p) bytes starting off bytes into the window.
func (r *MemoryRegion) ReadAt(p []byte, off int64) (int, error) {
	if err := r.check("read", off, len(p)); err != nil {
		return 0, err
	}

	addr := r.offset + uint32(off)
	view, ok := r.mem.Read(addr, uint32(len(p)))
	if !ok {
		return 0, &MemoryAccessError{Operation: "read", Address: addr, Length: uint32(len(p)), Err: errOutOfRange}
	}
	return copy(p, view), nil
}

// WriteAt copies p into the window starting off bytes in.
func (r *MemoryRegion) WriteAt(p []byte, off int64) (int, error) {
	if err := r.check("write", off, len(p)); err != nil {
		return 0, err
	}

	addr := r.offset + uint32(off)
	if !r.mem.Write(addr, p) {
		return 0, &MemoryAccessError{Operation: "write", Address: addr, Length: uint32(len(p)), Err: errOutOfRange}
	}
	return len(p), nil
}

func (r *MemoryRegion) check(op string, off int64, length int) error {
	if off < 0 || off+int64(length) > int64(r.size) {
		return &shm.BoundsError{
			Operation: op,
			Region:    r.name,
			Offset:    off,
			Length:    length,
			Size:      r.size,
		}
	}
	return nil
}

func (r *MemoryRegion) String() string {
	return fmt.Sprintf("%s@%d+%d", r.name, r.offset, r.size)
}
