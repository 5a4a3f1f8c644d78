// Package codec implements the fixed-capacity binary encoding of protocol
// values shared by the host and the native side.
//
// Wire format, little-endian throughout:
//
//	tag 0  Undefined  no payload
//	tag 1  String     int32 byte length, then the bytes
//	tag 2  Real       8 bytes IEEE-754 double
//	tag 3  Array      int32 element count, then each element encoded in order
//
// A payload always travels as a whole Capacity-sized block. There is no end
// marker, so readers must know how many values to expect.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/woxQAQ/pnbridge/pkg/protocol"
)

// Capacity is the fixed size of every buffer and of every shared payload region.
const Capacity = 65535

const (
	tagSize    = 1
	lengthSize = 4
	realSize   = 8
)

// Buffer is a fixed-capacity byte region with a single read/write cursor.
// A Buffer is filled by sequential writes, then either copied out whole or
// rewound and read back. It is not safe for concurrent use.
type Buffer struct {
	contents [Capacity]byte
	position int
}

// NewBuffer returns an empty, zeroed buffer positioned at 0.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// FromBytes returns a buffer holding a copy of p, rewound for reading.
// Bytes past len(p) are zero.
func FromBytes(p []byte) (*Buffer, error) {
	if len(p) > Capacity {
		return nil, &CapacityExceededError{Need: len(p), Remaining: Capacity}
	}
	b := NewBuffer()
	copy(b.contents[:], p)
	return b, nil
}

// Encode writes values in order into a fresh buffer.
func Encode(values ...protocol.Value) (*Buffer, error) {
	b := NewBuffer()
	for _, v := range values {
		if err := b.Write(v); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Bytes returns the full fixed-size contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.contents[:]
}

// Position returns the cursor offset.
func (b *Buffer) Position() int {
	return b.position
}

// Remaining returns how many bytes are left between the cursor and the capacity.
func (b *Buffer) Remaining() int {
	return Capacity - b.position
}

// Rewind moves the cursor back to 0. Contents are untouched.
func (b *Buffer) Rewind() {
	b.position = 0
}

// Size returns the number of bytes v occupies once encoded.
func Size(v protocol.Value) int {
	switch v.Kind() {
	case protocol.KindString:
		s, _ := v.AsString()
		return tagSize + lengthSize + len(s)
	case protocol.KindReal:
		return tagSize + realSize
	case protocol.KindArray:
		elems, _ := v.AsArray()
		n := tagSize + lengthSize
		for _, e := range elems {
			n += Size(e)
		}
		return n
	default:
		return tagSize
	}
}

// Write appends v at the cursor. When v does not fit, Write returns a
// *CapacityExceededError and leaves the buffer unchanged.
func (b *Buffer) Write(v protocol.Value) error {
	if need := Size(v); need > b.Remaining() {
		return &CapacityExceededError{Need: need, Remaining: b.Remaining()}
	}
	b.encode(v)
	return nil
}

// WriteByte appends a single raw byte.
func (b *Buffer) WriteByte(c byte) error {
	if b.Remaining() < 1 {
		return &CapacityExceededError{Need: 1, Remaining: 0}
	}
	b.contents[b.position] = c
	b.position++
	return nil
}

// encode assumes the caller already checked that v fits.
func (b *Buffer) encode(v protocol.Value) {
	b.putByte(byte(v.Kind()))

	switch v.Kind() {
	case protocol.KindString:
		s, _ := v.AsString()
		b.putLength(len(s))
		b.position += copy(b.contents[b.position:], s)
	case protocol.KindReal:
		f, _ := v.AsReal()
		binary.LittleEndian.PutUint64(b.contents[b.position:], math.Float64bits(f))
		b.position += realSize
	case protocol.KindArray:
		elems, _ := v.AsArray()
		b.putLength(len(elems))
		for _, e := range elems {
			b.encode(e)
		}
	}
}

func (b *Buffer) putByte(c byte) {
	b.contents[b.position] = c
	b.position++
}

func (b *Buffer) putLength(n int) {
	binary.LittleEndian.PutUint32(b.contents[b.position:], uint32(int32(n)))
	b.position += lengthSize
}

// Read decodes one value at the cursor and advances past it.
// Corrupt contents yield a *MalformedPayloadError; the cursor is then left
// at an unspecified offset inside the bad value.
func (b *Buffer) Read() (protocol.Value, error) {
	start := b.position
	tag, err := b.ReadByte()
	if err != nil {
		return protocol.Value{}, err
	}

	switch kind := protocol.Kind(tag); kind {
	case protocol.KindUndefined:
		return protocol.Undefined(), nil

	case protocol.KindString:
		n, err := b.readLength()
		if err != nil {
			return protocol.Value{}, err
		}
		if n > b.Remaining() {
			return protocol.Value{}, b.malformed(start, fmt.Sprintf("string length %d exceeds %d remaining bytes", n, b.Remaining()))
		}
		s := string(b.contents[b.position : b.position+n])
		b.position += n
		return protocol.NewString(s), nil

	case protocol.KindReal:
		if b.Remaining() < realSize {
			return protocol.Value{}, b.malformed(start, "truncated real")
		}
		bits := binary.LittleEndian.Uint64(b.contents[b.position:])
		b.position += realSize
		return protocol.NewReal(math.Float64frombits(bits)), nil

	case protocol.KindArray:
		n, err := b.readLength()
		if err != nil {
			return protocol.Value{}, err
		}
		// Every element takes at least its tag byte.
		if n > b.Remaining() {
			return protocol.Value{}, b.malformed(start, fmt.Sprintf("array count %d exceeds %d remaining bytes", n, b.Remaining()))
		}
		elems := make([]protocol.Value, n)
		for i := range elems {
			if elems[i], err = b.Read(); err != nil {
				return protocol.Value{}, err
			}
		}
		return protocol.NewArray(elems...), nil

	default:
		return protocol.Value{}, b.malformed(start, fmt.Sprintf("unknown tag %d", tag))
	}
}

// ReadByte consumes a single raw byte.
func (b *Buffer) ReadByte() (byte, error) {
	if b.Remaining() < 1 {
		return 0, b.malformed(b.position, "read past end of buffer")
	}
	c := b.contents[b.position]
	b.position++
	return c, nil
}

// ReadReal reads one value and narrows it to a Real.
func (b *Buffer) ReadReal() (float64, error) {
	v, err := b.Read()
	if err != nil {
		return 0, err
	}
	return v.ToReal()
}

// ReadString reads one value and narrows it to a String.
func (b *Buffer) ReadString() (string, error) {
	v, err := b.Read()
	if err != nil {
		return "", err
	}
	return v.ToString()
}

// ReadArray reads one value and narrows it to an Array.
func (b *Buffer) ReadArray() ([]protocol.Value, error) {
	v, err := b.Read()
	if err != nil {
		return nil, err
	}
	return v.ToArray()
}

func (b *Buffer) readLength() (int, error) {
	start := b.position
	if b.Remaining() < lengthSize {
		return 0, b.malformed(start, "truncated length prefix")
	}
	n := int32(binary.LittleEndian.Uint32(b.contents[b.position:]))
	b.position += lengthSize
	if n < 0 {
		return 0, b.malformed(start, fmt.Sprintf("negative length %d", n))
	}
	return int(n), nil
}

func (b *Buffer) malformed(offset int, reason string) error {
	return &MalformedPayloadError{Offset: offset, Reason: reason}
}
