package codec

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/woxQAQ/pnbridge/pkg/protocol"
)

func nested(depth int, leaf protocol.Value) protocol.Value {
	v := leaf
	for i := 0; i < depth; i++ {
		v = protocol.NewArray(v, protocol.NewReal(float64(i)))
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		value protocol.Value
	}{
		{"undefined", protocol.Undefined()},
		{"empty string", protocol.NewString("")},
		{"string", protocol.NewString("print_roots")},
		{"high bytes", protocol.NewString("\x00\xff\xe9")},
		{"real", protocol.NewReal(3.5)},
		{"negative zero", protocol.NewReal(math.Copysign(0, -1))},
		{"infinity", protocol.NewReal(math.Inf(-1))},
		{"nan", protocol.NewReal(math.NaN())},
		{"empty array", protocol.NewArray()},
		{"mixed array", protocol.NewArray(protocol.Undefined(), protocol.NewString("a"), protocol.NewReal(-1), protocol.NewArray())},
		{"depth 5", nested(5, protocol.NewString("leaf"))},
		{"depth 64", nested(64, protocol.NewArray())},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := NewBuffer()
			if err := buf.Write(tc.value); err != nil {
				t.Fatalf("Write() failed: %v", err)
			}
			if buf.Position() != Size(tc.value) {
				t.Errorf("Position() = %d, Size() = %d", buf.Position(), Size(tc.value))
			}

			buf.Rewind()
			got, err := buf.Read()
			if err != nil {
				t.Fatalf("Read() failed: %v", err)
			}
			if diff := cmp.Diff(tc.value, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if buf.Position() != Size(tc.value) {
				t.Errorf("Read() consumed %d bytes, want %d", buf.Position(), Size(tc.value))
			}
		})
	}
}

func TestSequentialValues(t *testing.T) {
	buf, err := Encode(protocol.NewReal(1), protocol.NewReal(-3), protocol.NewReal(2))
	if err != nil {
		t.Fatal(err)
	}
	buf.Rewind()

	for _, want := range []float64{1, -3, 2} {
		got, err := buf.ReadReal()
		if err != nil {
			t.Fatalf("ReadReal() failed: %v", err)
		}
		if got != want {
			t.Errorf("ReadReal() = %v, want %v", got, want)
		}
	}
}

func TestWireLayout(t *testing.T) {
	buf, err := Encode(protocol.NewArray(protocol.NewString("ab"), protocol.NewReal(1)))
	if err != nil {
		t.Fatal(err)
	}

	want := []byte{
		3, 2, 0, 0, 0, // array, 2 elements
		1, 2, 0, 0, 0, 'a', 'b', // string "ab"
		2, 0, 0, 0, 0, 0, 0, 0xf0, 0x3f, // real 1.0
	}
	if diff := cmp.Diff(want, buf.Bytes()[:len(want)]); diff != "" {
		t.Errorf("wire layout mismatch (-want +got):\n%s", diff)
	}
}

func TestCapacityBoundary(t *testing.T) {
	// tag + length prefix + payload fills the buffer exactly.
	exact := protocol.NewString(strings.Repeat("x", Capacity-5))

	buf := NewBuffer()
	if err := buf.Write(exact); err != nil {
		t.Fatalf("exact fit should succeed: %v", err)
	}
	if buf.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", buf.Remaining())
	}
	if err := buf.WriteByte(0); err == nil {
		t.Error("WriteByte() on a full buffer should fail")
	}

	over := protocol.NewString(strings.Repeat("x", Capacity-4))
	buf = NewBuffer()
	err := buf.Write(over)
	if err == nil {
		t.Fatal("exceeding capacity by one byte should fail")
	}

	var capErr *CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityExceededError, got %T", err)
	}
	if capErr.Need != Capacity+1 || capErr.Remaining != Capacity {
		t.Errorf("unexpected error fields: %+v", capErr)
	}
	if buf.Position() != 0 {
		t.Errorf("failed Write() moved the cursor to %d", buf.Position())
	}
}

func TestCapacityBoundaryAfterPrefix(t *testing.T) {
	buf := NewBuffer()
	if err := buf.Write(protocol.NewReal(1)); err != nil {
		t.Fatal(err)
	}

	fits := protocol.NewString(strings.Repeat("y", buf.Remaining()-5))
	tooBig := protocol.NewString(strings.Repeat("y", buf.Remaining()-4))

	if err := buf.Write(tooBig); err == nil {
		t.Fatal("Write() should fail when one byte short")
	}
	if err := buf.Write(fits); err != nil {
		t.Fatalf("Write() of remaining-size value failed: %v", err)
	}
}

func TestFromBytes(t *testing.T) {
	src, err := Encode(protocol.NewString("hello"))
	if err != nil {
		t.Fatal(err)
	}

	buf, err := FromBytes(src.Bytes())
	if err != nil {
		t.Fatalf("FromBytes() failed: %v", err)
	}
	if buf.Position() != 0 {
		t.Errorf("FromBytes() should rewind, position = %d", buf.Position())
	}

	s, err := buf.ReadString()
	if err != nil || s != "hello" {
		t.Errorf("ReadString() = %q, %v", s, err)
	}

	if _, err := FromBytes(make([]byte, Capacity+1)); err == nil {
		t.Error("FromBytes() should reject input larger than the capacity")
	}
}

func TestMalformedPayloads(t *testing.T) {
	le := func(n int32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(n))
		return b
	}

	cases := []struct {
		name    string
		payload []byte
	}{
		{"unknown tag", []byte{9}},
		{"negative string length", append([]byte{1}, le(-1)...)},
		{"string longer than buffer", append([]byte{1}, le(Capacity)...)},
		{"negative array count", append([]byte{3}, le(-7)...)},
		{"array count past capacity", append([]byte{3}, le(math.MaxInt32)...)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf, err := FromBytes(tc.payload)
			if err != nil {
				t.Fatal(err)
			}

			_, err = buf.Read()
			var malformed *MalformedPayloadError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedPayloadError, got %v", err)
			}
		})
	}
}

func TestTruncatedAtEnd(t *testing.T) {
	buf := NewBuffer()
	// Move the cursor so that only a tag byte fits before the end.
	if err := buf.Write(protocol.NewString(strings.Repeat("z", Capacity-6))); err != nil {
		t.Fatal(err)
	}
	if err := buf.WriteByte(byte(protocol.KindReal)); err != nil {
		t.Fatal(err)
	}

	buf.Rewind()
	if _, err := buf.Read(); err != nil {
		t.Fatal(err)
	}
	if _, err := buf.Read(); err == nil {
		t.Error("Read() of a real truncated by the capacity should fail")
	}
	if _, err := buf.Read(); err == nil {
		t.Error("Read() past the end should fail")
	}
}

func TestReadNarrowingMismatch(t *testing.T) {
	buf, err := Encode(protocol.NewString("not a number"))
	if err != nil {
		t.Fatal(err)
	}
	buf.Rewind()

	_, err = buf.ReadReal()
	var mismatch *protocol.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	err := &CapacityExceededError{Need: 10, Remaining: 3}
	expected := "buffer capacity exceeded: need 10 bytes, 3 remaining"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}

	merr := &MalformedPayloadError{Offset: 4, Reason: "unknown tag 9"}
	expected = "malformed payload at offset 4: unknown tag 9"
	if merr.Error() != expected {
		t.Errorf("Error message = %s, want %s", merr.Error(), expected)
	}
}
