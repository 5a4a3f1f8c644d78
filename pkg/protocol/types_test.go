package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestKindTags(t *testing.T) {
	kinds := []Kind{
		KindUndefined,
		KindString,
		KindReal,
		KindArray,
	}

	for i, kind := range kinds {
		if kind != Kind(i) {
			t.Errorf("Kind mismatch: got %d, want %d", kind, i)
		}
		if !kind.Valid() {
			t.Errorf("Kind %s should be valid", kind)
		}
	}

	if Kind(4).Valid() {
		t.Error("Kind 4 should not be valid")
	}
}

func TestZeroValueIsUndefined(t *testing.T) {
	var v Value
	if !v.IsUndefined() {
		t.Errorf("zero Value kind = %s, want undefined", v.Kind())
	}
	if !v.Equal(Undefined()) {
		t.Error("zero Value should equal Undefined()")
	}
}

func TestAccessors(t *testing.T) {
	s, ok := NewString("abc").AsString()
	if !ok || s != "abc" {
		t.Errorf("AsString() = %q, %v", s, ok)
	}

	f, ok := NewReal(3.5).AsReal()
	if !ok || f != 3.5 {
		t.Errorf("AsReal() = %v, %v", f, ok)
	}

	a, ok := NewArray(NewReal(1), NewString("x")).AsArray()
	if !ok || len(a) != 2 {
		t.Errorf("AsArray() = %v, %v", a, ok)
	}

	if _, ok := NewReal(1).AsString(); ok {
		t.Error("AsString() on a Real should not succeed")
	}
}

func TestToAccessorsDoNotCoerce(t *testing.T) {
	_, err := NewString("3.5").ToReal()
	if err == nil {
		t.Fatal("ToReal() on a String should fail")
	}

	var mismatch *TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected TypeMismatchError, got %T", err)
	}
	if mismatch.Want != KindReal || mismatch.Got != KindString {
		t.Errorf("mismatch = %+v", mismatch)
	}

	expected := "type mismatch: expected real, got string"
	if err.Error() != expected {
		t.Errorf("Error message = %s, want %s", err.Error(), expected)
	}

	if _, err := Undefined().ToArray(); err == nil {
		t.Error("ToArray() on Undefined should fail")
	}
	if _, err := NewArray().ToString(); err == nil {
		t.Error("ToString() on an Array should fail")
	}
}

func TestEmptyArrayIsNotUndefined(t *testing.T) {
	v := NewArray()
	if v.Kind() != KindArray {
		t.Fatalf("NewArray() kind = %s", v.Kind())
	}
	a, err := v.ToArray()
	if err != nil {
		t.Fatal(err)
	}
	if a == nil || len(a) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", a)
	}
}

func TestEqual(t *testing.T) {
	nested := NewArray(NewReal(1), NewArray(NewString("a"), Undefined()))

	if !nested.Equal(NewArray(NewReal(1), NewArray(NewString("a"), Undefined()))) {
		t.Error("structurally identical arrays should be equal")
	}
	if nested.Equal(NewArray(NewReal(1), NewArray(NewString("b"), Undefined()))) {
		t.Error("arrays with different leaves should differ")
	}
	if NewReal(0).Equal(NewString("")) {
		t.Error("different kinds should differ")
	}
	if !NewReal(math.NaN()).Equal(NewReal(math.NaN())) {
		t.Error("identical NaN bit patterns should compare equal")
	}
}

func TestValueString(t *testing.T) {
	v := NewArray(NewReal(2), NewString("x"), Undefined(), NewArray())
	expected := `[2, "x", undefined, []]`
	if v.String() != expected {
		t.Errorf("String() = %s, want %s", v.String(), expected)
	}
}

func TestText(t *testing.T) {
	v, err := NewText("café")
	if err != nil {
		t.Fatalf("NewText() failed: %v", err)
	}

	raw, _ := v.AsString()
	if len(raw) != 4 {
		t.Errorf("expected 4 single-byte characters, got %d bytes", len(raw))
	}

	text, err := v.Text()
	if err != nil {
		t.Fatalf("Text() failed: %v", err)
	}
	if text != "café" {
		t.Errorf("Text() = %q, want %q", text, "café")
	}

	if _, err := NewText("日本"); err == nil {
		t.Error("NewText() should reject runes outside ISO-8859-1")
	}
}

func TestSignalString(t *testing.T) {
	if SignalHostCall != 1 || SignalNativeResult != 2 || SignalNativeError != 3 {
		t.Fatal("signal byte values changed")
	}
	if SignalNativeResult.String() != "native-result" {
		t.Errorf("String() = %s", SignalNativeResult.String())
	}
}
