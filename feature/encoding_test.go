package feature

import (
	"errors"
	"testing"
)

func TestEncodeDecodeVector_RoundTrip(t *testing.T) {
	orig := []float32{0.0, 0.125, 0.5, 0.375}

	b, err := EncodeVector(orig)
	if err != nil {
		t.Fatalf("EncodeVector failed: %v", err)
	}

	decoded, err := DecodeVector(b)
	if err != nil {
		t.Fatalf("DecodeVector failed: %v", err)
	}
	if len(decoded) != len(orig) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(orig))
	}
	for i := range orig {
		if got, want := decoded[i], orig[i]; got != want {
			t.Fatalf("decoded[%d] = %v, want %v", i, got, want)
		}
	}
}

func TestEncodeDecodeVector_Empty(t *testing.T) {
	b, err := EncodeVector(nil)
	if err != nil {
		t.Fatalf("EncodeVector(nil) failed: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("expected empty blob for nil slice, got len=%d", len(b))
	}
	vec, err := DecodeVector(nil)
	if err != nil {
		t.Fatalf("DecodeVector(nil) failed: %v", err)
	}
	if len(vec) != 0 {
		t.Fatalf("expected empty slice for nil blob, got len=%d", len(vec))
	}
}

func TestDecodeVector_BadLength(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("DecodeVector(3 bytes) err = %v, want ErrInvalidInput", err)
	}
}
