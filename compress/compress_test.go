package compress

import (
	"bytes"
	"strings"
	"testing"

	"ethernity.dev/core/errs"
)

func TestWrapUnwrapNone(t *testing.T) {
	data := []byte("hello world")
	blob, err := Wrap(data, AlgoNone)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	got, err := Unwrap(blob)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q want %q", got, data)
	}
}

func TestWrapUnwrapZstd(t *testing.T) {
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 200))
	blob, err := Wrap(data, AlgoZstd)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if len(blob) >= len(data) {
		t.Fatalf("expected compression to shrink repetitive input: blob=%d data=%d", len(blob), len(data))
	}
	got, err := Unwrap(blob)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("round trip mismatch")
	}
}

func TestWrapEmptyPayload(t *testing.T) {
	blob, err := Wrap(nil, AlgoZstd)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	got, err := Unwrap(blob)
	if err != nil {
		t.Fatalf("Unwrap: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %x", got)
	}
}

func TestUnwrapRejectsBadMagic(t *testing.T) {
	blob, _ := Wrap([]byte("x"), AlgoNone)
	blob[0] = 'Q'
	if _, err := Unwrap(blob); !errs.Is(err, errs.BadMagic) {
		t.Fatalf("expected BadMagic, got %v", err)
	}
}

func TestUnwrapRejectsTruncation(t *testing.T) {
	blob, _ := Wrap([]byte("hello"), AlgoNone)
	if _, err := Unwrap(blob[:len(blob)-1]); err == nil {
		t.Fatal("expected truncated blob to be rejected")
	}
}

func TestUnwrapRejectsUnknownAlgo(t *testing.T) {
	blob, _ := Wrap([]byte("x"), AlgoNone)
	// algo varint sits right after magic+version, both single bytes here.
	corrupt := append([]byte{}, blob...)
	corrupt[3] = 0x09
	if _, err := Unwrap(corrupt); !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}
