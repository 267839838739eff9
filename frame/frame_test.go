package frame

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math/rand"
	"testing"

	"ethernity.dev/core/errs"
)

func crc32ChecksumForTest(body []byte) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, crc32.ChecksumIEEE(body))
	return out
}

func sampleDocID() [DocIDLen]byte {
	var id [DocIDLen]byte
	for i := range id {
		id[i] = byte(i + 1)
	}
	return id
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f, err := New(Version, TypeMainDocument, sampleDocID(), 2, 5, []byte("hello"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	enc, err := Encode(f, false)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Version != f.Version || got.FrameType != f.FrameType || got.DocID != f.DocID ||
		got.Index != f.Index || got.Total != f.Total || !bytes.Equal(got.Data, f.Data) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, f)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	f, _ := New(Version, TypeAuth, sampleDocID(), 0, 1, []byte("x"))
	enc, _ := Encode(f, false)
	enc[0] = 'Z'
	if _, err := Decode(enc); !errs.Is(err, errs.BadMagic) {
		t.Fatalf("expected BadMagic, got %v", err)
	}
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	if _, err := Decode([]byte{'A', 'P'}); !errs.Is(err, errs.Truncated) {
		t.Fatalf("expected Truncated, got %v", err)
	}
}

func TestDecodeRejectsCrcCorruption(t *testing.T) {
	f, _ := New(Version, TypeAuth, sampleDocID(), 0, 1, []byte("payload"))
	enc, _ := Encode(f, false)
	for i := range enc {
		corrupt := append([]byte{}, enc...)
		corrupt[i] ^= 0xff
		_, err := Decode(corrupt)
		if err == nil {
			t.Fatalf("byte %d: corruption went undetected", i)
		}
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	f, _ := New(Version, TypeAuth, sampleDocID(), 0, 1, []byte("payload"))
	enc, _ := Encode(f, false)
	enc = append(enc, 0x00)
	if _, err := Decode(enc); err == nil {
		t.Fatal("expected trailing bytes to be rejected")
	}
}

func TestDecodeRejectsIndexGEQTotal(t *testing.T) {
	// Index >= total can't be produced via New/Encode (both validate the
	// invariant), so build the malformed wire bytes directly to exercise
	// Decode's own check against a hand-crafted payload.
	body := append([]byte{}, Magic[:]...)
	body = append(body, 0x01)                // varint(version)=1
	body = append(body, byte(TypeMainDocument))
	docID := sampleDocID()
	body = append(body, docID[:]...)
	body = append(body, 0x03) // varint(index)=3
	body = append(body, 0x03) // varint(total)=3
	body = append(body, 0x01, 'x')
	crc := crc32ChecksumForTest(body)
	enc := append(body, crc...)
	if _, err := Decode(enc); !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestEncodeRejectsEmptyDataInStrictMode(t *testing.T) {
	f := Frame{Version: Version, FrameType: TypeMainDocument, DocID: sampleDocID(), Index: 0, Total: 1, Data: nil}
	if _, err := Encode(f, false); err == nil {
		t.Fatal("expected empty data to be rejected in strict mode")
	}
	if _, err := Encode(f, true); err != nil {
		t.Fatalf("permissive mode should allow empty data: %v", err)
	}
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	f, _ := New(Version, TypeAuth, sampleDocID(), 0, 1, []byte("payload"))
	enc, _ := Encode(f, false)
	truncated := enc[:len(enc)-2]
	if _, err := Decode(truncated); err == nil {
		t.Fatal("expected truncated frame to fail")
	}
}

func TestRoundTripRandomFrames(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []Type{TypeMainDocument, TypeKeyDocument, TypeChecksum, TypeManifest, TypeAuth}
	for i := 0; i < 500; i++ {
		var id [DocIDLen]byte
		rng.Read(id[:])
		total := uint64(rng.Intn(20) + 1)
		index := uint64(rng.Intn(int(total)))
		data := make([]byte, rng.Intn(64)+1)
		rng.Read(data)
		f, err := New(Version, types[rng.Intn(len(types))], id, index, total, data)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		enc, err := Encode(f, false)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := Decode(enc)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Version != f.Version || got.FrameType != f.FrameType || got.DocID != f.DocID ||
			got.Index != f.Index || got.Total != f.Total || !bytes.Equal(got.Data, f.Data) {
			t.Fatalf("round trip mismatch at iteration %d", i)
		}
	}
}
