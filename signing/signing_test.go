package signing

import (
	"testing"

	"github.com/fxamacker/cbor/v2"

	"ethernity.dev/core/errs"
)

func sampleDocHash(b byte) [32]byte {
	var h [32]byte
	for i := range h {
		h[i] = b
	}
	return h
}

func TestSignVerifyAuth(t *testing.T) {
	seed, pub, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	docHash := sampleDocHash(7)
	sig := SignAuth(seed, docHash)
	if !VerifyAuth(pub, docHash, sig) {
		t.Fatal("expected valid auth signature to verify")
	}
	docHash[0] ^= 0xff
	if VerifyAuth(pub, docHash, sig) {
		t.Fatal("expected tampered doc_hash to fail verification")
	}
}

func TestSignVerifyShard(t *testing.T) {
	seed, pub, _ := GenerateKeypair()
	docHash := sampleDocHash(3)
	share := []byte("0123456789abcdef")
	sig := SignShard(seed, docHash, 5, share)
	if !VerifyShard(pub, docHash, 5, share, sig) {
		t.Fatal("expected valid shard signature to verify")
	}
	if VerifyShard(pub, docHash, 6, share, sig) {
		t.Fatal("expected signature bound to a different share_index to fail")
	}
	tamperedShare := append([]byte{}, share...)
	tamperedShare[0] ^= 0xff
	if VerifyShard(pub, docHash, 5, tamperedShare, sig) {
		t.Fatal("expected signature bound to a different share to fail")
	}
}

func TestAuthPayloadCBORRoundTrip(t *testing.T) {
	_, pub, _ := GenerateKeypair()
	p := AuthPayload{DocHash: sampleDocHash(9), SignPub: pub, Signature: [SigLen]byte{1, 2, 3}}
	encoded, err := ToCBOR(p)
	if err != nil {
		t.Fatalf("ToCBOR: %v", err)
	}
	got, err := FromCBOR(encoded)
	if err != nil {
		t.Fatalf("FromCBOR: %v", err)
	}
	if got.DocHash != p.DocHash || got.SignPub != p.SignPub || got.Signature != p.Signature {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, p)
	}
}

func TestAuthPayloadFromCBORRejectsBadVersion(t *testing.T) {
	row := []interface{}{uint64(99), make([]byte, 32), make([]byte, PubLen), make([]byte, SigLen)}
	encoded, err := cbor.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := FromCBOR(encoded); !errs.Is(err, errs.UnsupportedVersion) {
		t.Fatalf("expected UnsupportedVersion, got %v", err)
	}
}

func TestAuthPayloadFromCBORRejectsWrongArity(t *testing.T) {
	row := []interface{}{uint64(1), make([]byte, 32)}
	encoded, err := cbor.Marshal(row)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := FromCBOR(encoded); !errs.Is(err, errs.InvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}
