// Package signing implements the Ed25519 auth and shard-share signatures
// (spec C10) and the CBOR codec for AuthPayload, the simpler of the two
// signed wire shapes. ShardPayload lives in the shamir package since its
// shape is otherwise entirely about secret sharing.
package signing

import (
	"crypto/ed25519"

	"github.com/fxamacker/cbor/v2"

	"ethernity.dev/core/errs"
)

// SeedLen is the width of an Ed25519 private seed, as distinct from the
// larger expanded private key crypto/ed25519 otherwise hands out.
const SeedLen = ed25519.SeedSize

// PubLen is the width of an Ed25519 public key.
const PubLen = ed25519.PublicKeySize

// SigLen is the width of an Ed25519 signature.
const SigLen = ed25519.SignatureSize

// GenerateKeypair draws a fresh Ed25519 seed from the platform CSPRNG and
// derives its public key.
func GenerateKeypair() (seed [SeedLen]byte, pub [PubLen]byte, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return seed, pub, errs.Newf(errs.InvalidInput, "signing: key generation: %v", err)
	}
	copy(seed[:], privKey.Seed())
	copy(pub[:], pubKey)
	return seed, pub, nil
}

func expand(seed [SeedLen]byte) ed25519.PrivateKey {
	return ed25519.NewKeyFromSeed(seed[:])
}

// SignAuth signs doc_hash with seed: sig = Ed25519_sign(seed, doc_hash).
func SignAuth(seed [SeedLen]byte, docHash [32]byte) [SigLen]byte {
	var sig [SigLen]byte
	copy(sig[:], ed25519.Sign(expand(seed), docHash[:]))
	return sig
}

// VerifyAuth checks an auth signature against pub and doc_hash.
func VerifyAuth(pub [PubLen]byte, docHash [32]byte, sig [SigLen]byte) bool {
	return ed25519.Verify(pub[:], docHash[:], sig[:])
}

// shardMessage builds doc_hash · u8(share_index) · share, the message a
// shard signature covers.
func shardMessage(docHash [32]byte, shareIndex uint8, share []byte) []byte {
	msg := make([]byte, 0, 32+1+len(share))
	msg = append(msg, docHash[:]...)
	msg = append(msg, shareIndex)
	msg = append(msg, share...)
	return msg
}

// SignShard signs a Shamir share: sig = Ed25519_sign(seed, doc_hash ||
// u8(share_index) || share).
func SignShard(seed [SeedLen]byte, docHash [32]byte, shareIndex uint8, share []byte) [SigLen]byte {
	var sig [SigLen]byte
	copy(sig[:], ed25519.Sign(expand(seed), shardMessage(docHash, shareIndex, share)))
	return sig
}

// VerifyShard checks a shard signature.
func VerifyShard(pub [PubLen]byte, docHash [32]byte, shareIndex uint8, share []byte, sig [SigLen]byte) bool {
	return ed25519.Verify(pub[:], shardMessage(docHash, shareIndex, share), sig[:])
}

// AuthPayloadVersion is the only AuthPayload wire version this package
// produces or accepts.
const AuthPayloadVersion = 1

// AuthPayload is the AUTH frame's decoded content: a commitment to
// doc_hash plus the signature proving the holder of seed produced it.
type AuthPayload struct {
	DocHash   [32]byte
	SignPub   [PubLen]byte
	Signature [SigLen]byte
}

// ToCBOR serialises an AuthPayload as the fixed-order array
// [ version=1, doc_hash, sign_pub, signature ].
func ToCBOR(p AuthPayload) ([]byte, error) {
	row := []interface{}{
		uint64(AuthPayloadVersion),
		p.DocHash[:],
		p.SignPub[:],
		p.Signature[:],
	}
	return cbor.Marshal(row)
}

// FromCBOR is the inverse of ToCBOR.
func FromCBOR(data []byte) (AuthPayload, error) {
	var row []interface{}
	if err := cbor.Unmarshal(data, &row); err != nil {
		return AuthPayload{}, errs.Newf(errs.InvalidInput, "signing: malformed auth payload cbor: %v", err)
	}
	if len(row) != 4 {
		return AuthPayload{}, errs.Newf(errs.InvalidInput, "signing: auth payload has %d fields, want 4", len(row))
	}
	version, err := asUint64(row[0])
	if err != nil {
		return AuthPayload{}, err
	}
	if version != AuthPayloadVersion {
		return AuthPayload{}, errs.Newf(errs.UnsupportedVersion, "signing: auth payload version %d unsupported", version)
	}
	docHash, err := fixedBytes(row[1], 32, "doc_hash")
	if err != nil {
		return AuthPayload{}, err
	}
	signPub, err := fixedBytes(row[2], PubLen, "sign_pub")
	if err != nil {
		return AuthPayload{}, err
	}
	signature, err := fixedBytes(row[3], SigLen, "signature")
	if err != nil {
		return AuthPayload{}, err
	}
	var p AuthPayload
	copy(p.DocHash[:], docHash)
	copy(p.SignPub[:], signPub)
	copy(p.Signature[:], signature)
	return p, nil
}

func asUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, errs.New(errs.InvalidInput, "signing: expected non-negative integer")
		}
		return uint64(n), nil
	default:
		return 0, errs.New(errs.InvalidInput, "signing: expected integer")
	}
}

func fixedBytes(v interface{}, want int, field string) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok || len(b) != want {
		return nil, errs.Newf(errs.InvalidInput, "signing: %s must be %d bytes", field, want)
	}
	return b, nil
}
