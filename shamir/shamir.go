// Package shamir implements GF(2^8) Shamir secret sharing of a passphrase
// or signing seed, block-wise over 16-byte units (spec C11), wrapping
// each resulting share as a signed ShardPayload.
package shamir

import (
	"github.com/fxamacker/cbor/v2"

	"ethernity.dev/core/errs"
	"ethernity.dev/core/signing"
)

// KeyType is the only value ever stored in ShardPayload.KeyType; the same
// string covers both passphrase shares and signing-seed shares.
const KeyType = "passphrase"

// ShardPayloadVersion is the only ShardPayload wire version this package
// produces or accepts.
const ShardPayloadVersion = 3

// ShardPayload is one party's share of a secret split by Shard, carrying
// enough bookkeeping and signature to be verified and cross-checked
// against its siblings independently of the others.
type ShardPayload struct {
	ShareIndex uint8
	Threshold  uint8
	ShareCount uint8
	KeyType    string
	Share      []byte
	SecretLen  uint64
	DocHash    [32]byte
	SignPub    [signing.PubLen]byte
	Signature  [signing.SigLen]byte
}

// Shard splits secret into shareCount ShardPayloads, any threshold of
// which can reconstruct it. docHash is the BLAKE2b-256 of the ciphertext
// the secret protects; seed is the Ed25519 signing seed used to sign
// every share.
func Shard(secret []byte, threshold, shareCount int, docHash [32]byte, seed [signing.SeedLen]byte, pub [signing.PubLen]byte) ([]ShardPayload, error) {
	if threshold < 1 {
		return nil, errs.New(errs.InvalidInput, "shamir: threshold must be >= 1")
	}
	if shareCount < threshold {
		return nil, errs.New(errs.InvalidInput, "shamir: share_count must be >= threshold")
	}
	if shareCount > 255 {
		return nil, errs.New(errs.InvalidInput, "shamir: share_count must be <= 255")
	}
	if len(secret) == 0 {
		return nil, errs.New(errs.InvalidInput, "shamir: secret cannot be empty")
	}

	perShare, err := splitSecretBlocks(systemRandReader, secret, threshold, shareCount)
	if err != nil {
		return nil, err
	}

	out := make([]ShardPayload, shareCount)
	for i := 0; i < shareCount; i++ {
		shareIndex := uint8(i + 1)
		sig := signing.SignShard(seed, docHash, shareIndex, perShare[i])
		out[i] = ShardPayload{
			ShareIndex: shareIndex,
			Threshold:  uint8(threshold),
			ShareCount: uint8(shareCount),
			KeyType:    KeyType,
			Share:      perShare[i],
			SecretLen:  uint64(len(secret)),
			DocHash:    docHash,
			SignPub:    pub,
			Signature:  sig,
		}
	}
	return out, nil
}

// Combine reconstructs the original secret from a set of ShardPayloads.
// Every share's signature and its threshold/share_count/secret_len/
// doc_hash/sign_pub must agree with the rest; a duplicate share_index is
// accepted only when byte-identical, fatal otherwise; at least threshold
// distinct indices are required.
func Combine(shares []ShardPayload) ([]byte, error) {
	if len(shares) == 0 {
		return nil, errs.New(errs.ShardInsufficient, "shamir: no shares supplied")
	}

	first := shares[0]
	if first.ShareIndex == 0 {
		return nil, errs.New(errs.InvalidInput, "shamir: share_index 0 is reserved")
	}

	byIndex := make(map[uint8]ShardPayload)
	for _, s := range shares {
		if s.ShareIndex == 0 || s.ShareIndex > 255 {
			return nil, errs.New(errs.InvalidInput, "shamir: share_index out of range")
		}
		if s.Threshold != first.Threshold || s.ShareCount != first.ShareCount ||
			s.SecretLen != first.SecretLen || s.DocHash != first.DocHash || s.SignPub != first.SignPub {
			return nil, errs.New(errs.InvalidInput, "shamir: inconsistent share metadata")
		}
		if !signing.VerifyShard(s.SignPub, s.DocHash, s.ShareIndex, s.Share, s.Signature) {
			return nil, errs.Newf(errs.SignatureInvalid, "shamir: invalid signature on share %d", s.ShareIndex)
		}
		if existing, dup := byIndex[s.ShareIndex]; dup {
			if string(existing.Share) != string(s.Share) {
				return nil, errs.Newf(errs.InvalidInput, "shamir: conflicting shares at index %d", s.ShareIndex)
			}
			continue
		}
		byIndex[s.ShareIndex] = s
	}

	if len(byIndex) < int(first.Threshold) {
		return nil, errs.Newf(errs.ShardInsufficient, "shamir: have %d distinct shares, need %d", len(byIndex), first.Threshold)
	}

	indices := make([]byte, 0, first.Threshold)
	shareBytes := make([][]byte, 0, first.Threshold)
	for idx, s := range byIndex {
		indices = append(indices, idx)
		shareBytes = append(shareBytes, s.Share)
		if len(indices) == int(first.Threshold) {
			break
		}
	}

	return combineSecretBlocks(indices, shareBytes, int(first.SecretLen))
}

// ToCBOR serialises a ShardPayload as the fixed-order array
// [ version=3, key_type, threshold, share_count, share_index, secret_len,
// share, doc_hash, sign_pub, signature ].
func ToCBOR(p ShardPayload) ([]byte, error) {
	row := []interface{}{
		uint64(ShardPayloadVersion),
		p.KeyType,
		uint64(p.Threshold),
		uint64(p.ShareCount),
		uint64(p.ShareIndex),
		p.SecretLen,
		p.Share,
		p.DocHash[:],
		p.SignPub[:],
		p.Signature[:],
	}
	return cbor.Marshal(row)
}

// FromCBOR is the inverse of ToCBOR.
func FromCBOR(data []byte) (ShardPayload, error) {
	var row []interface{}
	if err := cbor.Unmarshal(data, &row); err != nil {
		return ShardPayload{}, errs.Newf(errs.InvalidInput, "shamir: malformed shard payload cbor: %v", err)
	}
	if len(row) != 10 {
		return ShardPayload{}, errs.Newf(errs.InvalidInput, "shamir: shard payload has %d fields, want 10", len(row))
	}
	version, err := asUint64(row[0])
	if err != nil {
		return ShardPayload{}, err
	}
	if version != ShardPayloadVersion {
		return ShardPayload{}, errs.Newf(errs.UnsupportedVersion, "shamir: shard payload version %d unsupported", version)
	}
	keyType, ok := row[1].(string)
	if !ok {
		return ShardPayload{}, errs.New(errs.InvalidInput, "shamir: key_type not a string")
	}
	threshold, err := asUint64(row[2])
	if err != nil {
		return ShardPayload{}, err
	}
	shareCount, err := asUint64(row[3])
	if err != nil {
		return ShardPayload{}, err
	}
	shareIndex, err := asUint64(row[4])
	if err != nil {
		return ShardPayload{}, err
	}
	secretLen, err := asUint64(row[5])
	if err != nil {
		return ShardPayload{}, err
	}
	share, ok := row[6].([]byte)
	if !ok {
		return ShardPayload{}, errs.New(errs.InvalidInput, "shamir: share not bytes")
	}
	if len(share) == 0 || len(share)%blockSize != 0 {
		return ShardPayload{}, errs.New(errs.InvalidInput, "shamir: share length must be a positive multiple of 16")
	}
	docHashBytes, ok := row[7].([]byte)
	if !ok || len(docHashBytes) != 32 {
		return ShardPayload{}, errs.New(errs.InvalidInput, "shamir: doc_hash malformed")
	}
	signPubBytes, ok := row[8].([]byte)
	if !ok || len(signPubBytes) != signing.PubLen {
		return ShardPayload{}, errs.New(errs.InvalidInput, "shamir: sign_pub malformed")
	}
	signatureBytes, ok := row[9].([]byte)
	if !ok || len(signatureBytes) != signing.SigLen {
		return ShardPayload{}, errs.New(errs.InvalidInput, "shamir: signature malformed")
	}
	if threshold == 0 || shareCount < threshold || shareIndex == 0 || shareIndex > 255 {
		return ShardPayload{}, errs.New(errs.InvalidInput, "shamir: shard payload fields out of range")
	}

	var p ShardPayload
	p.KeyType = keyType
	p.Threshold = uint8(threshold)
	p.ShareCount = uint8(shareCount)
	p.ShareIndex = uint8(shareIndex)
	p.SecretLen = secretLen
	p.Share = share
	copy(p.DocHash[:], docHashBytes)
	copy(p.SignPub[:], signPubBytes)
	copy(p.Signature[:], signatureBytes)
	return p, nil
}

func asUint64(v interface{}) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case int64:
		if n < 0 {
			return 0, errs.New(errs.InvalidInput, "shamir: expected non-negative integer")
		}
		return uint64(n), nil
	default:
		return 0, errs.New(errs.InvalidInput, "shamir: expected integer")
	}
}
