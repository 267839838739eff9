// Package envelope implements the manifest + envelope container (spec C4,
// C5): the structured file list, its CBOR encoding, and the "AY"-magic
// byte container that glues a manifest to the concatenated bytes of every
// file it describes.
package envelope

import (
	"crypto/sha256"

	"ethernity.dev/core/errs"
	"ethernity.dev/core/varint"
)

// Magic is the two-byte prefix on an encoded Envelope.
var Magic = [2]byte{'A', 'Y'}

// Version is the only envelope format version this package produces or
// accepts.
const Version = 1

// EncodeEnvelope serialises a manifest and its payload as:
//
//	"AY" . varint(version) . varint(len(manifest_bytes)) . manifest_bytes .
//	varint(len(payload)) . payload
func EncodeEnvelope(m Manifest, payload []byte) ([]byte, error) {
	manifestBytes, err := ToCBOR(m)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 2+varint.MaxEncodedLen*3+len(manifestBytes)+len(payload))
	out = append(out, Magic[:]...)
	out = varint.AppendEncode(out, Version)
	out = varint.AppendEncode(out, uint64(len(manifestBytes)))
	out = append(out, manifestBytes...)
	out = varint.AppendEncode(out, uint64(len(payload)))
	out = append(out, payload...)
	return out, nil
}

// DecodeEnvelope is the inverse of EncodeEnvelope. It checks the magic,
// the version, and that the manifest and payload lengths exactly consume
// the buffer with no trailing bytes.
func DecodeEnvelope(data []byte) (Manifest, []byte, error) {
	if len(data) < len(Magic) {
		return Manifest{}, nil, errs.New(errs.Truncated, "envelope: too short")
	}
	if data[0] != Magic[0] || data[1] != Magic[1] {
		return Manifest{}, nil, errs.New(errs.BadMagic, "envelope: bad magic")
	}
	idx := len(Magic)

	version, idx, err := varint.Decode(data, idx)
	if err != nil {
		return Manifest{}, nil, err
	}
	if version != Version {
		return Manifest{}, nil, errs.Newf(errs.UnsupportedVersion, "envelope: version %d unsupported", version)
	}

	manifestLen, idx, err := varint.Decode(data, idx)
	if err != nil {
		return Manifest{}, nil, err
	}
	if idx+int(manifestLen) > len(data) {
		return Manifest{}, nil, errs.New(errs.Truncated, "envelope: manifest truncated")
	}
	manifestBytes := data[idx : idx+int(manifestLen)]
	idx += int(manifestLen)

	payloadLen, idx, err := varint.Decode(data, idx)
	if err != nil {
		return Manifest{}, nil, err
	}
	if idx+int(payloadLen) != len(data) {
		return Manifest{}, nil, errs.New(errs.LengthMismatch, "envelope: payload length mismatch")
	}
	payload := data[idx : idx+int(payloadLen)]

	m, err := FromCBOR(manifestBytes)
	if err != nil {
		return Manifest{}, nil, err
	}
	return m, payload, nil
}

// ExtractedFile is one file recovered from an envelope's payload, with its
// integrity already verified against the manifest's recorded SHA-256.
type ExtractedFile struct {
	Path  string
	Data  []byte
	Mtime *int64
}

// ExtractPayloads slices payload according to m's file sizes (in manifest
// order) and verifies each slice's SHA-256 against the manifest. Any
// mismatch, or a payload whose total length disagrees with the sum of the
// manifest's file sizes, is fatal: a paper backup that doesn't reproduce
// its own manifest exactly is corrupt. Every path must also be non-empty,
// relative and free of ".." segments.
func ExtractPayloads(m Manifest, payload []byte) ([]ExtractedFile, error) {
	var total uint64
	for _, f := range m.Files {
		total += f.Size
	}
	if uint64(len(payload)) != total {
		return nil, errs.New(errs.LengthMismatch, "envelope: payload length disagrees with manifest")
	}

	out := make([]ExtractedFile, len(m.Files))
	offset := uint64(0)
	for i, f := range m.Files {
		if err := validatePath(f.Path); err != nil {
			return nil, err
		}
		chunk := payload[offset : offset+f.Size]
		offset += f.Size
		sum := sha256.Sum256(chunk)
		if sum != f.SHA256 {
			return nil, errs.Newf(errs.HashMismatch, "envelope: sha256 mismatch for %q", f.Path)
		}
		out[i] = ExtractedFile{Path: f.Path, Data: chunk, Mtime: f.Mtime}
	}
	return out, nil
}
