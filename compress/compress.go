// Package compress implements the optional zstd wrapper that sits between
// the envelope and the cipher (spec C6). The wrapper is always present on
// the wire, even when compression is disabled, so every ciphertext input
// is preceded by a known, self-describing header.
package compress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"

	"ethernity.dev/core/errs"
	"ethernity.dev/core/varint"
)

// Magic is the two-byte prefix on a compression-wrapped blob.
var Magic = [2]byte{'A', 'Z'}

// Version is the only wrapper format version this package knows.
const Version = 1

// Algo selects the payload transform.
type Algo uint64

const (
	AlgoNone Algo = 0
	AlgoZstd Algo = 1
)

// Wrap serialises data as:
//
//	"AZ" . varint(version) . varint(algo) . varint(raw_len) . varint(data_len) . data
//
// algo=AlgoNone passes data through unchanged (raw_len == data_len);
// algo=AlgoZstd stores data's zstd-compressed form.
func Wrap(data []byte, algo Algo) ([]byte, error) {
	var body []byte
	switch algo {
	case AlgoNone:
		body = data
	case AlgoZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errs.Newf(errs.InvalidInput, "compress: zstd writer: %v", err)
		}
		body = enc.EncodeAll(data, make([]byte, 0, len(data)))
		enc.Close()
	default:
		return nil, errs.Newf(errs.InvalidInput, "compress: unknown algo %d", algo)
	}

	out := make([]byte, 0, 2+varint.MaxEncodedLen*4+len(body))
	out = append(out, Magic[:]...)
	out = varint.AppendEncode(out, Version)
	out = varint.AppendEncode(out, uint64(algo))
	out = varint.AppendEncode(out, uint64(len(data)))
	out = varint.AppendEncode(out, uint64(len(body)))
	out = append(out, body...)
	return out, nil
}

// Unwrap is the inverse of Wrap. raw_len is used as a hard cap on the
// decompressed size so a hostile header cannot force unbounded allocation;
// the decoded length must match raw_len exactly.
func Unwrap(blob []byte) ([]byte, error) {
	if len(blob) < len(Magic) {
		return nil, errs.New(errs.Truncated, "compress: too short")
	}
	if blob[0] != Magic[0] || blob[1] != Magic[1] {
		return nil, errs.New(errs.BadMagic, "compress: bad magic")
	}
	idx := len(Magic)

	version, idx, err := varint.Decode(blob, idx)
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, errs.Newf(errs.UnsupportedVersion, "compress: version %d unsupported", version)
	}

	algo, idx, err := varint.Decode(blob, idx)
	if err != nil {
		return nil, err
	}
	rawLen, idx, err := varint.Decode(blob, idx)
	if err != nil {
		return nil, err
	}
	dataLen, idx, err := varint.Decode(blob, idx)
	if err != nil {
		return nil, err
	}
	if idx+int(dataLen) != len(blob) {
		return nil, errs.New(errs.LengthMismatch, "compress: data length mismatch")
	}
	data := blob[idx : idx+int(dataLen)]

	switch Algo(algo) {
	case AlgoNone:
		if dataLen != rawLen {
			return nil, errs.New(errs.LengthMismatch, "compress: raw_len disagrees with data_len for algo=none")
		}
		return data, nil
	case AlgoZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errs.Newf(errs.InvalidInput, "compress: zstd reader: %v", err)
		}
		defer dec.Close()
		// Reading one byte past raw_len is enough to detect an overlong
		// stream without decompressing the rest of it.
		out, err := io.ReadAll(io.LimitReader(dec, int64(rawLen)+1))
		if err != nil {
			return nil, errs.Newf(errs.InvalidInput, "compress: zstd decode: %v", err)
		}
		if uint64(len(out)) != rawLen {
			return nil, errs.New(errs.LengthMismatch, "compress: decompressed length disagrees with raw_len")
		}
		return out, nil
	default:
		return nil, errs.Newf(errs.InvalidInput, "compress: unknown algo %d", algo)
	}
}
