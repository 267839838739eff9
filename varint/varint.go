// Package varint implements unsigned LEB128 variable-length integers, the
// length-prefix encoding used throughout the frame, envelope, and
// compression wire formats.
package varint

import "ethernity.dev/core/errs"

// MaxEncodedLen is the widest an encoded varint can be: 10 base-128 digits
// cover a full uint64.
const MaxEncodedLen = 10

// Encode returns the LEB128 encoding of v: base-128 digits, little-endian,
// with the continuation bit (0x80) set on every digit but the last.
func Encode(v uint64) []byte {
	out := make([]byte, 0, MaxEncodedLen)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// AppendEncode appends the LEB128 encoding of v to dst and returns the
// extended slice.
func AppendEncode(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
		} else {
			dst = append(dst, b)
			break
		}
	}
	return dst
}

// Decode reads one LEB128 value starting at off and returns the decoded
// value plus the offset just past it.
func Decode(buf []byte, off int) (uint64, int, error) {
	var value uint64
	var shift uint
	idx := off
	for {
		if idx >= len(buf) {
			return 0, 0, errs.New(errs.Truncated, "varint: truncated")
		}
		if shift > 63 {
			return 0, 0, errs.New(errs.Truncated, "varint: overflow")
		}
		b := buf[idx]
		idx++
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value, idx, nil
		}
		shift += 7
	}
}
