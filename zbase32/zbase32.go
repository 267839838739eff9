// Package zbase32 implements Zooko's human-friendly base-32 alphabet, used
// for the hand-transcribable fallback text path. It is intentionally
// distinct from RFC 4648 base32.
package zbase32

import "ethernity.dev/core/errs"

// Alphabet is the exact z-base-32 alphabet, byte-exact per the external
// interface contract.
const Alphabet = "ybndrfg8ejkmcpqxot1uwisza345h769"

var reverse [128]int8

func init() {
	for i := range reverse {
		reverse[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		reverse[Alphabet[i]] = int8(i)
	}
}

// Encode packs data MSB-first into 5-bit groups. A trailing partial group
// is left-shifted to fill a final 5-bit unit; there is no padding
// character, so Encode(nil) is "".
func Encode(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	out := make([]byte, 0, (len(data)*8+4)/5)
	var bits uint32
	var bitCount uint

	for _, b := range data {
		bits = (bits << 8) | uint32(b)
		bitCount += 8
		for bitCount >= 5 {
			shift := bitCount - 5
			idx := (bits >> shift) & 0x1f
			out = append(out, Alphabet[idx])
			bitCount -= 5
			bits &= (1 << bitCount) - 1
		}
	}

	if bitCount > 0 {
		idx := (bits << (5 - bitCount)) & 0x1f
		out = append(out, Alphabet[idx])
	}

	return string(out)
}

// Decode lowercases the input, ignores ASCII whitespace and '-', rejects
// any other non-alphabet character, then unpacks 5-bit groups back to
// bytes, dropping a trailing partial byte.
func Decode(text string) ([]byte, error) {
	var out []byte
	var bits uint32
	var bitCount uint

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f' || c == '-' {
			continue
		}
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c >= 128 || reverse[c] < 0 {
			return nil, errs.Newf(errs.InvalidInput, "zbase32: invalid character %q", text[i])
		}
		bits = (bits << 5) | uint32(reverse[c])
		bitCount += 5
		if bitCount >= 8 {
			shift := bitCount - 8
			out = append(out, byte(bits>>shift))
			bitCount -= 8
			bits &= (1 << bitCount) - 1
		}
	}

	return out, nil
}
