// Package qrcodec presents a frame's bytes for a QR-code renderer, either
// as raw binary or as base64 text (spec C8). It knows nothing about QR
// symbology itself; that is the external renderer's job.
package qrcodec

import (
	"encoding/base64"
	"strings"

	"ethernity.dev/core/errs"
)

// Encoding names the two presentations a renderer can ask for. Aliases
// ("raw", "b64") are accepted by Normalize.
type Encoding string

const (
	Binary Encoding = "binary"
	Base64 Encoding = "base64"
)

// Normalize maps the accepted alias strings onto their canonical Encoding
// and rejects anything else.
func Normalize(s string) (Encoding, error) {
	switch s {
	case "binary", "raw":
		return Binary, nil
	case "base64", "b64":
		return Base64, nil
	default:
		return "", errs.Newf(errs.InvalidInput, "qrcodec: unknown encoding %q", s)
	}
}

// Encode presents frameBytes under the requested encoding. Base64 output
// has its trailing '=' padding stripped, since QR capacity is precious and
// Decode restores it.
func Encode(frameBytes []byte, encoding string) (string, error) {
	enc, err := Normalize(encoding)
	if err != nil {
		return "", err
	}
	switch enc {
	case Binary:
		return string(frameBytes), nil
	case Base64:
		return strings.TrimRight(base64.StdEncoding.EncodeToString(frameBytes), "="), nil
	default:
		panic("unreachable")
	}
}

// Decode is the inverse of Encode. For base64 it tolerates embedded
// whitespace and restores any stripped padding before decoding.
func Decode(payload string, encoding string) ([]byte, error) {
	enc, err := Normalize(encoding)
	if err != nil {
		return nil, err
	}
	switch enc {
	case Binary:
		return []byte(payload), nil
	case Base64:
		cleaned := stripWhitespace(payload)
		if rem := len(cleaned) % 4; rem != 0 {
			cleaned += strings.Repeat("=", 4-rem)
		}
		out, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			return nil, errs.Newf(errs.InvalidInput, "qrcodec: malformed base64: %v", err)
		}
		return out, nil
	default:
		panic("unreachable")
	}
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
