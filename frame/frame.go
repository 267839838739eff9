// Package frame implements the self-describing paper frame: the single
// record type that ends up as a QR code or a block of fallback text.
package frame

import (
	"encoding/binary"
	"hash/crc32"

	"ethernity.dev/core/errs"
	"ethernity.dev/core/varint"
)

// Magic is the two-byte prefix on every encoded frame.
var Magic = [2]byte{'A', 'P'}

// Version is the only frame format version this package knows how to
// produce; Decode accepts whatever version a frame claims and leaves
// version-gating to the caller (there has only ever been one).
const Version = 1

// DocIDLen is the fixed width of a frame's doc_id field.
const DocIDLen = 16

const crcLen = 4

// Type identifies what a Frame's data payload holds.
type Type byte

const (
	TypeMainDocument Type = 0x44 // 'D'
	TypeKeyDocument  Type = 0x4B // 'K'
	TypeChecksum     Type = 0x43 // 'C'
	TypeManifest     Type = 0x4D // 'M', reserved: never emitted by this pipeline
	TypeAuth         Type = 0x41 // 'A'
)

// Frame is the only on-paper unit. It is an immutable value: construct one
// with New (which validates shape) rather than a bare struct literal when
// the bytes will ever be re-serialized.
type Frame struct {
	Version   uint64
	FrameType Type
	DocID     [DocIDLen]byte
	Index     uint64
	Total     uint64
	Data      []byte
}

// New builds a Frame, validating the shape invariants that hold regardless
// of whether the frame will be re-encoded (index < total when total > 0,
// a 16-byte doc_id). Empty data is allowed here; Encode only forbids it
// when the caller asks for strict mode.
func New(version uint64, frameType Type, docID [DocIDLen]byte, index, total uint64, data []byte) (Frame, error) {
	f := Frame{
		Version:   version,
		FrameType: frameType,
		DocID:     docID,
		Index:     index,
		Total:     total,
		Data:      data,
	}
	if err := validate(f, true); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func validate(f Frame, allowEmpty bool) error {
	if f.Total > 0 && f.Index >= f.Total {
		return errs.New(errs.InvalidInput, "frame: index must be < total")
	}
	if !allowEmpty && f.Total == 0 {
		return errs.New(errs.InvalidInput, "frame: total must be positive")
	}
	if !allowEmpty && len(f.Data) == 0 {
		return errs.New(errs.InvalidInput, "frame: data cannot be empty")
	}
	return nil
}

// Encode serialises f as:
//
//	"AP" . varint(version) . u8(frame_type) . doc_id[16] . varint(index) .
//	varint(total) . varint(len(data)) . data . crc32_be(everything above)
//
// allowEmpty=false is the strict mode used when re-encoding a frame that
// must round-trip through Decode (Decode always requires non-empty data
// and total > 0); allowEmpty=true is for callers building a frame purely
// to inspect its bytes.
func Encode(f Frame, allowEmpty bool) ([]byte, error) {
	if err := validate(f, allowEmpty); err != nil {
		return nil, err
	}

	body := make([]byte, 0, 2+varint.MaxEncodedLen+1+DocIDLen+varint.MaxEncodedLen*3+len(f.Data))
	body = append(body, Magic[:]...)
	body = varint.AppendEncode(body, f.Version)
	body = append(body, byte(f.FrameType))
	body = append(body, f.DocID[:]...)
	body = varint.AppendEncode(body, f.Index)
	body = varint.AppendEncode(body, f.Total)
	body = varint.AppendEncode(body, uint64(len(f.Data)))
	body = append(body, f.Data...)

	crc := crc32.ChecksumIEEE(body)
	out := make([]byte, len(body)+crcLen)
	copy(out, body)
	binary.BigEndian.PutUint32(out[len(body):], crc)
	return out, nil
}

// Decode is the strict decoder used on the recovery side: it rejects bad
// magic, short buffers, a length claim that disagrees with the remainder,
// a CRC mismatch, a malformed doc_id, index >= total, and any trailing
// bytes after the CRC.
func Decode(payload []byte) (Frame, error) {
	if len(payload) < len(Magic)+crcLen {
		return Frame{}, errs.New(errs.Truncated, "frame: too short")
	}
	if payload[0] != Magic[0] || payload[1] != Magic[1] {
		return Frame{}, errs.New(errs.BadMagic, "frame: bad magic")
	}
	idx := len(Magic)

	version, idx, err := varint.Decode(payload, idx)
	if err != nil {
		return Frame{}, err
	}

	if idx >= len(payload) {
		return Frame{}, errs.New(errs.Truncated, "frame: missing frame type")
	}
	frameType := Type(payload[idx])
	idx++

	if idx+DocIDLen > len(payload) {
		return Frame{}, errs.New(errs.Truncated, "frame: missing doc_id")
	}
	var docID [DocIDLen]byte
	copy(docID[:], payload[idx:idx+DocIDLen])
	idx += DocIDLen

	index, idx, err := varint.Decode(payload, idx)
	if err != nil {
		return Frame{}, err
	}
	total, idx, err := varint.Decode(payload, idx)
	if err != nil {
		return Frame{}, err
	}
	dataLen, idx, err := varint.Decode(payload, idx)
	if err != nil {
		return Frame{}, err
	}

	if int64(idx)+int64(dataLen)+int64(crcLen) != int64(len(payload)) {
		return Frame{}, errs.New(errs.LengthMismatch, "frame: length mismatch")
	}

	data := payload[idx : idx+int(dataLen)]
	idx += int(dataLen)

	crcExpected := binary.BigEndian.Uint32(payload[idx : idx+crcLen])
	crcActual := crc32.ChecksumIEEE(payload[:idx])
	if crcExpected != crcActual {
		return Frame{}, errs.New(errs.BadCrc, "frame: crc mismatch")
	}

	f := Frame{
		Version:   version,
		FrameType: frameType,
		DocID:     docID,
		Index:     index,
		Total:     total,
		Data:      data,
	}
	if err := validate(f, false); err != nil {
		return Frame{}, err
	}
	return f, nil
}
