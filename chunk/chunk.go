// Package chunk implements the balanced split of ciphertext into MAIN
// frames and its inverse (spec C7).
package chunk

import (
	"sort"

	"ethernity.dev/core/errs"
	"ethernity.dev/core/frame"
)

// ChunkPayload splits data into len-balanced frames: total = ceil(len /
// chunkSize); frames differ in size by at most one byte and none exceeds
// chunkSize, which keeps the resulting QR grid visually uniform. Empty
// payloads are rejected; chunk_size must be positive.
func ChunkPayload(data []byte, docID [frame.DocIDLen]byte, frameType frame.Type, chunkSize int) ([]frame.Frame, error) {
	if len(data) == 0 {
		return nil, errs.New(errs.InvalidInput, "chunk: payload cannot be empty")
	}
	if chunkSize <= 0 {
		return nil, errs.New(errs.InvalidInput, "chunk: chunk_size must be positive")
	}

	total := (len(data) + chunkSize - 1) / chunkSize
	base := len(data) / total
	rem := len(data) % total

	frames := make([]frame.Frame, total)
	offset := 0
	for i := 0; i < total; i++ {
		size := base
		if i < rem {
			size++
		}
		f, err := frame.New(frame.Version, frameType, docID, uint64(i), uint64(total), data[offset:offset+size])
		if err != nil {
			return nil, err
		}
		frames[i] = f
		offset += size
	}
	return frames, nil
}

// ReassemblePayload inverts ChunkPayload. It takes (doc_id, frame_type,
// total, version) from frames[0] unless expectedDocID/expectedFrameType
// override them; every frame must agree on all four fields, a duplicate
// index is fatal, and the frame count must equal total before
// concatenating in ascending index order.
func ReassemblePayload(frames []frame.Frame, expectedDocID *[frame.DocIDLen]byte, expectedFrameType *frame.Type) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errs.New(errs.MissingFrame, "chunk: no frames to reassemble")
	}

	docID := frames[0].DocID
	if expectedDocID != nil {
		docID = *expectedDocID
	}
	frameType := frames[0].FrameType
	if expectedFrameType != nil {
		frameType = *expectedFrameType
	}
	version := frames[0].Version
	total := frames[0].Total

	byIndex := make(map[uint64]frame.Frame, len(frames))
	for _, f := range frames {
		if f.DocID != docID {
			return nil, errs.New(errs.InvalidInput, "chunk: doc_id mismatch among frames")
		}
		if f.FrameType != frameType {
			return nil, errs.New(errs.InvalidInput, "chunk: frame_type mismatch among frames")
		}
		if f.Version != version {
			return nil, errs.New(errs.InvalidInput, "chunk: version mismatch among frames")
		}
		if f.Total != total {
			return nil, errs.New(errs.InvalidInput, "chunk: total mismatch among frames")
		}
		if _, dup := byIndex[f.Index]; dup {
			return nil, errs.Newf(errs.DuplicateKey, "chunk: duplicate frame at index %d", f.Index)
		}
		byIndex[f.Index] = f
	}

	if uint64(len(byIndex)) != total {
		return nil, errs.Newf(errs.MissingFrame, "chunk: have %d of %d frames", len(byIndex), total)
	}

	indices := make([]uint64, 0, len(byIndex))
	for idx := range byIndex {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	var out []byte
	for _, idx := range indices {
		out = append(out, byIndex[idx].Data...)
	}
	return out, nil
}
