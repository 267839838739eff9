package paperbackup

import (
	"ethernity.dev/core/aead"
	"ethernity.dev/core/chunk"
	"ethernity.dev/core/compress"
	"ethernity.dev/core/envelope"
	"ethernity.dev/core/errs"
	"ethernity.dev/core/fallback"
	"ethernity.dev/core/frame"
	"ethernity.dev/core/qrcodec"
	"ethernity.dev/core/shamir"
	"ethernity.dev/core/signing"
)

// ParseCandidate is Stage A for a single candidate byte string: it tries,
// in order, QR binary payload, QR base64 payload, and a fallback
// z-base-32 line group, accepting the first that produces a valid Frame.
func ParseCandidate(candidate []byte) (frame.Frame, error) {
	if f, err := frame.Decode(candidate); err == nil {
		return f, nil
	}
	if decoded, err := qrcodec.Decode(string(candidate), "base64"); err == nil {
		if f, err := frame.Decode(decoded); err == nil {
			return f, nil
		}
	}
	if decoded, err := fallback.DecodeLines([]string{string(candidate)}); err == nil {
		if f, err := frame.Decode(decoded); err == nil {
			return f, nil
		}
	}
	return frame.Frame{}, errs.New(errs.InvalidInput, "paperbackup: candidate matched no known encoding")
}

type frameKey struct {
	frameType frame.Type
	docID     [frame.DocIDLen]byte
	index     uint64
	// share holds a KEY frame's data; it is empty for every other type.
	share string
}

// dedupeFrames implements Stage B's dedup-by-(frame_type, doc_id, index)
// rule: identical repeats collapse silently; conflicting bytes under the
// same key are fatal. KEY frames all sit at index 0 with one share each,
// so their data is part of the key as well: identical copies collapse,
// different shares are all kept, and a conflict between two shares at one
// share_index is left to shamir.Combine.
func dedupeFrames(frames []frame.Frame) ([]frame.Frame, error) {
	seen := make(map[frameKey]frame.Frame, len(frames))
	order := make([]frameKey, 0, len(frames))
	for _, f := range frames {
		key := frameKey{f.FrameType, f.DocID, f.Index, ""}
		if f.FrameType == frame.TypeKeyDocument {
			key.share = string(f.Data)
		}
		if existing, dup := seen[key]; dup {
			if string(existing.Data) != string(f.Data) || existing.Total != f.Total || existing.Version != f.Version {
				return nil, errs.New(errs.DuplicateKey, "paperbackup: conflicting duplicate frame")
			}
			continue
		}
		seen[key] = f
		order = append(order, key)
	}
	out := make([]frame.Frame, len(order))
	for i, key := range order {
		out[i] = seen[key]
	}
	return out, nil
}

// RecoverFromCandidates runs Stage A over every candidate, silently
// dropping ones that match no known encoding (not fatal, and not logged),
// then hands the survivors to Recover.
func RecoverFromCandidates(candidates [][]byte, explicitPassphrase string, rescueMode bool) (RecoverResult, error) {
	frames := make([]frame.Frame, 0, len(candidates))
	for _, c := range candidates {
		f, err := ParseCandidate(c)
		if err != nil {
			continue
		}
		frames = append(frames, f)
	}
	return Recover(frames, explicitPassphrase, rescueMode)
}

// Recover runs Stages B-H of the C14 pipeline over a set of already
// parsed candidate frames, deduplicating them itself (Stage B). Callers
// that still have raw candidate byte strings should run ParseCandidate
// over them and pass the successfully parsed frames here
// (RecoverFromCandidates does this).
func Recover(frames []frame.Frame, explicitPassphrase string, rescueMode bool) (RecoverResult, error) {
	frames, err := dedupeFrames(frames)
	if err != nil {
		return RecoverResult{}, err
	}

	var mainFrames, authFrames, keyFrames []frame.Frame
	for _, f := range frames {
		switch f.FrameType {
		case frame.TypeMainDocument:
			mainFrames = append(mainFrames, f)
		case frame.TypeAuth:
			authFrames = append(authFrames, f)
		case frame.TypeKeyDocument:
			keyFrames = append(keyFrames, f)
		}
	}

	if len(mainFrames) == 0 {
		return RecoverResult{}, errs.New(errs.MissingFrame, "paperbackup: no MAIN frames found")
	}

	// Stage C: doc_id consistency.
	docID := mainFrames[0].DocID
	for _, f := range mainFrames {
		if f.DocID != docID {
			return RecoverResult{}, errs.New(errs.InvalidInput, "paperbackup: MAIN frames disagree on doc_id")
		}
	}
	for _, f := range authFrames {
		if f.DocID != docID {
			return RecoverResult{}, errs.New(errs.InvalidInput, "paperbackup: AUTH frame doc_id mismatch")
		}
	}
	var passphraseKeyFrames []frame.Frame
	for _, f := range keyFrames {
		if f.DocID != docID {
			return RecoverResult{}, errs.New(errs.InvalidInput, "paperbackup: KEY frame doc_id mismatch")
		}
		passphraseKeyFrames = append(passphraseKeyFrames, f)
	}

	// Stage D: reassemble.
	ft := frame.TypeMainDocument
	ciphertext, err := chunk.ReassemblePayload(mainFrames, &docID, &ft)
	if err != nil {
		return RecoverResult{}, err
	}

	// Stage E: authenticate.
	docHash := blake2b256(ciphertext)
	authStatus, consensusPub, err := authenticate(authFrames, docHash, rescueMode)
	if err != nil {
		return RecoverResult{}, err
	}

	// Stage F: obtain passphrase.
	passphrase := explicitPassphrase
	if passphrase == "" {
		if len(passphraseKeyFrames) == 0 {
			return RecoverResult{}, errs.New(errs.PassphraseRequired, "paperbackup: no passphrase and no KEY frames")
		}
		recovered, err := recoverPassphrase(passphraseKeyFrames, docHash, consensusPub, rescueMode)
		if err != nil {
			return RecoverResult{}, err
		}
		passphrase = string(recovered)
	}

	// Stage G: decrypt and open.
	plaintext, err := aead.Decrypt(ciphertext, passphrase)
	if err != nil {
		return RecoverResult{}, err
	}
	envelopeBytes, err := compress.Unwrap(plaintext)
	if err != nil {
		return RecoverResult{}, err
	}
	manifest, payload, err := envelope.DecodeEnvelope(envelopeBytes)
	if err != nil {
		return RecoverResult{}, err
	}
	extracted, err := envelope.ExtractPayloads(manifest, payload)
	if err != nil {
		return RecoverResult{}, err
	}

	files := make([]RecoveredFile, len(extracted))
	for i, e := range extracted {
		files[i] = RecoveredFile{Path: e.Path, Data: e.Data, Mtime: e.Mtime}
	}

	return RecoverResult{DocID: docID, Files: files, AuthStatus: authStatus}, nil
}

func authenticate(authFrames []frame.Frame, docHash [32]byte, rescueMode bool) (AuthStatus, [signing.PubLen]byte, error) {
	var zeroPub [signing.PubLen]byte
	switch len(authFrames) {
	case 0:
		if rescueMode {
			return AuthMissing, zeroPub, nil
		}
		return "", zeroPub, errs.New(errs.MissingFrame, "paperbackup: no AUTH frame and rescue_mode is false")
	case 1:
		payload, err := signing.FromCBOR(authFrames[0].Data)
		if err != nil {
			if rescueMode {
				return AuthInvalid, zeroPub, nil
			}
			return "", zeroPub, err
		}
		if payload.DocHash != docHash || !signing.VerifyAuth(payload.SignPub, payload.DocHash, payload.Signature) {
			if rescueMode {
				return AuthInvalid, zeroPub, nil
			}
			return "", zeroPub, errs.New(errs.SignatureInvalid, "paperbackup: auth verification failed")
		}
		return AuthVerified, payload.SignPub, nil
	default:
		return "", zeroPub, errs.New(errs.InvalidInput, "paperbackup: multiple conflicting AUTH frames")
	}
}

func recoverPassphrase(keyFrames []frame.Frame, docHash [32]byte, consensusPub [signing.PubLen]byte, rescueMode bool) ([]byte, error) {
	shares := make([]shamir.ShardPayload, 0, len(keyFrames))
	for _, f := range keyFrames {
		s, err := shamir.FromCBOR(f.Data)
		if err != nil {
			return nil, err
		}
		if s.DocHash != docHash {
			return nil, errs.New(errs.InvalidInput, "paperbackup: KEY frame doc_hash mismatch")
		}
		var zeroPub [signing.PubLen]byte
		if consensusPub != zeroPub && s.SignPub != consensusPub {
			return nil, errs.New(errs.InvalidInput, "paperbackup: KEY frame sign_pub disagrees with AUTH")
		}
		if !signing.VerifyShard(s.SignPub, s.DocHash, s.ShareIndex, s.Share, s.Signature) {
			if rescueMode {
				continue
			}
			return nil, errs.Newf(errs.SignatureInvalid, "paperbackup: invalid signature on shard %d", s.ShareIndex)
		}
		shares = append(shares, s)
	}
	return shamir.Combine(shares)
}

