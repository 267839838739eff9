package paperbackup

import (
	"golang.org/x/crypto/blake2b"

	"ethernity.dev/core/aead"
	"ethernity.dev/core/chunk"
	"ethernity.dev/core/compress"
	"ethernity.dev/core/envelope"
	"ethernity.dev/core/errs"
	"ethernity.dev/core/frame"
	"ethernity.dev/core/shamir"
	"ethernity.dev/core/signing"
)

// DefaultChunkSize is used when a DocumentPlan leaves ChunkSize unset.
const DefaultChunkSize = 1200

// Backup runs the full C13 pipeline: manifest, envelope, compression,
// encryption, chunking, signing, and (optionally) Shamir sharding of the
// passphrase and/or signing seed.
func Backup(plan DocumentPlan, files []InputFile, passphrase string, createdAt float64) (BackupResult, error) {
	parts := make([]envelope.PayloadPart, len(files))
	for i, f := range files {
		parts[i] = envelope.PayloadPart{Path: f.RelativePath, Data: f.Data, Mtime: f.Mtime}
	}

	seed, pub, err := signing.GenerateKeypair()
	if err != nil {
		return BackupResult{}, err
	}

	var embeddedSeed []byte
	if !plan.Sealed && plan.SigningSeedMode == Embedded {
		embeddedSeed = append([]byte{}, seed[:]...)
	}

	manifest, payload, err := envelope.BuildManifestAndPayload(parts, plan.Sealed, embeddedSeed, createdAt)
	if err != nil {
		return BackupResult{}, err
	}

	envelopeBytes, err := envelope.EncodeEnvelope(manifest, payload)
	if err != nil {
		return BackupResult{}, err
	}

	compressed, err := compress.Wrap(envelopeBytes, compress.AlgoZstd)
	if err != nil {
		return BackupResult{}, err
	}

	usedPassphrase := passphrase
	if usedPassphrase == "" {
		usedPassphrase, err = aead.GeneratePassphrase(0)
		if err != nil {
			return BackupResult{}, err
		}
	}
	ciphertext, err := aead.Encrypt(compressed, usedPassphrase)
	if err != nil {
		return BackupResult{}, err
	}

	docID := blake2b128(ciphertext)
	docHash := blake2b256(ciphertext)

	authSig := signing.SignAuth(seed, docHash)
	authPayload := signing.AuthPayload{DocHash: docHash, SignPub: pub, Signature: authSig}
	authBytes, err := signing.ToCBOR(authPayload)
	if err != nil {
		return BackupResult{}, err
	}
	authFrame, err := frame.New(frame.Version, frame.TypeAuth, docID, 0, 1, authBytes)
	if err != nil {
		return BackupResult{}, err
	}

	chunkSize := plan.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	mainFrames, err := chunk.ChunkPayload(ciphertext, docID, frame.TypeMainDocument, chunkSize)
	if err != nil {
		return BackupResult{}, err
	}

	result := BackupResult{
		DocID:          docID,
		Ciphertext:     ciphertext,
		AuthFrame:      authFrame,
		MainFrames:     mainFrames,
		UsedPassphrase: usedPassphrase,
		SignPub:        pub,
	}

	if plan.PassphraseSharding != nil {
		frames, err := shardToFrames([]byte(usedPassphrase), *plan.PassphraseSharding, docHash, seed, pub, docID)
		if err != nil {
			return BackupResult{}, err
		}
		result.PassphraseShardFrames = frames
	}

	if plan.SigningSeedMode == Sharded {
		if plan.SigningSeedSharding == nil {
			return BackupResult{}, errs.New(errs.InvalidInput, "paperbackup: signing_seed_mode=Sharded requires signing_seed_sharding")
		}
		frames, err := shardToFrames(seed[:], *plan.SigningSeedSharding, docHash, seed, pub, docID)
		if err != nil {
			return BackupResult{}, err
		}
		result.SigningSeedShardFrames = frames
	}

	return result, nil
}

func shardToFrames(secret []byte, cfg ShardingConfig, docHash [32]byte, seed [signing.SeedLen]byte, pub [signing.PubLen]byte, docID [frame.DocIDLen]byte) ([]frame.Frame, error) {
	shares, err := shamir.Shard(secret, cfg.Threshold, cfg.ShareCount, docHash, seed, pub)
	if err != nil {
		return nil, err
	}
	frames := make([]frame.Frame, len(shares))
	for i, s := range shares {
		data, err := shamir.ToCBOR(s)
		if err != nil {
			return nil, err
		}
		f, err := frame.New(frame.Version, frame.TypeKeyDocument, docID, 0, 1, data)
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}
	return frames, nil
}

func blake2b128(data []byte) [16]byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	var out [16]byte
	copy(out[:], h.Sum(nil))
	return out
}

func blake2b256(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// FitChunkSize reduces preferred down to qrCapacity when the caller's
// preferred chunk size would overflow a single frame's on-paper capacity.
// This sizing is advisory: the renderer, not the core, decides qrCapacity,
// and ChunkPayload enforces the result regardless.
func FitChunkSize(preferred, qrCapacity int) int {
	if qrCapacity <= 0 || preferred <= qrCapacity {
		return preferred
	}
	return qrCapacity
}
