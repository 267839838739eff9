package paperbackup

import (
	"bytes"
	"testing"

	"ethernity.dev/core/chunk"
	"ethernity.dev/core/errs"
	"ethernity.dev/core/frame"
	"ethernity.dev/core/qrcodec"
)

func mtimePtr(v int64) *int64 { return &v }

func samplePlanFiles() []InputFile {
	return []InputFile{
		{RelativePath: "notes.txt", Data: []byte("the combination is in the safe"), Mtime: mtimePtr(1700000000)},
		{RelativePath: "keys/private.pem", Data: []byte("-----BEGIN KEY-----\nabc\n-----END KEY-----\n")},
	}
}

func allFrames(r BackupResult) []frame.Frame {
	all := append([]frame.Frame{r.AuthFrame}, r.MainFrames...)
	all = append(all, r.PassphraseShardFrames...)
	all = append(all, r.SigningSeedShardFrames...)
	return all
}

func TestBackupRecoverRoundTripExplicitPassphrase(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded, ChunkSize: 32}
	result, err := Backup(plan, samplePlanFiles(), "a strong passphrase", 1000.0)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if len(result.MainFrames) < 2 {
		t.Fatalf("expected chunking to produce multiple frames, got %d", len(result.MainFrames))
	}

	rec, err := Recover(allFrames(result), "a strong passphrase", false)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if rec.AuthStatus != AuthVerified {
		t.Fatalf("expected AuthVerified, got %v", rec.AuthStatus)
	}
	if len(rec.Files) != len(samplePlanFiles()) {
		t.Fatalf("got %d files, want %d", len(rec.Files), len(samplePlanFiles()))
	}
	for i, f := range samplePlanFiles() {
		if rec.Files[i].Path != f.RelativePath || !bytes.Equal(rec.Files[i].Data, f.Data) {
			t.Fatalf("file %d mismatch: got %+v", i, rec.Files[i])
		}
	}
}

func TestBackupGeneratesPassphraseWhenNoneSupplied(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded}
	result, err := Backup(plan, samplePlanFiles(), "", 1.0)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if result.UsedPassphrase == "" {
		t.Fatal("expected a generated passphrase")
	}
	rec, err := Recover(allFrames(result), result.UsedPassphrase, false)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if len(rec.Files) != len(samplePlanFiles()) {
		t.Fatalf("got %d files", len(rec.Files))
	}
}

func TestBackupRecoverWithShardedPassphrase(t *testing.T) {
	plan := DocumentPlan{
		Sealed:             false,
		PassphraseSharding: &ShardingConfig{Threshold: 2, ShareCount: 3},
		SigningSeedMode:    Embedded,
	}
	result, err := Backup(plan, samplePlanFiles(), "quorum passphrase", 1.0)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if len(result.PassphraseShardFrames) != 3 {
		t.Fatalf("expected 3 shard frames, got %d", len(result.PassphraseShardFrames))
	}

	frames := append([]frame.Frame{result.AuthFrame}, result.MainFrames...)
	frames = append(frames, result.PassphraseShardFrames[0], result.PassphraseShardFrames[2])

	rec, err := Recover(frames, "", false)
	if err != nil {
		t.Fatalf("Recover with shard quorum: %v", err)
	}
	if len(rec.Files) != len(samplePlanFiles()) {
		t.Fatalf("got %d files", len(rec.Files))
	}
}

func TestRecoverFailsWithoutPassphraseOrShards(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded}
	result, _ := Backup(plan, samplePlanFiles(), "some passphrase", 1.0)
	frames := append([]frame.Frame{result.AuthFrame}, result.MainFrames...)
	if _, err := Recover(frames, "", false); !errs.Is(err, errs.PassphraseRequired) {
		t.Fatalf("expected PassphraseRequired, got %v", err)
	}
}

func TestRecoverRescueModeAllowsMissingAuth(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded}
	result, _ := Backup(plan, samplePlanFiles(), "a passphrase", 1.0)
	rec, err := Recover(result.MainFrames, "a passphrase", true)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if rec.AuthStatus != AuthMissing {
		t.Fatalf("expected AuthMissing, got %v", rec.AuthStatus)
	}
}

func TestRecoverFailsMissingAuthWithoutRescueMode(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded}
	result, _ := Backup(plan, samplePlanFiles(), "a passphrase", 1.0)
	if _, err := Recover(result.MainFrames, "a passphrase", false); !errs.Is(err, errs.MissingFrame) {
		t.Fatalf("expected MissingFrame, got %v", err)
	}
}

func TestRecoverDetectsTamperedAuth(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded}
	result, _ := Backup(plan, samplePlanFiles(), "a passphrase", 1.0)
	tamperedAuth := result.AuthFrame
	tamperedAuth.Data = append([]byte{}, tamperedAuth.Data...)
	tamperedAuth.Data[len(tamperedAuth.Data)-1] ^= 0xff

	frames := append([]frame.Frame{tamperedAuth}, result.MainFrames...)
	if _, err := Recover(frames, "a passphrase", false); err == nil {
		t.Fatal("expected tampered AUTH frame to fail verification")
	}

	rec, err := Recover(frames, "a passphrase", true)
	if err != nil {
		t.Fatalf("rescue mode should tolerate invalid auth: %v", err)
	}
	if rec.AuthStatus != AuthInvalid {
		t.Fatalf("expected AuthInvalid, got %v", rec.AuthStatus)
	}
}

func TestFitChunkSize(t *testing.T) {
	if got := FitChunkSize(2000, 800); got != 800 {
		t.Fatalf("got %d, want 800", got)
	}
	if got := FitChunkSize(500, 800); got != 500 {
		t.Fatalf("got %d, want 500", got)
	}
	if got := FitChunkSize(500, 0); got != 500 {
		t.Fatalf("got %d, want 500 (no cap)", got)
	}
}

func TestRecoverFromCandidatesMixedEncodings(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded, ChunkSize: 24}
	result, err := Backup(plan, samplePlanFiles(), "candidate passphrase", 1.0)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	var candidates [][]byte
	authBytes, err := frame.Encode(result.AuthFrame, false)
	if err != nil {
		t.Fatalf("Encode auth frame: %v", err)
	}
	candidates = append(candidates, authBytes) // presented as QR binary

	for i, f := range result.MainFrames {
		enc, err := frame.Encode(f, false)
		if err != nil {
			t.Fatalf("Encode main frame %d: %v", i, err)
		}
		if i%2 == 0 {
			// Half presented as QR binary, half as base64 text.
			candidates = append(candidates, enc)
			continue
		}
		b64, err := qrcodec.Encode(enc, "base64")
		if err != nil {
			t.Fatalf("qrcodec.Encode: %v", err)
		}
		candidates = append(candidates, []byte(b64))
	}

	rec, err := RecoverFromCandidates(candidates, "candidate passphrase", false)
	if err != nil {
		t.Fatalf("RecoverFromCandidates: %v", err)
	}
	if len(rec.Files) != len(samplePlanFiles()) {
		t.Fatalf("got %d files", len(rec.Files))
	}
	if rec.AuthStatus != AuthVerified {
		t.Fatalf("expected AuthVerified, got %v", rec.AuthStatus)
	}
}

// TestDedupeFramesRejectsConflictingDuplicate is spec.md §8 scenario 5:
// a byte-flipped MAIN frame under the same (frame_type, doc_id, index)
// key as the original must be rejected as DuplicateKey, not silently
// resolved by picking one.
func TestDedupeFramesRejectsConflictingDuplicate(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded, ChunkSize: 8}
	result, err := Backup(plan, samplePlanFiles(), "a passphrase", 1.0)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}

	original := result.MainFrames[0]
	tampered := original
	tampered.Data = append([]byte{}, original.Data...)
	tampered.Data[0] ^= 0xff

	if _, err := dedupeFrames([]frame.Frame{original, tampered}); !errs.Is(err, errs.DuplicateKey) {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}
}

// TestDedupeFramesDropsIdenticalDuplicateOutOfOrder is spec.md §8
// scenario 6: frames presented out of index order with one exact
// byte-for-byte repeat (mirroring the [2,5,2,1,4,3]-style scan order)
// must still dedupe and reassemble cleanly, with the duplicate dropped.
func TestDedupeFramesDropsIdenticalDuplicateOutOfOrder(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded, ChunkSize: 8}
	result, err := Backup(plan, samplePlanFiles(), "a passphrase", 1.0)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	mainFrames := result.MainFrames
	if len(mainFrames) < 5 {
		t.Fatalf("expected at least 5 MAIN frames for this scenario, got %d", len(mainFrames))
	}

	presented := []frame.Frame{mainFrames[1], mainFrames[len(mainFrames)-1], mainFrames[1], mainFrames[0]}
	for i := 2; i < len(mainFrames)-1; i++ {
		presented = append(presented, mainFrames[i])
	}

	deduped, err := dedupeFrames(presented)
	if err != nil {
		t.Fatalf("dedupeFrames: %v", err)
	}
	if len(deduped) != len(mainFrames) {
		t.Fatalf("got %d deduped frames, want %d", len(deduped), len(mainFrames))
	}

	ft := frame.TypeMainDocument
	ciphertext, err := chunk.ReassemblePayload(deduped, &result.DocID, &ft)
	if err != nil {
		t.Fatalf("ReassemblePayload: %v", err)
	}
	if !bytes.Equal(ciphertext, result.Ciphertext) {
		t.Fatal("reassembled ciphertext does not match original")
	}
}

func TestBackupRejectsDuplicatePaths(t *testing.T) {
	plan := DocumentPlan{Sealed: false, SigningSeedMode: Embedded}
	files := []InputFile{
		{RelativePath: "a.txt", Data: []byte("1")},
		{RelativePath: "a.txt", Data: []byte("2")},
	}
	if _, err := Backup(plan, files, "pw", 1.0); !errs.Is(err, errs.DuplicateKey) {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}
}
