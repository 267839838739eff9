// Package paperbackup assembles the codec layers (C1-C12) into the
// backup pipeline (C13) and its inverse, recovery (C14). It is the only
// package callers outside this module need to import for a full round
// trip; everything else is plumbing.
package paperbackup

import (
	"ethernity.dev/core/frame"
	"ethernity.dev/core/signing"
)

// SigningSeedMode selects whether the Ed25519 signing seed is embedded in
// the manifest or split via Shamir sharing.
type SigningSeedMode int

const (
	Embedded SigningSeedMode = iota
	Sharded
)

// ShardingConfig parameterises a Shamir split: Threshold of ShareCount
// shares reconstruct the secret.
type ShardingConfig struct {
	Threshold  int
	ShareCount int
}

// DocumentPlan is the caller's choice of backup shape.
type DocumentPlan struct {
	Sealed              bool
	PassphraseSharding  *ShardingConfig
	SigningSeedMode     SigningSeedMode
	SigningSeedSharding *ShardingConfig
	ChunkSize           int
}

// InputFile is one file to be packaged.
type InputFile struct {
	RelativePath string
	Data         []byte
	Mtime        *int64
}

// AuthStatus is the outcome of AUTH verification during recovery.
type AuthStatus string

const (
	AuthVerified AuthStatus = "verified"
	AuthMissing  AuthStatus = "missing"
	AuthInvalid  AuthStatus = "invalid"
	// AuthUnsigned is part of the producer surface's declared auth_status
	// domain (spec.md:217) but is never returned by authenticate(): the
	// original source's allow_unsigned is the rescue_mode input, not a
	// distinct output status, and nothing in this core's AUTH pipeline
	// produces a signed-but-unsigned document. Kept, not dropped, so a
	// caller pattern-matching on the full declared domain still compiles
	// against a future producer of it.
	AuthUnsigned AuthStatus = "unsigned"
)

// RecoveredFile is one file emitted by Recover, with its path already
// validated as safe to write (relative, no "..").
type RecoveredFile struct {
	Path  string
	Data  []byte
	Mtime *int64
}

// BackupResult is everything Backup produces: the frames meant for paper
// plus the bookkeeping a caller needs to render or archive them.
type BackupResult struct {
	DocID                  [16]byte
	Ciphertext             []byte
	AuthFrame              frame.Frame
	MainFrames             []frame.Frame
	PassphraseShardFrames  []frame.Frame
	SigningSeedShardFrames []frame.Frame
	UsedPassphrase         string
	SignPub                [signing.PubLen]byte
}

// RecoverResult is everything Recover produces.
type RecoverResult struct {
	DocID      [16]byte
	Files      []RecoveredFile
	AuthStatus AuthStatus
}
