// Package errs defines the error taxonomy shared by every codec layer in
// the paper-backup core. Each layer returns one of these kinds rather than
// a bare error, so callers on the recovery side can pattern-match instead
// of parsing strings.
package errs

import "fmt"

// ErrorCode identifies a distinct, pattern-matchable failure kind.
type ErrorCode string

const (
	Truncated          ErrorCode = "TRUNCATED"
	BadMagic           ErrorCode = "BAD_MAGIC"
	BadCrc             ErrorCode = "BAD_CRC"
	LengthMismatch     ErrorCode = "LENGTH_MISMATCH"
	UnsupportedVersion ErrorCode = "UNSUPPORTED_VERSION"
	DuplicateKey       ErrorCode = "DUPLICATE_KEY"
	MissingFrame       ErrorCode = "MISSING_FRAME"
	ShardInsufficient  ErrorCode = "SHARD_INSUFFICIENT"
	SignatureInvalid   ErrorCode = "SIGNATURE_INVALID"
	HashMismatch       ErrorCode = "HASH_MISMATCH"
	DecryptionFailed   ErrorCode = "DECRYPTION_FAILED"
	PassphraseRequired ErrorCode = "PASSPHRASE_REQUIRED"
	InvalidInput       ErrorCode = "INVALID_INPUT"
)

// CodecError is the single error type returned by every codec/pipeline
// function in this module. Msg carries layer-specific detail; Code is what
// callers should switch on.
type CodecError struct {
	Code ErrorCode
	Msg  string
}

func (e *CodecError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// New builds a CodecError with the given kind and message.
func New(code ErrorCode, msg string) error {
	return &CodecError{Code: code, Msg: msg}
}

// Newf builds a CodecError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) error {
	return &CodecError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a *CodecError with the given code, so callers
// can write `errs.Is(err, errs.BadCrc)` instead of a type switch.
func Is(err error, code ErrorCode) bool {
	ce, ok := err.(*CodecError)
	return ok && ce.Code == code
}
