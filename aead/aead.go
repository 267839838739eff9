// Package aead wraps passphrase-based authenticated encryption (spec
// C12) around filippo.io/age's scrypt passphrase recipient, and generates
// the BIP-39-style mnemonic passphrases the backup pipeline hands out by
// default.
package aead

import (
	"bytes"
	"io"

	"filippo.io/age"
	"github.com/tyler-smith/go-bip39"

	"ethernity.dev/core/errs"
)

// Encrypt produces a self-describing age v1 ciphertext binding
// plaintext's integrity to passphrase. The ciphertext format is opaque to
// the rest of the pipeline; only Decrypt needs to understand it.
func Encrypt(plaintext []byte, passphrase string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, errs.Newf(errs.InvalidInput, "aead: scrypt recipient: %v", err)
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, errs.Newf(errs.InvalidInput, "aead: encrypt init: %v", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, errs.Newf(errs.InvalidInput, "aead: encrypt write: %v", err)
	}
	if err := w.Close(); err != nil {
		return nil, errs.Newf(errs.InvalidInput, "aead: encrypt close: %v", err)
	}
	return buf.Bytes(), nil
}

// Decrypt is the inverse of Encrypt. Every failure mode — wrong
// passphrase, truncation, or tamper — collapses to a single
// DecryptionFailed kind, since the core has no use for finer detail: a
// paper backup that doesn't open is simply unreadable.
func Decrypt(ciphertext []byte, passphrase string) ([]byte, error) {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, errs.New(errs.DecryptionFailed, "aead: decryption failed")
	}
	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, errs.New(errs.DecryptionFailed, "aead: decryption failed")
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.New(errs.DecryptionFailed, "aead: decryption failed")
	}
	return plaintext, nil
}

// wordCountToEntropyBits maps the BIP-39 word counts this package accepts
// to their entropy width.
var wordCountToEntropyBits = map[int]int{
	12: 128,
	15: 160,
	18: 192,
	21: 224,
	24: 256,
}

// DefaultMnemonicWords is the word count GeneratePassphrase uses when the
// caller doesn't ask for a specific length.
const DefaultMnemonicWords = 24

// GeneratePassphrase draws a BIP-39 mnemonic of wordCount words (one of
// 12, 15, 18, 21, 24) from the platform CSPRNG. wordCount == 0 selects
// DefaultMnemonicWords.
func GeneratePassphrase(wordCount int) (string, error) {
	if wordCount == 0 {
		wordCount = DefaultMnemonicWords
	}
	bits, ok := wordCountToEntropyBits[wordCount]
	if !ok {
		return "", errs.Newf(errs.InvalidInput, "aead: unsupported mnemonic word count %d", wordCount)
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", errs.Newf(errs.InvalidInput, "aead: entropy generation: %v", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errs.Newf(errs.InvalidInput, "aead: mnemonic generation: %v", err)
	}
	return mnemonic, nil
}
