// Package fingerprint computes content hashes for duplicate detection
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// FromBytes returns the hex-encoded sha256 hash of the given content
func FromBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FromReader returns the hex-encoded sha256 hash of the reader's content.
// Returns an empty string if reading fails; callers treat an empty hash as
// "no fingerprint available" and fall back to metadata comparison.
func FromReader(r io.Reader) string {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FromText hashes normalized extracted text. Empty text yields no fingerprint.
func FromText(text string) string {
	if text == "" {
		return ""
	}
	return FromBytes([]byte(text))
}

// Equal reports whether two fingerprints match. Empty fingerprints never
// match anything, including each other.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return a == b
}
