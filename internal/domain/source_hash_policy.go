package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SourceHashPolicy defines the logic to compute a stable identity for a
// document. It ensures idempotency: same normalized text -> same hash.
type SourceHashPolicy interface {
	Normalize(text string) string
	Compute(text string) string
}

type sourceHashPolicy struct{}

// NewSourceHashPolicy creates the default SourceHashPolicy.
func NewSourceHashPolicy() SourceHashPolicy {
	return &sourceHashPolicy{}
}

// Normalize collapses whitespace runs to single spaces, trims, and applies
// Unicode NFC so that decomposed and precomposed forms of the same text
// produce the same bytes. Normalize is idempotent.
func (p *sourceHashPolicy) Normalize(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	return norm.NFC.String(collapsed)
}

// Compute returns the SHA-256 hash of the normalized text rendered as 64
// lowercase hex characters. Empty text hashes the empty string.
func (p *sourceHashPolicy) Compute(text string) string {
	sum := sha256.Sum256([]byte(p.Normalize(text)))
	return hex.EncodeToString(sum[:])
}
