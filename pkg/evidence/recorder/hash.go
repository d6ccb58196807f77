package recorder

import (
	"crypto/sha256"
	"encoding/hex"

	"mercator-hq/ddsguard/pkg/evidence"
)

// HashPrefix marks the digest algorithm in stored hashes.
const HashPrefix = "sha256:"

// HashContent returns the prefixed SHA-256 of content, or "" for empty input.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	sum := sha256.Sum256(content)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// Verify reports whether the stored decision JSON of record still matches its
// hash.
func Verify(record *evidence.Record) bool {
	return record.DecisionHash != "" && HashContent(record.DecisionJSON) == record.DecisionHash
}

// truncate shortens s to at most maxLen bytes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
