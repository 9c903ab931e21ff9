package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

const keyPrefix = "verity:v1:"

// Normalize folds case and collapses whitespace so trivially different
// renderings of the same text share a fingerprint
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	space := false
	for _, r := range strings.TrimSpace(text) {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Fingerprint returns a deterministic digest of the normalized text
func Fingerprint(text string) string {
	hash := sha256.Sum256([]byte(Normalize(text)))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// SessionKey scopes a fingerprint to a session. An empty session yields
// the plain fingerprint.
func SessionKey(text, sessionID string) string {
	fp := Fingerprint(text)
	if sessionID == "" {
		return fp
	}
	return fp + ":" + sessionID
}

// Digest returns a digest of text exactly as given. Results that point
// back into the text, such as calculation spans, are keyed by it.
func Digest(text string) string {
	hash := sha256.Sum256([]byte(text))
	return keyPrefix + "raw:" + hex.EncodeToString(hash[:])
}
