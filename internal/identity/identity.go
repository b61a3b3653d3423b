// Package identity derives the anonymous token that stands in for a user
// identifier wherever the identifier itself must not be stored.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// TokenLen is the length of a token: hex-encoded SHA-256.
const TokenLen = sha256.Size * 2

// Hash returns the lowercase hex SHA-256 digest of the user identifier in its
// decimal string form. The result is stable across processes so anonymous
// users stay recognizable after a restart.
func Hash(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// IsToken reports whether s has the shape of a value produced by Hash.
func IsToken(s string) bool {
	if len(s) != TokenLen {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f')
	}) < 0
}

// Short returns a log-safe prefix of a token.
func Short(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8]
}
