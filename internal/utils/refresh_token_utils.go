package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken generates a SHA256 hash of a refresh token. Only the hash
// is ever persisted; a database leak does not expose usable refresh tokens.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CompareRefreshTokenHash compares a plain refresh token with its stored SHA256 hash.
// It's important that the `token` parameter here is the raw token string, not a hash.
func CompareRefreshTokenHash(token string, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashRefreshToken(token)), []byte(storedHash)) == 1
}
