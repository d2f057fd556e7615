package security

import (
	"crypto/rand"
	"fmt"
)

// ShareTokenLength is the number of characters in a customer share token
const ShareTokenLength = 32

const shareTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateShareToken returns a random URL-safe token drawn uniformly from
// [A-Za-z0-9]. Bytes above the largest multiple of the alphabet size are
// rejected so every character is equally likely.
func GenerateShareToken() (string, error) {
	const n = len(shareTokenAlphabet)
	const limit = 256 - (256 % n)

	out := make([]byte, 0, ShareTokenLength)
	buf := make([]byte, ShareTokenLength*2)
	for len(out) < ShareTokenLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, shareTokenAlphabet[int(b)%n])
			if len(out) == ShareTokenLength {
				break
			}
		}
	}
	return string(out), nil
}

// IsWellFormedShareToken reports whether s could have been produced by
// GenerateShareToken. Used to reject garbage before hitting the database.
func IsWellFormedShareToken(s string) bool {
	if len(s) != ShareTokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
