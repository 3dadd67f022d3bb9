package core

import (
	"errors"
	"strings"
)

// HighSentinel is the largest code point used as a suffix to close a prefix range.
const HighSentinel = "\uf8ff"

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	// SearchLimit caps username prefix search results.
	SearchLimit = 20
)

var (
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidUsername = errors.New("invalid username")
)

// NormalizeUsername trims and lowercases s. The result is the key used for
// reservation and search.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateUsername accepts 3-30 characters of [a-z0-9._] after normalization.
func ValidateUsername(s string) error {
	n := NormalizeUsername(s)
	if len(n) < minUsernameLen || len(n) > maxUsernameLen {
		return ErrInvalidUsername
	}
	for _, r := range n {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}

// PrefixRange returns the half-open range [lo, hi) covering every string that
// starts with prefix.
func PrefixRange(prefix string) (lo, hi string) {
	return prefix, prefix + HighSentinel
}
