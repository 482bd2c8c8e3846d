package util

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail lowercases and NFKC-normalizes a user-entered email so
// the same mailbox always produces the same wire value.
func NormalizeEmail(email string) string {
	return strings.ToLower(norm.NFKC.String(strings.TrimSpace(email)))
}
