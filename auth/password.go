package auth

import (
	"unicode"

	"github.com/chinkauchenna2021/bankauth/session"
)

// minPasswordLen is the minimum password length accepted for new
// passwords. The backend may enforce stricter rules; local validation
// exists so forms can enumerate unmet rules without a round trip.
const minPasswordLen = 8

// ValidatePassword checks a candidate password against the local policy
// and returns a PasswordPolicyError enumerating every unmet rule.
func ValidatePassword(password string) error {
	var violations []string
	if len(password) < minPasswordLen {
		violations = append(violations, "must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		violations = append(violations, "must contain an uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "must contain a lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "must contain a digit")
	}
	if len(violations) > 0 {
		return &session.PasswordPolicyError{Violations: violations}
	}
	return nil
}

// validTwoFactorCode reports whether code is exactly six ASCII digits.
func validTwoFactorCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
