package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chinkauchenna2021/bankauth/session"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		violations []string
	}{
		{
			name:     "valid",
			password: "Passw0rd",
		},
		{
			name:     "valid long",
			password: "Correct Horse Battery Staple 9",
		},
		{
			name:     "too short",
			password: "Abc1",
			violations: []string{
				"must be at least 8 characters",
			},
		},
		{
			name:     "missing uppercase",
			password: "passw0rdpassw0rd",
			violations: []string{
				"must contain an uppercase letter",
			},
		},
		{
			name:     "missing lowercase",
			password: "PASSW0RDPASSW0RD",
			violations: []string{
				"must contain a lowercase letter",
			},
		},
		{
			name:     "missing digit",
			password: "PasswordPassword",
			violations: []string{
				"must contain a digit",
			},
		},
		{
			name:     "empty enumerates every rule",
			password: "",
			violations: []string{
				"must be at least 8 characters",
				"must contain an uppercase letter",
				"must contain a lowercase letter",
				"must contain a digit",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if len(tt.violations) == 0 {
				assert.NoError(t, err)
				return
			}
			var policyErr *session.PasswordPolicyError
			require.ErrorAs(t, err, &policyErr)
			assert.Equal(t, tt.violations, policyErr.Violations)
		})
	}
}

func TestValidTwoFactorCode(t *testing.T) {
	assert.True(t, validTwoFactorCode("000000"))
	assert.True(t, validTwoFactorCode("123456"))

	assert.False(t, validTwoFactorCode(""))
	assert.False(t, validTwoFactorCode("12345"))
	assert.False(t, validTwoFactorCode("1234567"))
	assert.False(t, validTwoFactorCode("12345a"))
	assert.False(t, validTwoFactorCode("12 456"))
	assert.False(t, validTwoFactorCode("１２３４５６"), "full-width digits are not ASCII digits")
}
