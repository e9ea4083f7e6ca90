package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "givetrack/pkg/domain-errors"
)

func TestValidateNewPassword(t *testing.T) {
	tests := []struct {
		name         string
		password     string
		confirmation string
		wantErr      bool
	}{
		{"valid", "secret1", "secret1", false},
		{"exactly six", "abcdef", "abcdef", false},
		{"too short", "abc", "abc", true},
		{"mismatch", "secret1", "secret2", true},
		{"too long", strings.Repeat("a", 73), strings.Repeat("a", 73), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNewPassword(tt.password, tt.confirmation)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestNewPasswordAccount(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	acct, err := NewPasswordAccount(" Jane.Doe@Example.com ", "", "hash", now)
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", acct.Email)
	assert.Equal(t, "Jane Doe", acct.DisplayName)
	assert.Equal(t, ProviderPassword, acct.Provider)
	assert.True(t, acct.HasPassword())

	_, err = NewPasswordAccount("not-an-email", "", "hash", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestNewFederatedAccount(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	acct, err := NewFederatedAccount(FederatedIdentity{
		Provider: ProviderGoogle, Subject: "1234", Email: "Pat@Example.com", DisplayName: "Pat",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", acct.Email)
	assert.False(t, acct.HasPassword())

	_, err = NewFederatedAccount(FederatedIdentity{Provider: ProviderGoogle, Email: "pat@example.com"}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
