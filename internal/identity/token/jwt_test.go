package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
)

var (
	tokens    = New("test-signing-key", time.Hour)
	userID    = id.NewUserID()
	sessionID = id.NewSessionID()
)

func TestIssueSession(t *testing.T) {
	now := time.Now()
	signed, expiresAt, err := tokens.IssueSession(userID, sessionID, "pat@example.com", now)
	require.NoError(t, err)
	require.NotEmpty(t, signed)
	assert.WithinDuration(t, now.Add(time.Hour), expiresAt, time.Second)

	claims, err := tokens.ValidateSession(signed)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, "pat@example.com", claims.Email)
	assert.Equal(t, now.Unix(), claims.AuthTime)
}

func TestValidateSessionRejects(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.ValidateSession("invalid-token-string")
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
	})

	t.Run("expired", func(t *testing.T) {
		signed, _, err := tokens.IssueSession(userID, sessionID, "pat@example.com", time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		_, err = tokens.ValidateSession(signed)
		require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
	})

	t.Run("other key", func(t *testing.T) {
		signed, _, err := New("another-key", time.Hour).IssueSession(userID, sessionID, "pat@example.com", time.Now())
		require.NoError(t, err)
		_, err = tokens.ValidateSession(signed)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("state token is not a session", func(t *testing.T) {
		state, err := tokens.IssueState("google", time.Now())
		require.NoError(t, err)
		_, err = tokens.ValidateSession(state)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestState(t *testing.T) {
	state, err := tokens.IssueState("google", time.Now())
	require.NoError(t, err)
	assert.NoError(t, tokens.ValidateState(state, "google"))
	assert.True(t, dErrors.HasCode(tokens.ValidateState(state, "github"), dErrors.CodeUnauthorized))
}
