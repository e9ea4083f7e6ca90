package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "givetrack/pkg/domain-errors"
)

// IDs arrive in URL params and JSON bodies, so parsing is the trust boundary.
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseDonationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseDonationID("-Nx3kq9abc")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		got, err := ParseUserID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(raw), got)
		assert.Equal(t, raw.String(), got.String())
	})
}

func TestParseID_RejectsHostileInput(t *testing.T) {
	inputs := []string{
		"'; DROP TABLE donations;--",
		"../../../etc/passwd",
		"550e8400\x00-e29b-41d4-a716-446655440000",
		strings.Repeat("a", 1000),
		"   ",
	}
	for _, input := range inputs {
		_, errUser := ParseUserID(input)
		_, errDonation := ParseDonationID(input)
		_, errSession := ParseSessionID(input)
		assert.Error(t, errUser)
		assert.Error(t, errDonation)
		assert.Error(t, errSession)
	}
}

func TestNewIDsAreNotNil(t *testing.T) {
	assert.False(t, NewUserID().IsNil())
	assert.False(t, NewDonationID().IsNil())
	assert.False(t, NewSessionID().IsNil())
	assert.True(t, UserID{}.IsNil())
}

func TestIDsRoundTripAsJSONStrings(t *testing.T) {
	type payload struct {
		Donation DonationID `json:"donation"`
		User     UserID     `json:"user"`
	}
	in := payload{Donation: NewDonationID()}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"donation":"`+in.Donation.String()+`"`)

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
	assert.True(t, out.User.IsNil())

	assert.Error(t, json.Unmarshal([]byte(`{"user":"not-a-uuid"}`), &out))
}
