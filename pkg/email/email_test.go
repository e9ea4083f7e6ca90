package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	assert.True(t, Equal("x@y.com", "X@Y.com"))
	assert.True(t, Equal(" a@b.com ", "a@b.com"))
	assert.False(t, Equal("", ""))
	assert.False(t, Equal("a@b.com", "a@c.com"))
}

func TestNormalizeList(t *testing.T) {
	got := NormalizeList([]string{" Admin@Example.com", "", "admin@example.com", "ops@example.com"})
	assert.Equal(t, []string{"admin@example.com", "ops@example.com"}, got)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("donor@example.com"))
	assert.False(t, Valid("not-an-email"))
	assert.False(t, Valid("Jane <jane@example.com>"))
}

func TestDeriveDisplayName(t *testing.T) {
	assert.Equal(t, "Jane Doe", DeriveDisplayName("jane.doe@example.com"))
	assert.Equal(t, "Ravi", DeriveDisplayName("ravi@example.com"))
	assert.Equal(t, "Anonymous", DeriveDisplayName("@example.com"))
}
