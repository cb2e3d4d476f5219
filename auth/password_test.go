package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBCryptEncoder(t *testing.T) {
	enc := BCryptEncoder{Cost: bcrypt.MinCost}

	encoded, err := enc.Encode("admin")
	require.NoError(t, err)
	assert.NotEqual(t, "admin", encoded)
	assert.True(t, strings.HasPrefix(encoded, "$2a$"))

	assert.True(t, enc.Matches("admin", encoded))
	assert.False(t, enc.Matches("Admin", encoded))
	assert.False(t, enc.Matches("admin", "admin"), "plain text never matches a bcrypt encoder")
}

func TestNoopEncoder(t *testing.T) {
	enc := NoopEncoder{}

	encoded, err := enc.Encode("admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", encoded)
	assert.True(t, enc.Matches("admin", "admin"))
	assert.False(t, enc.Matches("admin", "admin2"))
}

func TestNewPasswordEncoder(t *testing.T) {
	enc, err := NewPasswordEncoder("bcrypt", 12)
	require.NoError(t, err)
	assert.Equal(t, BCryptEncoder{Cost: 12}, enc)

	enc, err = NewPasswordEncoder("", 0)
	require.NoError(t, err)
	assert.IsType(t, BCryptEncoder{}, enc)

	enc, err = NewPasswordEncoder("noop", 0)
	require.NoError(t, err)
	assert.IsType(t, NoopEncoder{}, enc)

	_, err = NewPasswordEncoder("bcrypt", 99)
	assert.Error(t, err)

	_, err = NewPasswordEncoder("md5", 0)
	assert.Error(t, err)
}
