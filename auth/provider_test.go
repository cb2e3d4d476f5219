package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webguard/models"
)

func TestProviderAuthenticate(t *testing.T) {
	b := newTestBackend(t)
	p := b.provider(t)

	t.Run("admin", func(t *testing.T) {
		got, err := p.Authenticate(t.Context(), "admin", "admin")
		require.NoError(t, err)
		assert.Equal(t, "admin", got.Username)
		assert.NotZero(t, got.UserID)
		assert.ElementsMatch(t, []string{"ROLE_USER", "ROLE_ADMIN"}, got.Roles)
		assert.True(t, got.HasAnyRole("ADMIN"))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := p.Authenticate(t.Context(), "admin", "nope")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := p.Authenticate(t.Context(), "ghost", "admin")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := p.Authenticate(t.Context(), "", "")
		assert.ErrorIs(t, err, ErrBadCredentials)
	})
}

type failingUsers struct{ err error }

func (f failingUsers) FindUserByUsername(context.Context, string) (*models.User, error) {
	return nil, f.err
}

func TestProviderStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	p := NewProvider(failingUsers{err: boom}, NoopEncoder{})

	_, err := p.Authenticate(t.Context(), "admin", "admin")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrBadCredentials)
}

func TestProviderWithNoopEncoder(t *testing.T) {
	b := newTestBackend(t)
	b.encoder = NoopEncoder{}
	p := b.provider(t)

	admin, err := b.users.FindUserByUsername(t.Context(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Password, "noop stores the password as given")

	_, err = p.Authenticate(t.Context(), "admin", "admin")
	assert.NoError(t, err)
}
