package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	tokens, err := NewTokenIssuer([]byte("test-secret"), time.Hour, "webguard")
	require.NoError(t, err)
	return tokens
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := newTestIssuer(t)

	signed, expiresAt, err := tokens.Issue(adminP)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, adminP, got)
}

func TestTokenExpired(t *testing.T) {
	tokens := newTestIssuer(t)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	signed, _, err := tokens.Issue(userP)
	require.NoError(t, err)

	_, err = tokens.Parse(signed)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenRejected(t *testing.T) {
	tokens := newTestIssuer(t)

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewTokenIssuer([]byte("another-secret"), time.Hour, "webguard")
		require.NoError(t, err)
		signed, _, err := other.Issue(userP)
		require.NoError(t, err)

		_, err = tokens.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenIssuer([]byte("test-secret"), time.Hour, "someone-else")
		require.NoError(t, err)
		signed, _, err := other.Issue(userP)
		require.NoError(t, err)

		_, err = tokens.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unsigned", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{Username: "admin"}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tokens.Parse(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokenIssuerValidates(t *testing.T) {
	_, err := NewTokenIssuer(nil, time.Hour, "")
	assert.Error(t, err)
	_, err = NewTokenIssuer([]byte("k"), 0, "")
	assert.Error(t, err)
}
