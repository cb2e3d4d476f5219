package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token is either expired or not active yet")
)

// CustomClaims carries the principal inside the session token.
type CustomClaims struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates HS256 session tokens.
type TokenIssuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewTokenIssuer(key []byte, ttl time.Duration, issuer string) (*TokenIssuer, error) {
	if len(key) == 0 {
		return nil, errors.New("token signing key is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenIssuer{key: key, ttl: ttl, issuer: issuer, now: time.Now}, nil
}

// TTL is how long issued tokens stay valid.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue creates a signed token for p and returns it with its expiry.
func (t *TokenIssuer) Issue(p *Principal) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)
	claims := &CustomClaims{
		UserID:   p.UserID,
		Username: p.Username,
		Roles:    p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Subject:   p.Username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("could not sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates tokenString and returns the principal it carries.
func (t *TokenIssuer) Parse(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if t.issuer != "" && claims.Issuer != t.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	return &Principal{UserID: claims.UserID, Username: claims.Username, Roles: claims.Roles}, nil
}
