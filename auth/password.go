package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordEncoder encodes raw passwords for storage and compares login
// attempts against stored values.
type PasswordEncoder interface {
	Encode(raw string) (string, error)
	Matches(raw, encoded string) bool
}

// BCryptEncoder hashes with bcrypt at the given cost.
type BCryptEncoder struct {
	Cost int
}

// Encode errors if raw is longer than 72 bytes.
func (e BCryptEncoder) Encode(raw string) (string, error) {
	cost := e.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (BCryptEncoder) Matches(raw, encoded string) bool {
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(raw)) == nil
}

// NoopEncoder stores passwords as plain text. It exists for deployments
// whose users table already holds unencoded passwords.
type NoopEncoder struct{}

func (NoopEncoder) Encode(raw string) (string, error) { return raw, nil }

func (NoopEncoder) Matches(raw, encoded string) bool {
	return subtle.ConstantTimeCompare([]byte(raw), []byte(encoded)) == 1
}

// NewPasswordEncoder returns the encoder registered under name.
func NewPasswordEncoder(name string, bcryptCost int) (PasswordEncoder, error) {
	switch name {
	case "bcrypt", "":
		if bcryptCost != 0 && (bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost) {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
		return BCryptEncoder{Cost: bcryptCost}, nil
	case "noop":
		return NoopEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown password encoder %q", name)
	}
}
