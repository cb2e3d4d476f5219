package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"webguard/models"
	"webguard/services"
)

var ErrBadCredentials = errors.New("invalid credentials")

// UserDetailsService looks up users by login name.
type UserDetailsService interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Provider validates credentials against persisted users. It holds no
// mutable state after construction and is shared by every login.
type Provider struct {
	users   UserDetailsService
	encoder PasswordEncoder

	// Unknown usernames are still compared against an encoded value so both
	// failure paths cost the same.
	dummyOnce    sync.Once
	dummyEncoded string
}

// NewProvider binds users and encoder without seeding anything.
func NewProvider(users UserDetailsService, encoder PasswordEncoder) *Provider {
	return &Provider{users: users, encoder: encoder}
}

// Authenticate returns the principal for username if password matches.
// Unknown users and wrong passwords both yield ErrBadCredentials.
func (p *Provider) Authenticate(ctx context.Context, username, password string) (*Principal, error) {
	if username == "" || password == "" {
		return nil, ErrBadCredentials
	}

	user, err := p.users.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			p.mitigateTiming(password)
			return nil, ErrBadCredentials
		}
		return nil, fmt.Errorf("failed to load user %q: %w", username, err)
	}

	if !p.encoder.Matches(password, user.Password) {
		return nil, ErrBadCredentials
	}
	return &Principal{UserID: user.ID, Username: user.Username, Roles: user.RoleNames()}, nil
}

func (p *Provider) mitigateTiming(password string) {
	p.dummyOnce.Do(func() {
		p.dummyEncoded, _ = p.encoder.Encode("userNotFoundPassword")
	})
	p.encoder.Matches(password, p.dummyEncoded)
}
