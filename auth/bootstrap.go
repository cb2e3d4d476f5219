package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"webguard/models"
	"webguard/services"
)

// SeedOptions describes the roles and admin account written at startup.
type SeedOptions struct {
	Roles         []string
	AdminUsername string
	AdminPassword string
}

// DefaultSeedOptions seeds ROLE_USER, ROLE_ADMIN and admin/admin.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		Roles:         []string{"ROLE_USER", "ROLE_ADMIN"},
		AdminUsername: "admin",
		AdminPassword: "admin",
	}
}

// NewAuthenticationProvider seeds the default roles and the admin account,
// then returns a provider verifying logins against users with encoder.
// Any persistence failure is returned and the provider is not built.
func NewAuthenticationProvider(
	ctx context.Context,
	users services.UserService,
	roles services.RoleService,
	encoder PasswordEncoder,
	seed SeedOptions,
	logger *zap.Logger,
) (*Provider, error) {
	if _, err := Seed(ctx, users, roles, encoder, seed, logger); err != nil {
		return nil, err
	}
	return NewProvider(users, encoder), nil
}

// Seed makes sure every role in seed.Roles exists and that exactly one
// admin account exists, holding every role present once the roles are in
// place. The admin's password is reset to seed.AdminPassword each run.
//
// Both steps are upserts keyed on unique columns, so concurrent or repeated
// runs converge on the same rows.
func Seed(
	ctx context.Context,
	users services.UserService,
	roles services.RoleService,
	encoder PasswordEncoder,
	seed SeedOptions,
	logger *zap.Logger,
) (*models.User, error) {
	if seed.AdminUsername == "" || seed.AdminPassword == "" {
		return nil, errors.New("seed: admin username and password are required")
	}

	if err := roles.EnsureRoles(ctx, seed.Roles...); err != nil {
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	all, err := roles.FindAllRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed roles: %w", err)
	}

	encoded, err := encoder.Encode(seed.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("seed admin: could not encode password: %w", err)
	}

	admin := &models.User{
		Username: seed.AdminUsername,
		Password: encoded,
		Roles:    all,
	}
	if err := users.ResetUser(ctx, admin); err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}

	logger.Info("Seeded roles and admin account",
		zap.Strings("roles", admin.RoleNames()),
		zap.String("admin", admin.Username),
		zap.Uint("admin_id", admin.ID),
	)
	return admin, nil
}
