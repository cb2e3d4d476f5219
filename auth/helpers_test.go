package auth

import (
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"webguard/database/dbtest"
	"webguard/repositories"
	"webguard/services"
)

type testBackend struct {
	db      *gorm.DB
	users   services.UserService
	roles   services.RoleService
	encoder PasswordEncoder
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	db := dbtest.OpenTestDB(t)
	encoder := BCryptEncoder{Cost: bcrypt.MinCost}
	roleRepo := repositories.NewRoleRepository(db)
	return &testBackend{
		db:      db,
		users:   services.NewUserService(repositories.NewUserRepository(db), roleRepo, encoder),
		roles:   services.NewRoleService(roleRepo),
		encoder: encoder,
	}
}

func (b *testBackend) provider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewAuthenticationProvider(t.Context(), b.users, b.roles, b.encoder, DefaultSeedOptions(), zap.NewNop())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return p
}
