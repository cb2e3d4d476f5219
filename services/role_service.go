package services

import (
	"context"
	"fmt"

	"webguard/models"
	"webguard/repositories"
)

// RoleService is the role half of the user-lookup service.
type RoleService interface {
	FindAllRoles(ctx context.Context) ([]models.Role, error)
	AddRole(ctx context.Context, role *models.Role) error
	// EnsureRoles creates the named roles that do not exist yet.
	EnsureRoles(ctx context.Context, names ...string) error
}

type roleService struct {
	repo repositories.RoleRepository
}

var _ RoleService = (*roleService)(nil)

func NewRoleService(repo repositories.RoleRepository) RoleService {
	return &roleService{repo: repo}
}

func (s *roleService) FindAllRoles(ctx context.Context) ([]models.Role, error) {
	roles, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (s *roleService) AddRole(ctx context.Context, role *models.Role) error {
	if role.Name == "" {
		return fmt.Errorf("%w: role name is required", ErrInvalidInput)
	}
	if err := s.repo.Create(ctx, role); err != nil {
		return fmt.Errorf("failed to add role %q: %w", role.Name, err)
	}
	return nil
}

func (s *roleService) EnsureRoles(ctx context.Context, names ...string) error {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%w: role name is required", ErrInvalidInput)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	if err := s.repo.EnsureExists(ctx, unique...); err != nil {
		return fmt.Errorf("failed to ensure roles %v: %w", unique, err)
	}
	return nil
}
