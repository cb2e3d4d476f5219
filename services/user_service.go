package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"webguard/models"
	"webguard/repositories"
)

// DefaultUserRole is assigned to self-registered users.
const DefaultUserRole = "ROLE_USER"

// PasswordEncoder encodes raw passwords before they are stored.
type PasswordEncoder interface {
	Encode(raw string) (string, error)
}

// The UserService interface is the user-lookup service consulted on every
// login and by the administration API.
type UserService interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, userID uint) (*models.User, error)
	ListUsers(ctx context.Context, page int, pageSize int) ([]models.User, int64, error)
	// AddUser stores user as given. Its password must already be encoded.
	AddUser(ctx context.Context, user *models.User) error
	RegisterUser(ctx context.Context, input *CreateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, userID uint) error
	// ResetUser creates or overwrites the user with the same username.
	ResetUser(ctx context.Context, user *models.User) error
}

// --- Structs for Input/Output ---
type CreateUserInput struct {
	Username string   `json:"username" description:"Unique login name"`
	Password string   `json:"password" description:"Raw password, encoded before storage"`
	Roles    []string `json:"roles,omitempty" description:"Role names; defaults to ROLE_USER"`
}

// The userService structure is the implementation of the UserService interface
type userService struct {
	repo    repositories.UserRepository
	roles   repositories.RoleRepository
	encoder PasswordEncoder
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new UserService instance
func NewUserService(repo repositories.UserRepository, roles repositories.RoleRepository, encoder PasswordEncoder) UserService {
	return &userService{repo: repo, roles: roles, encoder: encoder}
}

func (s *userService) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error retrieving user %q: %w", username, err)
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error retrieving user %d: %w", userID, err)
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, page int, pageSize int) ([]models.User, int64, error) {
	if page < 1 || pageSize < 1 {
		return nil, 0, fmt.Errorf("%w: page and page_size must be positive", ErrInvalidInput)
	}
	users, total, err := s.repo.FindAll(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("database error retrieving users: %w", err)
	}
	return users, total, nil
}

func (s *userService) AddUser(ctx context.Context, user *models.User) error {
	if user.Username == "" || user.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	n, err := s.repo.CountByUsername(ctx, user.Username)
	if err != nil {
		return fmt.Errorf("database error checking existing user: %w", err)
	}
	if n > 0 {
		return ErrUserExists
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// RegisterUser encodes the password and assigns the requested roles, or
// ROLE_USER when none are given. Every named role must exist.
func (s *userService) RegisterUser(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	if input.Username == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	names := input.Roles
	if len(names) == 0 {
		names = []string{DefaultUserRole}
	}
	roles, err := s.roles.FindByNames(ctx, names...)
	if err != nil {
		return nil, fmt.Errorf("database error retrieving roles: %w", err)
	}
	if len(roles) != len(uniqueNames(names)) {
		return nil, fmt.Errorf("%w: %v", ErrRoleNotFound, names)
	}

	encoded, err := s.encoder.Encode(input.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPasswordEncode, err)
	}

	user := &models.User{
		Username: input.Username,
		Password: encoded,
		Roles:    roles,
	}
	if err := s.AddUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, userID uint) error {
	if err := s.repo.DeleteByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user %d: %w", userID, err)
	}
	return nil
}

func (s *userService) ResetUser(ctx context.Context, user *models.User) error {
	if user.Username == "" || user.Password == "" {
		return fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	if err := s.repo.Upsert(ctx, user); err != nil {
		return fmt.Errorf("failed to reset user %q: %w", user.Username, err)
	}
	return nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0:0]
	for _, n := range names {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}
