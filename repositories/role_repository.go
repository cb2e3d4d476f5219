package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"webguard/models"
)

// RoleRepository interface defines Role-related database operations
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	FindAll(ctx context.Context) ([]models.Role, error)
	FindByNames(ctx context.Context, names ...string) ([]models.Role, error)
	// EnsureExists inserts every missing name and leaves existing rows alone.
	EnsureExists(ctx context.Context, names ...string) error
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository instance
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *roleRepository) FindAll(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) FindByNames(ctx context.Context, names ...string) ([]models.Role, error) {
	var roles []models.Role
	if len(names) == 0 {
		return roles, nil
	}
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) EnsureExists(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	roles := make([]models.Role, 0, len(names))
	for _, name := range names {
		roles = append(roles, models.Role{Name: name})
	}
	// The unique index on name decides, not a prior read.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&roles).Error
}
