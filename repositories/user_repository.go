package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"webguard/models"
)

// UserRepository interface defines User-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	CountByUsername(ctx context.Context, username string) (int64, error)
	DeleteByID(ctx context.Context, id uint) error
	FindAll(ctx context.Context, page int, pageSize int) ([]models.User, int64, error)
	// Upsert writes user keyed on its unique username and replaces its roles.
	// The stored row, with roles loaded, is copied back into user.
	Upsert(ctx context.Context, user *models.User) error
}

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new User together with its role links. Roles must
// already exist.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Roles.*").Create(user).Error
}

// FindByID finds User by ID
func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds User by Username
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).Preload("Roles").Where("username = ?", username).First(&user)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

func (r *userRepository) CountByUsername(ctx context.Context, username string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error
	return n, err
}

// DeleteByID removes the user and its role links. Deleting a missing ID
// returns gorm.ErrRecordNotFound.
func (r *userRepository) DeleteByID(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{ID: id}
		if err := tx.Model(&user).Association("Roles").Clear(); err != nil {
			return err
		}
		result := tx.Delete(&user)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FindAll Pagination find all Users
func (r *userRepository) FindAll(ctx context.Context, page int, pageSize int) ([]models.User, int64, error) {
	offset := (page - 1) * pageSize
	var users []models.User
	var total int64

	db := r.db.WithContext(ctx)
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	result := db.Preload("Roles").Order("id").Offset(offset).Limit(pageSize).Find(&users)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return users, total, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.User{Username: user.Username, Password: user.Password}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}},
			DoUpdates: clause.AssignmentColumns([]string{"password", "updated_at"}),
		}).Omit("Roles").Create(&row).Error
		if err != nil {
			return err
		}

		// The insert may have been an update, so the ID comes from a re-read.
		var stored models.User
		if err := tx.Where("username = ?", user.Username).First(&stored).Error; err != nil {
			return err
		}
		if err := tx.Model(&stored).Association("Roles").Replace(user.Roles); err != nil {
			return err
		}
		var reloaded models.User
		if err := tx.Preload("Roles").First(&reloaded, stored.ID).Error; err != nil {
			return err
		}
		*user = reloaded
		return nil
	})
}
