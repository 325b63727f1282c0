package user

import (
	"document-vault/internal/domain"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *domain.User) error
	FindByEmail(email string) (*domain.User, error)
	FindByID(id uint64) (*domain.User, error)
	Search(query string, limit int) ([]domain.User, error)
	List(page, pageSize int) ([]domain.User, int64, error)
	IncrementTokenVersion(id uint64) error
	Deactivate(id uint64) error
}

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new user repository
func NewRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create creates a new user
func (r *UserRepositoryImpl) Create(user *domain.User) error {
	return r.db.Create(user).Error
}

// FindByEmail finds a user by email
func (r *UserRepositoryImpl) FindByEmail(email string) (*domain.User, error) {
	var user domain.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, err
}

// FindByID finds a user by ID
func (r *UserRepositoryImpl) FindByID(id uint64) (*domain.User, error) {
	var user domain.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Search finds active users matching the query by name or email
func (r *UserRepositoryImpl) Search(query string, limit int) ([]domain.User, error) {
	var users []domain.User
	pattern := "%" + query + "%"
	err := r.db.
		Where("is_active = ? AND (name ILIKE ? OR email ILIKE ?)", true, pattern, pattern).
		Limit(limit).
		Find(&users).Error
	return users, err
}

// List returns a page of users with the total count
func (r *UserRepositoryImpl) List(page, pageSize int) ([]domain.User, int64, error) {
	var users []domain.User
	var total int64

	if err := r.db.Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := r.db.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&users).Error
	return users, total, err
}

// IncrementTokenVersion invalidates every outstanding token for the user
func (r *UserRepositoryImpl) IncrementTokenVersion(id uint64) error {
	return r.db.Model(&domain.User{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error
}

// Deactivate deactivates a user
func (r *UserRepositoryImpl) Deactivate(id uint64) error {
	user, err := r.FindByID(id)
	if err != nil {
		return err
	}

	user.IsActive = false
	return r.db.Save(user).Error
}
