package user

import (
	"document-vault/internal/domain"
	"document-vault/internal/errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service defines the interface for user business logic
type Service interface {
	Register(user *domain.User) error
	Login(email, password string) (*domain.User, error)
	Logout(id uint64) error
	GetUserByID(id uint64) (*domain.User, error)
	SearchUsers(query string) ([]domain.SafeUser, error)
	ListUsers(actor *domain.Principal, page, pageSize int) ([]domain.SafeUser, int64, error)
	DeactivateUser(actor *domain.Principal, id uint64) error
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
}

// NewService creates a new user service
func NewService(repository UserRepository) Service {
	return &DefaultService{repository: repository}
}

// Register registers a new user
func (s *DefaultService) Register(user *domain.User) error {
	// Check if user with email already exists
	_, err := s.repository.FindByEmail(user.Email)
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}
	if err == nil {
		return errors.UnprocessableEntity("User already registered", nil)
	}

	// Hash the password before saving
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.UnprocessableEntity("Can't hash password", err)
	}
	user.PasswordHash = string(hashedPassword)
	user.IsActive = true
	if user.Role == "" {
		user.Role = domain.UserRoleUser
	}

	// Create user
	return s.repository.Create(user)
}

// Login authenticates a user
func (s *DefaultService) Login(email, password string) (*domain.User, error) {
	// Find user by email
	user, err := s.repository.FindByEmail(email)
	if err != nil {
		return nil, errors.Unauthorized("User not found", err)
	}

	// Check if user is active
	if !user.IsActive {
		return nil, errors.Unauthorized("User is not active", nil)
	}

	// Check password
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		return nil, errors.UnprocessableEntity("Wrong password", err)
	}

	return user, nil
}

// Logout bumps the token version, revoking every outstanding token
func (s *DefaultService) Logout(id uint64) error {
	return s.repository.IncrementTokenVersion(id)
}

// GetUserByID gets a user by ID
func (s *DefaultService) GetUserByID(id uint64) (*domain.User, error) {
	return s.repository.FindByID(id)
}

// SearchUsers finds users for the share dialog
func (s *DefaultService) SearchUsers(query string) ([]domain.SafeUser, error) {
	if len(query) < 2 {
		return nil, errors.UnprocessableEntity("Query too short", nil)
	}

	users, err := s.repository.Search(query, 20)
	if err != nil {
		return nil, err
	}

	result := make([]domain.SafeUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].ToSafeUser())
	}
	return result, nil
}

// ListUsers is the admin-only user directory
func (s *DefaultService) ListUsers(actor *domain.Principal, page, pageSize int) ([]domain.SafeUser, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, errors.Forbidden("Admin only!", nil)
	}

	users, total, err := s.repository.List(page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	result := make([]domain.SafeUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].ToSafeUser())
	}
	return result, total, nil
}

// DeactivateUser deactivates a user account
func (s *DefaultService) DeactivateUser(actor *domain.Principal, id uint64) error {
	if actor.ID != id && !actor.IsAdmin() {
		return errors.Forbidden("Can't deactivate another user!", nil)
	}
	return s.repository.Deactivate(id)
}
