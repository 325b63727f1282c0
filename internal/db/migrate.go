package db

import (
	"document-vault/internal/domain"
	"document-vault/internal/logger"
	"document-vault/internal/user"

	"go.uber.org/zap"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&domain.User{},
		&domain.Repository{},
		&domain.Folder{},
		&domain.File{},
		&domain.Assignment{},
		&domain.Notification{},
	)

	if err != nil {
		logger.Log.Fatal("database migration failed", zap.Error(err))
	}

	logger.Log.Info("Database schema migrated successfully")
}

// SeedData seeds the database with initial data (for development only)
func SeedData() {
	userRepo := user.NewRepository(AppDb)

	admin := &domain.User{
		Name:     "Vault Admin",
		Email:    "admin@example.com",
		Password: "password123",
		Role:     domain.UserRoleAdmin,
	}

	// Check if user exists
	_, err := userRepo.FindByEmail(admin.Email)
	if err != nil {
		userService := user.NewService(userRepo)
		// User doesn't exist, create it
		if err := userService.Register(admin); err != nil {
			logger.Log.Warn("error creating seed admin", zap.Error(err))
		} else {
			logger.Log.Info("Created seed admin", zap.String("email", admin.Email))
		}
	} else {
		logger.Log.Info("Seed admin already exists", zap.String("email", admin.Email))
	}
}
