package access

import (
	"context"
	"time"

	"document-vault/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignmentRepository interface {
	Upsert(ctx context.Context, assignment *domain.Assignment) error
	Delete(ctx context.Context, resourceID uuid.UUID, userID uint64) (bool, error)
	FindForUserIn(ctx context.Context, userID uint64, resourceIDs []uuid.UUID) ([]domain.Assignment, error)
	ListForUser(ctx context.Context, userID uint64) ([]domain.Assignment, error)
}

type AssignmentRepositoryImpl struct {
	db *gorm.DB
}

func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &AssignmentRepositoryImpl{db: db}
}

// Upsert creates the grant or, when the (user_id, resource_id) pair already
// exists, updates its role in place. Concurrent writers for the same pair
// serialize on the unique index; last writer wins on role.
func (r *AssignmentRepositoryImpl) Upsert(ctx context.Context, assignment *domain.Assignment) error {
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "resource_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"role":          assignment.Role,
			"granted_by_id": assignment.GrantedByID,
			"updated_at":    now,
		}),
	}).Create(assignment).Error
}

// Delete removes the grant; the bool reports whether one existed.
func (r *AssignmentRepositoryImpl) Delete(ctx context.Context, resourceID uuid.UUID, userID uint64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("resource_id = ? AND user_id = ?", resourceID, userID).
		Delete(&domain.Assignment{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *AssignmentRepositoryImpl) FindForUserIn(ctx context.Context, userID uint64, resourceIDs []uuid.UUID) ([]domain.Assignment, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}

	var assignments []domain.Assignment
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND resource_id IN ?", userID, resourceIDs).
		Find(&assignments).Error
	return assignments, err
}

func (r *AssignmentRepositoryImpl) ListForUser(ctx context.Context, userID uint64) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&assignments).Error
	return assignments, err
}
