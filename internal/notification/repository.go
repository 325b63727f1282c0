package notification

import (
	"context"
	"time"

	"document-vault/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationsMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

type Repository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	FindPending(ctx context.Context, senderID uint64, resourceID uuid.UUID) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uint64, page, pageSize int) ([]domain.Notification, NotificationsMeta, error)
	Accept(ctx context.Context, id uuid.UUID, role domain.AssignmentRole) (*domain.Notification, error)
	Reject(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) Create(ctx context.Context, notification *domain.Notification) error {
	now := time.Now().UTC()
	notification.Status = domain.StatusPending
	notification.CreatedAt = now
	notification.UpdatedAt = now
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var notification domain.Notification
	err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *RepositoryImpl) FindPending(ctx context.Context, senderID uint64, resourceID uuid.UUID) (*domain.Notification, error) {
	var notification domain.Notification
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND resource_id = ? AND status = ?", senderID, resourceID, domain.StatusPending).
		First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *RepositoryImpl) ListByRecipient(ctx context.Context, recipientID uint64, page, pageSize int) ([]domain.Notification, NotificationsMeta, error) {
	var notifications []domain.Notification
	var totalRecords int64

	// Count total records
	if err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ?", recipientID).
		Count(&totalRecords).Error; err != nil {
		return notifications, NotificationsMeta{}, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&notifications).Error

	totalPages := int((totalRecords + int64(pageSize) - 1) / int64(pageSize))

	return notifications, NotificationsMeta{
		Total:       totalRecords,
		PerPage:     pageSize,
		TotalPage:   totalPages,
		CurrentPage: page,
	}, err
}

// Accept flips the notification to accepted and upserts the grant it asked
// for, in one transaction. A notification that is no longer pending comes
// back as gorm.ErrRecordNotFound; the row lock serializes a racing resolve.
func (r *RepositoryImpl) Accept(ctx context.Context, id uuid.UUID, role domain.AssignmentRole) (*domain.Notification, error) {
	var notification domain.Notification

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&notification, "id = ? AND status = ?", id, domain.StatusPending).Error; err != nil {
			return err
		}

		now := time.Now().UTC()

		if err := tx.Model(&domain.Notification{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":     domain.StatusAccepted,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		assignment := &domain.Assignment{
			ResourceID:  notification.ResourceID,
			UserID:      notification.SenderID,
			Role:        role,
			GrantedByID: notification.RecipientID,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "resource_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"role":          role,
				"granted_by_id": notification.RecipientID,
				"updated_at":    now,
			}),
		}).Create(assignment).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	notification.Status = domain.StatusAccepted
	return &notification, nil
}

func (r *RepositoryImpl) Reject(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]any{
			"status":     domain.StatusRejected,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
