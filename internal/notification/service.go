package notification

import (
	"context"
	defError "errors"

	"document-vault/internal/domain"
	"document-vault/internal/errors"
	"document-vault/internal/hub"
	"document-vault/internal/worker"
	"document-vault/redis"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const listingVersionKey = "resources:version"

type ResolveAction string

const (
	ActionAccept ResolveAction = "accept"
	ActionReject ResolveAction = "reject"
)

type RequestAccessResponse struct {
	Notification *domain.Notification `json:"notification"`
	Message      string               `json:"message"`
	AlreadySent  bool                 `json:"already_sent"`
}

type PaginatedNotifications struct {
	Data []domain.Notification `json:"data"`
	Meta NotificationsMeta     `json:"meta"`
}

type Service interface {
	RequestAccess(ctx context.Context, resourceID uuid.UUID, requester *domain.Principal) (*RequestAccessResponse, error)
	Resolve(ctx context.Context, notificationID uuid.UUID, action ResolveAction, role domain.AssignmentRole, actor *domain.Principal) (*domain.Notification, error)
	Dismiss(ctx context.Context, notificationID uuid.UUID, actor *domain.Principal) error
	ListFor(ctx context.Context, recipientID uint64, page, pageSize int) (*PaginatedNotifications, error)
}

// ResourceDirectory resolves the resource a request points at. Only the ref
// lookup is needed here; owner and existence come off the ref.
type ResourceDirectory interface {
	FindRef(ctx context.Context, id uuid.UUID) (*domain.ResourceRef, error)
}

type DefaultService struct {
	repository Repository
	resources  ResourceDirectory
	hubClient  hub.Client
	cache      *redis.Cache
	pool       *worker.Pool
}

func NewService(
	repository Repository,
	resources ResourceDirectory,
	hubClient hub.Client,
	cache *redis.Cache,
	pool *worker.Pool,
) Service {
	return &DefaultService{
		repository: repository,
		resources:  resources,
		hubClient:  hubClient,
		cache:      cache,
		pool:       pool,
	}
}

// RequestAccess opens an access-request ticket addressed to the resource
// owner. A second request for the same pair while one is still pending is
// answered with the existing ticket, deliberately not with a conflict.
func (s *DefaultService) RequestAccess(ctx context.Context, resourceID uuid.UUID, requester *domain.Principal) (*RequestAccessResponse, error) {
	ref, err := s.resources.FindRef(ctx, resourceID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("Resource not found", err)
	}
	if err != nil {
		return nil, err
	}

	if ref.OwnerID == requester.ID {
		return nil, errors.UnprocessableEntity("You already own this resource!", nil)
	}

	existing, err := s.repository.FindPending(ctx, requester.ID, resourceID)
	if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return &RequestAccessResponse{
			Notification: existing,
			Message:      "Request already sent",
			AlreadySent:  true,
		}, nil
	}

	notification := &domain.Notification{
		RecipientID: ref.OwnerID,
		SenderID:    requester.ID,
		ResourceID:  resourceID,
	}
	if err := s.repository.Create(ctx, notification); err != nil {
		return nil, err
	}

	return &RequestAccessResponse{
		Notification: notification,
		Message:      "Request sent",
	}, nil
}

// Resolve accepts or rejects a pending request. Only the recipient (or an
// admin) may resolve; a request that was already resolved or dismissed no
// longer exists as pending and reads as not found.
func (s *DefaultService) Resolve(
	ctx context.Context,
	notificationID uuid.UUID,
	action ResolveAction,
	role domain.AssignmentRole,
	actor *domain.Principal,
) (*domain.Notification, error) {
	notification, err := s.repository.FindByID(ctx, notificationID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("Notification not found", err)
	}
	if err != nil {
		return nil, err
	}

	if notification.RecipientID != actor.ID && !actor.IsAdmin() {
		return nil, errors.Forbidden("Only the recipient can resolve this request!", nil)
	}

	if notification.Status != domain.StatusPending {
		return nil, errors.NotFound("Notification is no longer pending", nil)
	}

	switch action {
	case ActionAccept:
		if role != domain.RoleViewer && role != domain.RoleEditor {
			return nil, errors.UnprocessableEntity("A role is required to accept", nil)
		}

		accepted, err := s.repository.Accept(ctx, notificationID, role)
		if defError.Is(err, gorm.ErrRecordNotFound) {
			// raced with another resolve
			return nil, errors.NotFound("Notification is no longer pending", err)
		}
		if err != nil {
			return nil, err
		}

		s.afterGrant(accepted.ResourceID, accepted.SenderID, string(role))

		return accepted, nil
	case ActionReject:
		err := s.repository.Reject(ctx, notificationID)
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Notification is no longer pending", err)
		}
		if err != nil {
			return nil, err
		}

		notification.Status = domain.StatusRejected
		return notification, nil
	default:
		return nil, errors.UnprocessableEntity("Invalid resolve action", nil)
	}
}

// Dismiss deletes the ticket outright, whatever its status. Housekeeping for
// the recipient's inbox, not a business outcome.
func (s *DefaultService) Dismiss(ctx context.Context, notificationID uuid.UUID, actor *domain.Principal) error {
	notification, err := s.repository.FindByID(ctx, notificationID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Notification not found", err)
	}
	if err != nil {
		return err
	}

	if notification.RecipientID != actor.ID && !actor.IsAdmin() {
		return errors.Forbidden("Only the recipient can dismiss this notification!", nil)
	}

	err = s.repository.Delete(ctx, notificationID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Notification not found", err)
	}
	return err
}

func (s *DefaultService) ListFor(ctx context.Context, recipientID uint64, page, pageSize int) (*PaginatedNotifications, error) {
	notifications, meta, err := s.repository.ListByRecipient(ctx, recipientID, page, pageSize)
	if err != nil {
		return nil, err
	}

	if notifications == nil {
		notifications = []domain.Notification{}
	}

	return &PaginatedNotifications{Data: notifications, Meta: meta}, nil
}

func (s *DefaultService) afterGrant(resourceID uuid.UUID, userID uint64, role string) {
	if s.pool == nil {
		return
	}

	s.pool.Submit(func(ctx context.Context) error {
		s.cache.IncrementVersion(ctx, listingVersionKey)
		return nil
	})

	if s.hubClient != nil {
		s.pool.Submit(func(ctx context.Context) error {
			return s.hubClient.UpdateUserPermission(ctx, resourceID, userID, role)
		})
	}
}
