package access

import (
	"context"
	defError "errors"
	"fmt"
	"sort"
	"time"

	"document-vault/internal/domain"
	"document-vault/internal/errors"
	"document-vault/internal/hub"
	"document-vault/internal/worker"
	"document-vault/redis"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// listingVersionKey is bumped whenever any grant, revocation, or resource
// mutation could change someone's visible set.
const listingVersionKey = "resources:version"

type Service interface {
	Check(ctx context.Context, resourceID uuid.UUID, principal *domain.Principal, level domain.AccessLevel) (bool, error)
	ListAccessible(ctx context.Context, principal *domain.Principal, page, pageSize int) (*PaginatedResources, error)
	Grant(ctx context.Context, resourceID uuid.UUID, targetUserID uint64, role domain.AssignmentRole, actor *domain.Principal) (*domain.Assignment, error)
	Revoke(ctx context.Context, resourceID uuid.UUID, targetUserID uint64, actor *domain.Principal) error
}

type UserProvider interface {
	GetUserByID(id uint64) (*domain.User, error)
}

type DefaultService struct {
	resolver     *Resolver
	resources    ResourceDirectory
	assignments  AssignmentRepository
	userProvider UserProvider
	hubClient    hub.Client
	cache        *redis.Cache
	pool         *worker.Pool
}

func NewService(
	resolver *Resolver,
	resources ResourceDirectory,
	assignments AssignmentRepository,
	userProvider UserProvider,
	hubClient hub.Client,
	cache *redis.Cache,
	pool *worker.Pool,
) Service {
	return &DefaultService{
		resolver:     resolver,
		resources:    resources,
		assignments:  assignments,
		userProvider: userProvider,
		hubClient:    hubClient,
		cache:        cache,
		pool:         pool,
	}
}

// Check answers the checkAccess operation. Unlike the raw resolver it owes
// the caller a 404 for an unknown resource id.
func (s *DefaultService) Check(ctx context.Context, resourceID uuid.UUID, principal *domain.Principal, level domain.AccessLevel) (bool, error) {
	if level != domain.AccessRead && level != domain.AccessWrite {
		return false, errors.UnprocessableEntity("Invalid access level", nil)
	}

	ref, err := s.resources.FindRef(ctx, resourceID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return false, errors.NotFound("Resource not found", err)
	}
	if err != nil {
		return false, err
	}

	return s.resolver.HasAccessToRef(ctx, ref, principal, level)
}

type ResourceSummary struct {
	ID           uuid.UUID           `json:"id"`
	Kind         domain.ResourceKind `json:"kind"`
	Path         string              `json:"path"`
	RepositoryID uuid.UUID           `json:"repository_id"`
	OwnerID      uint64              `json:"owner_id"`
	IsPublic     bool                `json:"is_public"`
	CreatedAt    time.Time           `json:"created_at"`
}

type ListingMeta struct {
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPage   int `json:"total_page"`
}

type PaginatedResources struct {
	Data []ResourceSummary `json:"data"`
	Meta ListingMeta       `json:"meta"`
}

// ListAccessible computes the visible set for a principal: owned resources,
// public resources, and everything nested under a folder the principal holds
// a direct assignment on. Anonymous callers see only the public set.
func (s *DefaultService) ListAccessible(ctx context.Context, principal *domain.Principal, page, pageSize int) (*PaginatedResources, error) {
	var principalID uint64
	if principal != nil {
		principalID = principal.ID
	}

	v := s.cache.GetVersion(ctx, listingVersionKey)
	cacheKey := fmt.Sprintf("acl:u:%d:v:%d:p:%d:ps:%d", principalID, v, page, pageSize)

	var result PaginatedResources
	found, _ := s.cache.Get(ctx, cacheKey, &result)
	if found {
		return &result, nil
	}

	visible := map[uuid.UUID]domain.ResourceRef{}

	publicRefs, err := s.resources.PublicRefs(ctx)
	if err != nil {
		return nil, err
	}
	for _, ref := range publicRefs {
		visible[ref.ID] = ref
	}

	if principal != nil {
		ownedRefs, err := s.resources.OwnedRefs(ctx, principal.ID)
		if err != nil {
			return nil, err
		}
		for _, ref := range ownedRefs {
			visible[ref.ID] = ref
		}

		// the inverse of the resolver's ancestor walk: expand each directly
		// assigned resource into its descendant closure
		assignments, err := s.assignments.ListForUser(ctx, principal.ID)
		if err != nil {
			return nil, err
		}
		for _, assignment := range assignments {
			root, err := s.resources.FindRef(ctx, assignment.ResourceID)
			if defError.Is(err, gorm.ErrRecordNotFound) {
				continue // grant outlived its resource
			}
			if err != nil {
				return nil, err
			}

			closure, err := s.resources.DescendantRefs(ctx, *root)
			if err != nil {
				return nil, err
			}
			for _, ref := range closure {
				visible[ref.ID] = ref
			}
		}
	}

	refs := make([]domain.ResourceRef, 0, len(visible))
	for _, ref := range visible {
		refs = append(refs, ref)
	}

	// newest first; id tiebreak keeps the order deterministic
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].CreatedAt.Equal(refs[j].CreatedAt) {
			return refs[i].CreatedAt.After(refs[j].CreatedAt)
		}
		return refs[i].ID.String() < refs[j].ID.String()
	})

	total := len(refs)
	totalPages := (total + pageSize - 1) / pageSize
	offset := (page - 1) * pageSize
	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}

	pageData := make([]ResourceSummary, 0, end-offset)
	for _, ref := range refs[offset:end] {
		pageData = append(pageData, ResourceSummary{
			ID:           ref.ID,
			Kind:         ref.Kind,
			Path:         ref.Path,
			RepositoryID: ref.RepositoryID,
			OwnerID:      ref.OwnerID,
			IsPublic:     ref.IsPublic,
			CreatedAt:    ref.CreatedAt,
		})
	}

	result = PaginatedResources{
		Data: pageData,
		Meta: ListingMeta{
			Total:       total,
			CurrentPage: page,
			PerPage:     pageSize,
			TotalPage:   totalPages,
		},
	}

	// set value to cache
	go s.cache.Set(context.Background(), cacheKey, result, 24*time.Hour)

	return &result, nil
}

func (s *DefaultService) Grant(
	ctx context.Context,
	resourceID uuid.UUID,
	targetUserID uint64,
	role domain.AssignmentRole,
	actor *domain.Principal,
) (*domain.Assignment, error) {
	ref, err := s.resources.FindRef(ctx, resourceID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("Resource not found", err)
	}
	if err != nil {
		return nil, err
	}

	allowed, err := s.resolver.CanAdminister(ctx, ref, actor)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errors.Forbidden("Only the owner can grant access!", nil)
	}

	if targetUserID == ref.OwnerID {
		return nil, errors.UnprocessableEntity("Owner already has full access!", nil)
	}

	// Ensure target user exists
	if _, err := s.userProvider.GetUserByID(targetUserID); err != nil {
		return nil, errors.UnprocessableEntity("Can't find user!", err)
	}

	assignment := &domain.Assignment{
		ResourceID:  resourceID,
		UserID:      targetUserID,
		Role:        role,
		GrantedByID: actor.ID,
	}
	if err := s.assignments.Upsert(ctx, assignment); err != nil {
		return nil, err
	}

	s.afterAssignmentChange(resourceID, targetUserID, string(role))

	return assignment, nil
}

func (s *DefaultService) Revoke(
	ctx context.Context,
	resourceID uuid.UUID,
	targetUserID uint64,
	actor *domain.Principal,
) error {
	ref, err := s.resources.FindRef(ctx, resourceID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Resource not found", err)
	}
	if err != nil {
		return err
	}

	allowed, err := s.resolver.CanAdminister(ctx, ref, actor)
	if err != nil {
		return err
	}
	if !allowed {
		return errors.Forbidden("Only the owner can revoke access!", nil)
	}

	existed, err := s.assignments.Delete(ctx, resourceID, targetUserID)
	if err != nil {
		return err
	}
	if !existed {
		return errors.NotFound("Assignment not found", nil)
	}

	s.afterAssignmentChange(resourceID, targetUserID, "none")

	return nil
}

// afterAssignmentChange invalidates cached listings and tells the realtime
// hub to re-check open connections, both off the request path.
func (s *DefaultService) afterAssignmentChange(resourceID uuid.UUID, userID uint64, role string) {
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
