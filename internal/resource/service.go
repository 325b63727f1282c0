package resource

import (
	"context"
	defError "errors"
	"io"

	"document-vault/internal/access"
	"document-vault/internal/blob"
	"document-vault/internal/domain"
	"document-vault/internal/errors"
	"document-vault/internal/hub"
	"document-vault/internal/worker"
	"document-vault/redis"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const listingVersionKey = "resources:version"

type CreateResourceInput struct {
	Kind         domain.ResourceKind
	Path         string
	ParentID     *uuid.UUID
	RepositoryID uuid.UUID
	IsPublic     bool
}

type Service interface {
	CreateRepository(ctx context.Context, principal *domain.Principal, name string) (*domain.Repository, error)
	CreateResource(ctx context.Context, principal *domain.Principal, input CreateResourceInput) (*domain.ResourceRef, error)
	GetResource(ctx context.Context, principal *domain.Principal, id uuid.UUID) (*domain.ResourceRef, error)
	DeleteResource(ctx context.Context, principal *domain.Principal, id uuid.UUID) error
	UploadContent(ctx context.Context, principal *domain.Principal, id uuid.UUID, reader io.Reader, size int64, contentType string) (*domain.File, error)
	DownloadContent(ctx context.Context, principal *domain.Principal, id uuid.UUID) (io.ReadCloser, string, error)
}

type DefaultService struct {
	repository Repository
	resolver   *access.Resolver
	blobStore  blob.Store
	hubClient  hub.Client
	cache      *redis.Cache
	pool       *worker.Pool
}

func NewService(
	repository Repository,
	resolver *access.Resolver,
	blobStore blob.Store,
	hubClient hub.Client,
	cache *redis.Cache,
	pool *worker.Pool,
) Service {
	return &DefaultService{
		repository: repository,
		resolver:   resolver,
		blobStore:  blobStore,
		hubClient:  hubClient,
		cache:      cache,
		pool:       pool,
	}
}

func (s *DefaultService) CreateRepository(ctx context.Context, principal *domain.Principal, name string) (*domain.Repository, error) {
	repo := &domain.Repository{
		Name:    name,
		OwnerID: principal.ID,
	}
	if err := s.repository.CreateRepository(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// CreateResource creates a folder or file. Only the repository owner (or an
// admin) may create inside a repository; the creator becomes the owner.
func (s *DefaultService) CreateResource(ctx context.Context, principal *domain.Principal, input CreateResourceInput) (*domain.ResourceRef, error) {
	repo, err := s.repository.FindRepository(ctx, input.RepositoryID)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("Repository not found", err)
	}
	if err != nil {
		return nil, err
	}

	if repo.OwnerID != principal.ID && !principal.IsAdmin() {
		return nil, errors.Forbidden("Only the repository owner can create resources!", nil)
	}

	if input.ParentID != nil {
		parent, err := s.repository.FindFolderRef(ctx, *input.ParentID)
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.UnprocessableEntity("Parent folder not found", err)
		}
		if err != nil {
			return nil, err
		}
		if parent.RepositoryID != input.RepositoryID {
			return nil, errors.UnprocessableEntity("Parent folder belongs to another repository", nil)
		}
	}

	var ref domain.ResourceRef
	switch input.Kind {
	case domain.KindFolder:
		folder := &domain.Folder{
			Path:         input.Path,
			ParentID:     input.ParentID,
			RepositoryID: input.RepositoryID,
			OwnerID:      principal.ID,
			IsPublic:     input.IsPublic,
		}
		if err := s.repository.CreateFolder(ctx, folder); err != nil {
			if defError.Is(err, gorm.ErrDuplicatedKey) {
				return nil, errors.Conflict("A folder already exists at this path", err)
			}
			return nil, err
		}
		ref = folder.Ref()
	case domain.KindFile:
		file := &domain.File{
			Path:         input.Path,
			ParentID:     input.ParentID,
			RepositoryID: input.RepositoryID,
			OwnerID:      principal.ID,
			IsPublic:     input.IsPublic,
		}
		if err := s.repository.CreateFile(ctx, file); err != nil {
			if defError.Is(err, gorm.ErrDuplicatedKey) {
				return nil, errors.Conflict("A file already exists at this path", err)
			}
			return nil, err
		}
		ref = file.Ref()
	default:
		return nil, errors.UnprocessableEntity("Invalid resource kind", nil)
	}

	s.bumpListingVersion()

	return &ref, nil
}

func (s *DefaultService) GetResource(ctx context.Context, principal *domain.Principal, id uuid.UUID) (*domain.ResourceRef, error) {
	ref, err := s.repository.FindRef(ctx, id)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("Resource not found", err)
	}
	if err != nil {
		return nil, err
	}

	allowed, err := s.resolver.HasAccessToRef(ctx, ref, principal, domain.AccessRead)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, s.denied(principal)
	}

	return ref, nil
}

// DeleteResource removes a resource and its whole subtree. An editor grant
// does not authorize deletion; destruction is reserved for the resource
// owner, the repository owner, or an admin.
func (s *DefaultService) DeleteResource(ctx context.Context, principal *domain.Principal, id uuid.UUID) error {
	ref, err := s.repository.FindRef(ctx, id)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return errors.NotFound("Resource not found", err)
	}
	if err != nil {
		return err
	}

	allowed, err := s.resolver.CanAdminister(ctx, ref, principal)
	if err != nil {
		return err
	}
	if !allowed {
		return errors.Forbidden("Only the owner can delete a resource!", nil)
	}

	closure, err := s.repository.DescendantRefs(ctx, *ref)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(closure))
	for _, r := range closure {
		ids = append(ids, r.ID)
	}

	contentRefs, err := s.repository.ContentRefs(ctx, ids)
	if err != nil {
		return err
	}

	if err := s.repository.DeleteTree(ctx, ids); err != nil {
		return err
	}

	s.bumpListingVersion()

	if s.pool != nil {
		for _, contentRef := range contentRefs {
			ref := contentRef
			s.pool.Submit(func(ctx context.Context) error {
				return s.blobStore.Delete(ctx, ref)
			})
		}

		if s.hubClient != nil {
			resourceID := ref.ID
			s.pool.Submit(func(ctx context.Context) error {
				return s.hubClient.RemoveResource(ctx, resourceID)
			})
		}
	}

	return nil
}

func (s *DefaultService) UploadContent(ctx context.Context, principal *domain.Principal, id uuid.UUID, reader io.Reader, size int64, contentType string) (*domain.File, error) {
	file, err := s.repository.FindFile(ctx, id)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NotFound("File not found", err)
	}
	if err != nil {
		return nil, err
	}

	ref := file.Ref()
	allowed, err := s.resolver.HasAccessToRef(ctx, &ref, principal, domain.AccessWrite)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, s.denied(principal)
	}

	contentRef := file.ContentRef
	if contentRef == "" {
		contentRef = uuid.New().String()
	}

	if err := s.blobStore.Put(ctx, contentRef, reader, size, contentType); err != nil {
		return nil, err
	}

	if err := s.repository.UpdateFileContent(ctx, id, contentRef, size); err != nil {
		return nil, err
	}

	file.ContentRef = contentRef
	file.Size = size
	return file, nil
}

func (s *DefaultService) DownloadContent(ctx context.Context, principal *domain.Principal, id uuid.UUID) (io.ReadCloser, string, error) {
	file, err := s.repository.FindFile(ctx, id)
	if defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", errors.NotFound("File not found", err)
	}
	if err != nil {
		return nil, "", err
	}

	ref := file.Ref()
	allowed, err := s.resolver.HasAccessToRef(ctx, &ref, principal, domain.AccessRead)
	if err != nil {
		return nil, "", err
	}
	if !allowed {
		return nil, "", s.denied(principal)
	}

	if file.ContentRef == "" {
		return nil, "", errors.NotFound("File has no content", nil)
	}

	return s.blobStore.Get(ctx, file.ContentRef)
}

// denied maps a resolver denial to the right status: 401 when the caller
// could help themselves by authenticating, 403 when they cannot.
func (s *DefaultService) denied(principal *domain.Principal) error {
	if principal == nil {
		return errors.Unauthorized("Authentication required", nil)
	}
	return errors.Forbidden("Access denied", nil)
}

func (s *DefaultService) bumpListingVersion() {
	if s.pool == nil {
		return
	}
	s.pool.Submit(func(ctx context.Context) error {
		s.cache.IncrementVersion(ctx, listingVersionKey)
		return nil
	})
}
