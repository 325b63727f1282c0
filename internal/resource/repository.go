package resource

import (
	"context"
	"errors"
	"time"

	"document-vault/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxTreeDepth caps both tree walks. A well-formed tree never gets near it;
// it keeps an accidental cycle from hanging a request.
const maxTreeDepth = 64

type Repository interface {
	CreateRepository(ctx context.Context, repo *domain.Repository) error
	FindRepository(ctx context.Context, id uuid.UUID) (*domain.Repository, error)
	CreateFolder(ctx context.Context, folder *domain.Folder) error
	CreateFile(ctx context.Context, file *domain.File) error
	FindFile(ctx context.Context, id uuid.UUID) (*domain.File, error)
	FindRef(ctx context.Context, id uuid.UUID) (*domain.ResourceRef, error)
	FindFolderRef(ctx context.Context, id uuid.UUID) (*domain.ResourceRef, error)
	ChildRefs(ctx context.Context, folderID uuid.UUID) ([]domain.ResourceRef, error)
	DescendantRefs(ctx context.Context, root domain.ResourceRef) ([]domain.ResourceRef, error)
	OwnedRefs(ctx context.Context, userID uint64) ([]domain.ResourceRef, error)
	PublicRefs(ctx context.Context) ([]domain.ResourceRef, error)
	UpdateFileContent(ctx context.Context, id uuid.UUID, contentRef string, size int64) error
	ContentRefs(ctx context.Context, ids []uuid.UUID) ([]string, error)
	DeleteTree(ctx context.Context, ids []uuid.UUID) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new resource repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) CreateRepository(ctx context.Context, repo *domain.Repository) error {
	repo.CreatedAt = time.Now().UTC() // Use UTC for consistency
	repo.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(repo).Error
}

func (r *RepositoryImpl) FindRepository(ctx context.Context, id uuid.UUID) (*domain.Repository, error) {
	var repo domain.Repository
	err := r.db.WithContext(ctx).First(&repo, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

func (r *RepositoryImpl) CreateFolder(ctx context.Context, folder *domain.Folder) error {
	folder.CreatedAt = time.Now().UTC()
	folder.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(folder).Error
}

func (r *RepositoryImpl) CreateFile(ctx context.Context, file *domain.File) error {
	file.CreatedAt = time.Now().UTC()
	file.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *RepositoryImpl) FindFile(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// FindRef resolves a polymorphic resource id into its tagged form. The id
// lives in exactly one of the folders/files tables; this is the single place
// that probes both.
func (r *RepositoryImpl) FindRef(ctx context.Context, id uuid.UUID) (*domain.ResourceRef, error) {
	var folder domain.Folder
	err := r.db.WithContext(ctx).First(&folder, "id = ?", id).Error
	if err == nil {
		ref := folder.Ref()
		return &ref, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var file domain.File
	err = r.db.WithContext(ctx).First(&file, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	ref := file.Ref()
	return &ref, nil
}

// FindFolderRef resolves an id that must be a folder (ancestor walks only
// ever step through folders).
func (r *RepositoryImpl) FindFolderRef(ctx context.Context, id uuid.UUID) (*domain.ResourceRef, error) {
	var folder domain.Folder
	err := r.db.WithContext(ctx).First(&folder, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	ref := folder.Ref()
	return &ref, nil
}

func (r *RepositoryImpl) ChildRefs(ctx context.Context, folderID uuid.UUID) ([]domain.ResourceRef, error) {
	var folders []domain.Folder
	if err := r.db.WithContext(ctx).Where("parent_id = ?", folderID).Find(&folders).Error; err != nil {
		return nil, err
	}

	var files []domain.File
	if err := r.db.WithContext(ctx).Where("parent_id = ?", folderID).Find(&files).Error; err != nil {
		return nil, err
	}

	refs := make([]domain.ResourceRef, 0, len(folders)+len(files))
	for i := range folders {
		refs = append(refs, folders[i].Ref())
	}
	for i := range files {
		refs = append(refs, files[i].Ref())
	}
	return refs, nil
}

// DescendantRefs returns the root plus everything nested beneath it,
// breadth-first. The visited set and depth cap guard against cycles.
func (r *RepositoryImpl) DescendantRefs(ctx context.Context, root domain.ResourceRef) ([]domain.ResourceRef, error) {
	result := []domain.ResourceRef{root}
	if root.Kind != domain.KindFolder {
		return result, nil
	}

	visited := map[uuid.UUID]bool{root.ID: true}
	frontier := []uuid.UUID{root.ID}

	for depth := 0; depth < maxTreeDepth && len(frontier) > 0; depth++ {
		var next []uuid.UUID
		for _, folderID := range frontier {
			children, err := r.ChildRefs(ctx, folderID)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if visited[child.ID] {
					continue
				}
				visited[child.ID] = true
				result = append(result, child)
				if child.Kind == domain.KindFolder {
					next = append(next, child.ID)
				}
			}
		}
		frontier = next
	}

	return result, nil
}

func (r *RepositoryImpl) OwnedRefs(ctx context.Context, userID uint64) ([]domain.ResourceRef, error) {
	var folders []domain.Folder
	if err := r.db.WithContext(ctx).Where("owner_id = ?", userID).Find(&folders).Error; err != nil {
		return nil, err
	}

	var files []domain.File
	if err := r.db.WithContext(ctx).Where("owner_id = ?", userID).Find(&files).Error; err != nil {
		return nil, err
	}

	return toRefs(folders, files), nil
}

func (r *RepositoryImpl) PublicRefs(ctx context.Context) ([]domain.ResourceRef, error) {
	var folders []domain.Folder
	if err := r.db.WithContext(ctx).Where("is_public = ?", true).Find(&folders).Error; err != nil {
		return nil, err
	}

	var files []domain.File
	if err := r.db.WithContext(ctx).Where("is_public = ?", true).Find(&files).Error; err != nil {
		return nil, err
	}

	return toRefs(folders, files), nil
}

func toRefs(folders []domain.Folder, files []domain.File) []domain.ResourceRef {
	refs := make([]domain.ResourceRef, 0, len(folders)+len(files))
	for i := range folders {
		refs = append(refs, folders[i].Ref())
	}
	for i := range files {
		refs = append(refs, files[i].Ref())
	}
	return refs
}

func (r *RepositoryImpl) UpdateFileContent(ctx context.Context, id uuid.UUID, contentRef string, size int64) error {
	result := r.db.WithContext(ctx).Model(&domain.File{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"content_ref": contentRef,
			"size":        size,
			"updated_at":  time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RepositoryImpl) ContentRefs(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	var refs []string
	err := r.db.WithContext(ctx).Model(&domain.File{}).
		Where("id IN ? AND content_ref <> ''", ids).
		Pluck("content_ref", &refs).Error
	return refs, err
}

// DeleteTree removes the given resources together with every assignment and
// notification hanging off them, in one transaction.
func (r *RepositoryImpl) DeleteTree(ctx context.Context, ids []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id IN ?", ids).Delete(&domain.Assignment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("resource_id IN ?", ids).Delete(&domain.Notification{}).Error; err != nil {
			return err
		}

		if err := tx.Where("id IN ?", ids).Delete(&domain.File{}).Error; err != nil {
			return err
		}

		if err := tx.Where("id IN ?", ids).Delete(&domain.Folder{}).Error; err != nil {
			return err
		}

		return nil
	})
}
