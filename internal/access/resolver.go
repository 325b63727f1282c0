package access

import (
	"context"
	"errors"

	"document-vault/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxAncestorDepth caps the walk from a resource up to its root. Hitting the
// cap means "no further ancestors", not an error; a tree this deep is either
// pathological or an accidental cycle, and in both cases the walk just stops.
const maxAncestorDepth = 64

// ResourceDirectory is the slice of the resource store the resolver needs.
type ResourceDirectory interface {
	FindRef(ctx context.Context, id uuid.UUID) (*domain.ResourceRef, error)
	FindFolderRef(ctx context.Context, id uuid.UUID) (*domain.ResourceRef, error)
	FindRepository(ctx context.Context, id uuid.UUID) (*domain.Repository, error)
	DescendantRefs(ctx context.Context, root domain.ResourceRef) ([]domain.ResourceRef, error)
	OwnedRefs(ctx context.Context, userID uint64) ([]domain.ResourceRef, error)
	PublicRefs(ctx context.Context) ([]domain.ResourceRef, error)
}

// Resolver computes access decisions. A denial is a normal false return,
// never an error; errors mean the store itself failed.
type Resolver struct {
	resources   ResourceDirectory
	assignments AssignmentRepository
}

func NewResolver(resources ResourceDirectory, assignments AssignmentRepository) *Resolver {
	return &Resolver{resources: resources, assignments: assignments}
}

// HasAccess decides whether the principal (nil for anonymous) may act on the
// resource at the given level. An unknown resource id is a plain denial;
// callers that owe the client a 404 resolve the ref themselves first.
func (r *Resolver) HasAccess(ctx context.Context, resourceID uuid.UUID, principal *domain.Principal, level domain.AccessLevel) (bool, error) {
	ref, err := r.resources.FindRef(ctx, resourceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return r.HasAccessToRef(ctx, ref, principal, level)
}

// HasAccessToRef is HasAccess for a ref the caller already resolved.
//
// The check walks the ancestor chain, not the descendant set: a grant on a
// folder is found by climbing from the resource to the root, which keeps the
// cost proportional to tree depth rather than to the size of the granted
// subtree.
func (r *Resolver) HasAccessToRef(ctx context.Context, ref *domain.ResourceRef, principal *domain.Principal, level domain.AccessLevel) (bool, error) {
	// public resources are readable by anyone, session or not
	if level == domain.AccessRead && ref.IsPublic {
		return true, nil
	}

	if principal == nil {
		return false, nil
	}

	if ref.OwnerID == principal.ID {
		return true, nil
	}

	// owning the enclosing repository grants everything inside it
	repo, err := r.resources.FindRepository(ctx, ref.RepositoryID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if repo != nil && repo.OwnerID == principal.ID {
		return true, nil
	}

	ancestors, err := r.ancestorIDs(ctx, ref)
	if err != nil {
		return false, err
	}

	assignments, err := r.assignments.FindForUserIn(ctx, principal.ID, ancestors)
	if err != nil {
		return false, err
	}

	for _, assignment := range assignments {
		if assignment.Role.Allows(level) {
			return true, nil
		}
	}

	return false, nil
}

// CanAdminister reports whether the principal may grant, revoke, or delete
// on the resource: the resource owner, the enclosing repository owner, or an
// admin.
func (r *Resolver) CanAdminister(ctx context.Context, ref *domain.ResourceRef, principal *domain.Principal) (bool, error) {
	if principal == nil {
		return false, nil
	}
	if principal.IsAdmin() {
		return true, nil
	}
	if ref.OwnerID == principal.ID {
		return true, nil
	}

	repo, err := r.resources.FindRepository(ctx, ref.RepositoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return repo.OwnerID == principal.ID, nil
}

// ancestorIDs returns the resource id plus every enclosing folder id up to
// the root, walked iteratively through parent pointers.
func (r *Resolver) ancestorIDs(ctx context.Context, ref *domain.ResourceRef) ([]uuid.UUID, error) {
	ids := []uuid.UUID{ref.ID}
	seen := map[uuid.UUID]bool{ref.ID: true}

	parent := ref.ParentID
	for depth := 0; depth < maxAncestorDepth && parent != nil; depth++ {
		if seen[*parent] {
			break
		}

		folder, err := r.resources.FindFolderRef(ctx, *parent)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// dangling parent pointer, treat as root
			break
		}
		if err != nil {
			return nil, err
		}

		ids = append(ids, folder.ID)
		seen[folder.ID] = true
		parent = folder.ParentID
	}

	return ids, nil
}
