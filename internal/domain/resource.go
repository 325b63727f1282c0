package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccessLevel is the level a caller asks the resolver about.
type AccessLevel string

const (
	AccessRead  AccessLevel = "read"
	AccessWrite AccessLevel = "write"
)

// AssignmentRole is an explicitly granted role on a resource.
// editor implies everything viewer can do.
type AssignmentRole string

const (
	RoleViewer AssignmentRole = "viewer"
	RoleEditor AssignmentRole = "editor"
)

// Allows reports whether the role covers the requested access level.
func (r AssignmentRole) Allows(level AccessLevel) bool {
	if r == RoleEditor {
		return true
	}
	return r == RoleViewer && level == AccessRead
}

// Repository is the top-level container a user owns.
type Repository struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	OwnerID   uint64    `gorm:"not null;index" json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Folder is a tree node inside a repository. ParentID is nil at the root.
type Folder struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Path         string     `gorm:"size:1024;not null;uniqueIndex:idx_folders_repo_path" json:"path"`
	ParentID     *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	RepositoryID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_folders_repo_path" json:"repository_id"`
	OwnerID      uint64     `gorm:"not null;index" json:"owner_id"`
	IsPublic     bool       `gorm:"default:false" json:"is_public"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// File is a leaf inside a repository. ContentRef is an opaque key into the
// blob store; the core never looks at the bytes behind it.
type File struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Path         string     `gorm:"size:1024;not null;uniqueIndex:idx_files_repo_path" json:"path"`
	ParentID     *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	RepositoryID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_files_repo_path" json:"repository_id"`
	OwnerID      uint64     `gorm:"not null;index" json:"owner_id"`
	IsPublic     bool       `gorm:"default:false" json:"is_public"`
	ContentRef   string     `gorm:"size:255" json:"content_ref"`
	Size         int64      `gorm:"default:0" json:"size"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ResourceKind string

const (
	KindFolder ResourceKind = "folder"
	KindFile   ResourceKind = "file"
)

// ResourceRef is the tagged view of a File or Folder. A resource id on an
// assignment or notification points into either table; resolving it once
// into a ResourceRef keeps every caller away from probing both tables.
type ResourceRef struct {
	Kind         ResourceKind `json:"kind"`
	ID           uuid.UUID    `json:"id"`
	Path         string       `json:"path"`
	ParentID     *uuid.UUID   `json:"parent_id"`
	RepositoryID uuid.UUID    `json:"repository_id"`
	OwnerID      uint64       `json:"owner_id"`
	IsPublic     bool         `json:"is_public"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (f *Folder) Ref() ResourceRef {
	return ResourceRef{
		Kind:         KindFolder,
		ID:           f.ID,
		Path:         f.Path,
		ParentID:     f.ParentID,
		RepositoryID: f.RepositoryID,
		OwnerID:      f.OwnerID,
		IsPublic:     f.IsPublic,
		CreatedAt:    f.CreatedAt,
	}
}

func (f *File) Ref() ResourceRef {
	return ResourceRef{
		Kind:         KindFile,
		ID:           f.ID,
		Path:         f.Path,
		ParentID:     f.ParentID,
		RepositoryID: f.RepositoryID,
		OwnerID:      f.OwnerID,
		IsPublic:     f.IsPublic,
		CreatedAt:    f.CreatedAt,
	}
}

// Assignment is an explicit (user, resource, role) grant. The unique index on
// (user_id, resource_id) is what serializes concurrent grants for one pair.
type Assignment struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ResourceID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_assignments_user_resource" json:"resource_id"`
	UserID      uint64         `gorm:"not null;uniqueIndex:idx_assignments_user_resource" json:"user_id"`
	Role        AssignmentRole `gorm:"size:16;not null" json:"role"`
	GrantedByID uint64         `gorm:"not null" json:"granted_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type NotificationStatus string

const (
	StatusPending  NotificationStatus = "pending"
	StatusAccepted NotificationStatus = "accepted"
	StatusRejected NotificationStatus = "rejected"
)

// Notification is an access-request ticket from a requester (sender) to the
// owner of a resource (recipient).
type Notification struct {
	ID          uuid.UUID          `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RecipientID uint64             `gorm:"not null;index" json:"recipient_id"`
	SenderID    uint64             `gorm:"not null;index" json:"sender_id"`
	ResourceID  uuid.UUID          `gorm:"type:uuid;not null" json:"resource_id"`
	Status      NotificationStatus `gorm:"size:16;default:pending" json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}
