package access

import (
	"context"
	"testing"

	"document-vault/internal/domain"
	"document-vault/internal/errors"

	defError "errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeUserProvider struct {
	users map[uint64]*domain.User
}

func (f *fakeUserProvider) GetUserByID(id uint64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func newTestService(store *fakeStore) Service {
	resolver := NewResolver(store, store)
	users := &fakeUserProvider{users: map[uint64]*domain.User{
		ownerID:    {ID: ownerID},
		strangerID: {ID: strangerID},
	}}
	return NewService(resolver, store, store, users, nil, nil, nil)
}

func assertStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr *errors.APIError
	if assert.True(t, defError.As(err, &apiErr), "expected APIError, got %v", err) {
		assert.Equal(t, status, apiErr.Status)
	}
}

func TestListAccessible_AnonymousSeesOnlyPublic(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	repoID := store.addRepo(ownerID)
	store.addFile(repoID, nil, ownerID, false)
	publicID := store.addFile(repoID, nil, ownerID, true)

	result, err := service.ListAccessible(context.Background(), nil, 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Meta.Total)
	assert.Equal(t, publicID, result.Data[0].ID)
}

func TestListAccessible_IncludesAssignedFolderClosure(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	repoID := store.addRepo(ownerID)
	folderID := store.addFolder(repoID, nil, ownerID, false)
	nestedFolderID := store.addFolder(repoID, &folderID, ownerID, false)
	nestedFileID := store.addFile(repoID, &nestedFolderID, ownerID, false)
	store.addFile(repoID, nil, ownerID, false) // sibling outside the grant

	store.grant(folderID, strangerID, domain.RoleViewer)

	result, err := service.ListAccessible(context.Background(), principal(strangerID), 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Meta.Total)

	ids := map[string]bool{}
	for _, item := range result.Data {
		ids[item.ID.String()] = true
	}
	assert.True(t, ids[folderID.String()])
	assert.True(t, ids[nestedFolderID.String()])
	assert.True(t, ids[nestedFileID.String()])
}

func TestListAccessible_OrderedNewestFirst(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	repoID := store.addRepo(ownerID)
	firstID := store.addFile(repoID, nil, ownerID, true)
	secondID := store.addFile(repoID, nil, ownerID, true)

	result, err := service.ListAccessible(context.Background(), nil, 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(result.Data))
	assert.Equal(t, secondID, result.Data[0].ID)
	assert.Equal(t, firstID, result.Data[1].ID)
}

func TestGrant_OwnerUpsertsAssignment(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	repoID := store.addRepo(ownerID)
	fileID := store.addFile(repoID, nil, ownerID, false)

	assignment, err := service.Grant(context.Background(), fileID, strangerID, domain.RoleViewer, principal(ownerID))
	assert.NoError(t, err)
	assert.Equal(t, domain.RoleViewer, assignment.Role)

	// second grant upgrades the role in place
	assignment, err = service.Grant(context.Background(), fileID, strangerID, domain.RoleEditor, principal(ownerID))
	assert.NoError(t, err)
	assert.Equal(t, domain.RoleEditor, assignment.Role)

	stored := store.assignments[fileID][strangerID]
	assert.Equal(t, domain.RoleEditor, stored.Role)
}

func TestGrant_NonOwnerForbidden(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	repoID := store.addRepo(ownerID)
	fileID := store.addFile(repoID, nil, ownerID, false)

	_, err := service.Grant(context.Background(), fileID, strangerID, domain.RoleViewer, principal(strangerID))
	assertStatus(t, err, 403)
}

func TestGrant_UnknownResourceNotFound(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	_, err := service.Grant(context.Background(), uuid.New(), strangerID, domain.RoleViewer, principal(ownerID))
	assertStatus(t, err, 404)
}

func TestRevoke_MissingAssignmentNotFound(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	repoID := store.addRepo(ownerID)
	fileID := store.addFile(repoID, nil, ownerID, false)

	err := service.Revoke(context.Background(), fileID, strangerID, principal(ownerID))
	assertStatus(t, err, 404)
}

func TestRevoke_RemovesGrant(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)
	resolver := NewResolver(store, store)

	repoID := store.addRepo(ownerID)
	fileID := store.addFile(repoID, nil, ownerID, false)
	store.grant(fileID, strangerID, domain.RoleEditor)

	err := service.Revoke(context.Background(), fileID, strangerID, principal(ownerID))
	assert.NoError(t, err)

	allowed, _ := resolver.HasAccess(context.Background(), fileID, principal(strangerID), domain.AccessRead)
	assert.False(t, allowed)
}

func TestCheck_InvalidLevelRejected(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	repoID := store.addRepo(ownerID)
	fileID := store.addFile(repoID, nil, ownerID, false)

	_, err := service.Check(context.Background(), fileID, principal(ownerID), domain.AccessLevel("execute"))
	assertStatus(t, err, 422)
}

func TestCheck_UnknownResourceNotFound(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store)

	_, err := service.Check(context.Background(), uuid.New(), principal(ownerID), domain.AccessRead)
	assertStatus(t, err, 404)
}
