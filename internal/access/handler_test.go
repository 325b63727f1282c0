package access

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"document-vault/internal/domain"
	"document-vault/internal/errors"
	"document-vault/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) Check(ctx context.Context, resourceID uuid.UUID, principal *domain.Principal, level domain.AccessLevel) (bool, error) {
	args := m.Called(ctx, resourceID, principal, level)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) ListAccessible(ctx context.Context, principal *domain.Principal, page, pageSize int) (*PaginatedResources, error) {
	args := m.Called(ctx, principal, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaginatedResources), args.Error(1)
}

func (m *MockService) Grant(ctx context.Context, resourceID uuid.UUID, targetUserID uint64, role domain.AssignmentRole, actor *domain.Principal) (*domain.Assignment, error) {
	args := m.Called(ctx, resourceID, targetUserID, role, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Assignment), args.Error(1)
}

func (m *MockService) Revoke(ctx context.Context, resourceID uuid.UUID, targetUserID uint64, actor *domain.Principal) error {
	args := m.Called(ctx, resourceID, targetUserID, actor)
	return args.Error(0)
}

func setupRouter(handler *Handler, p *domain.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(func(c *gin.Context) {
		if p != nil {
			c.Set(middleware.PrincipalKey, p)
		}
		c.Next()
	})

	router.GET("/resources", handler.ListAccessible)
	router.GET("/resources/:id/access", handler.Check)
	router.POST("/resources/:id/assignments", handler.Grant)
	router.DELETE("/resources/:id/assignments/:userId", handler.Revoke)
	router.GET("/internal/resources/:id/access", handler.InternalCheck)

	return router
}

func TestCheckEndpoint_DefaultsToReadLevel(t *testing.T) {
	mockService := new(MockService)
	p := principal(ownerID)
	router := setupRouter(NewHandler(mockService), p)

	resourceID := uuid.New()
	mockService.On("Check", mock.Anything, resourceID, p, domain.AccessRead).Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/resources/"+resourceID.String()+"/access", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, true, body["allowed"])
	mockService.AssertExpectations(t)
}

func TestCheckEndpoint_DeniedIsNotAnError(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService), nil)

	resourceID := uuid.New()
	mockService.On("Check", mock.Anything, resourceID, (*domain.Principal)(nil), domain.AccessWrite).Return(false, nil)

	req := httptest.NewRequest(http.MethodGet, "/resources/"+resourceID.String()+"/access?level=write", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var body map[string]any
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, false, body["allowed"])
}

func TestCheckEndpoint_UnknownResourceNotFound(t *testing.T) {
	mockService := new(MockService)
	p := principal(ownerID)
	router := setupRouter(NewHandler(mockService), p)

	resourceID := uuid.New()
	mockService.On("Check", mock.Anything, resourceID, p, domain.AccessRead).
		Return(false, errors.NotFound("Resource not found", nil))

	req := httptest.NewRequest(http.MethodGet, "/resources/"+resourceID.String()+"/access", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListAccessibleEndpoint(t *testing.T) {
	mockService := new(MockService)
	p := principal(ownerID)
	router := setupRouter(NewHandler(mockService), p)

	mockService.On("ListAccessible", mock.Anything, p, 1, 10).Return(&PaginatedResources{
		Data: []ResourceSummary{
			{ID: uuid.New(), Kind: domain.KindFile, Path: "/notes.md", OwnerID: ownerID, CreatedAt: time.Now().UTC()},
		},
		Meta: ListingMeta{Total: 1, CurrentPage: 1, PerPage: 10, TotalPage: 1},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/resources", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var body PaginatedResources
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	mockService.AssertExpectations(t)
}

func TestGrantEndpoint_Created(t *testing.T) {
	mockService := new(MockService)
	p := principal(ownerID)
	router := setupRouter(NewHandler(mockService), p)

	resourceID := uuid.New()
	mockService.On("Grant", mock.Anything, resourceID, strangerID, domain.RoleEditor, p).
		Return(&domain.Assignment{ID: uuid.New(), ResourceID: resourceID, UserID: strangerID, Role: domain.RoleEditor}, nil)

	payload, _ := json.Marshal(GrantRequest{UserID: strangerID, Role: "editor"})
	req := httptest.NewRequest(http.MethodPost, "/resources/"+resourceID.String()+"/assignments", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	mockService.AssertExpectations(t)
}

func TestGrantEndpoint_InvalidRole(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService), principal(ownerID))

	payload := []byte(`{"user_id": 2, "role": "superuser"}`)
	req := httptest.NewRequest(http.MethodPost, "/resources/"+uuid.New().String()+"/assignments", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	mockService.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGrantEndpoint_NonOwnerForbidden(t *testing.T) {
	mockService := new(MockService)
	p := principal(strangerID)
	router := setupRouter(NewHandler(mockService), p)

	resourceID := uuid.New()
	mockService.On("Grant", mock.Anything, resourceID, uint64(3), domain.RoleViewer, p).
		Return(nil, errors.Forbidden("Only the owner can manage assignments!", nil))

	payload, _ := json.Marshal(GrantRequest{UserID: 3, Role: "viewer"})
	req := httptest.NewRequest(http.MethodPost, "/resources/"+resourceID.String()+"/assignments", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestRevokeEndpoint_OK(t *testing.T) {
	mockService := new(MockService)
	p := principal(ownerID)
	router := setupRouter(NewHandler(mockService), p)

	resourceID := uuid.New()
	mockService.On("Revoke", mock.Anything, resourceID, strangerID, p).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/resources/"+resourceID.String()+"/assignments/2", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	mockService.AssertExpectations(t)
}

func TestRevokeEndpoint_MissingAssignmentNotFound(t *testing.T) {
	mockService := new(MockService)
	p := principal(ownerID)
	router := setupRouter(NewHandler(mockService), p)

	resourceID := uuid.New()
	mockService.On("Revoke", mock.Anything, resourceID, strangerID, p).
		Return(errors.NotFound("Assignment not found", nil))

	req := httptest.NewRequest(http.MethodDelete, "/resources/"+resourceID.String()+"/assignments/2", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestInternalCheckEndpoint_PassesExplicitUser(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService), nil)

	resourceID := uuid.New()
	expected := &domain.Principal{ID: strangerID, Role: domain.UserRoleUser}
	mockService.On("Check", mock.Anything, resourceID, expected, domain.AccessWrite).Return(true, nil)

	req := httptest.NewRequest(http.MethodGet, "/internal/resources/"+resourceID.String()+"/access?user_id=2&level=write", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	mockService.AssertExpectations(t)
}
