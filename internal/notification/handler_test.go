package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

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

func (m *MockService) RequestAccess(ctx context.Context, resourceID uuid.UUID, requester *domain.Principal) (*RequestAccessResponse, error) {
	args := m.Called(ctx, resourceID, requester)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RequestAccessResponse), args.Error(1)
}

func (m *MockService) Resolve(ctx context.Context, notificationID uuid.UUID, action ResolveAction, role domain.AssignmentRole, actor *domain.Principal) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID, action, role, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

func (m *MockService) Dismiss(ctx context.Context, notificationID uuid.UUID, actor *domain.Principal) error {
	args := m.Called(ctx, notificationID, actor)
	return args.Error(0)
}

func (m *MockService) ListFor(ctx context.Context, recipientID uint64, page, pageSize int) (*PaginatedNotifications, error) {
	args := m.Called(ctx, recipientID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaginatedNotifications), args.Error(1)
}

func setupRouter(handler *Handler, principal *domain.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(func(c *gin.Context) {
		c.Set(middleware.PrincipalKey, principal)
		c.Next()
	})

	router.POST("/resources/:id/access-requests", handler.RequestAccess)
	router.GET("/notifications", handler.List)
	router.POST("/notifications/:id/resolve", handler.Resolve)
	router.DELETE("/notifications/:id", handler.Dismiss)

	return router
}

func TestRequestAccessEndpoint_NewRequestCreated(t *testing.T) {
	mockService := new(MockService)
	requester := asUser(senderUser)
	router := setupRouter(NewHandler(mockService), requester)

	resourceID := uuid.New()
	mockService.On("RequestAccess", mock.Anything, resourceID, requester).Return(&RequestAccessResponse{
		Notification: &domain.Notification{ID: uuid.New(), ResourceID: resourceID},
		Message:      "Request sent",
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/resources/"+resourceID.String()+"/access-requests", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusCreated, recorder.Code)
	mockService.AssertExpectations(t)
}

func TestRequestAccessEndpoint_RepeatReturnsOK(t *testing.T) {
	mockService := new(MockService)
	requester := asUser(senderUser)
	router := setupRouter(NewHandler(mockService), requester)

	resourceID := uuid.New()
	mockService.On("RequestAccess", mock.Anything, resourceID, requester).Return(&RequestAccessResponse{
		Notification: &domain.Notification{ID: uuid.New(), ResourceID: resourceID},
		Message:      "Request already sent",
		AlreadySent:  true,
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/resources/"+resourceID.String()+"/access-requests", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var body RequestAccessResponse
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.True(t, body.AlreadySent)
}

func TestRequestAccessEndpoint_InvalidID(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService), asUser(senderUser))

	req := httptest.NewRequest(http.MethodPost, "/resources/not-a-uuid/access-requests", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	mockService.AssertNotCalled(t, "RequestAccess", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveEndpoint_Accept(t *testing.T) {
	mockService := new(MockService)
	recipient := asUser(recipientUser)
	router := setupRouter(NewHandler(mockService), recipient)

	notificationID := uuid.New()
	mockService.On("Resolve", mock.Anything, notificationID, ActionAccept, domain.RoleEditor, recipient).
		Return(&domain.Notification{ID: notificationID, Status: domain.StatusAccepted}, nil)

	payload, _ := json.Marshal(ResolveRequest{Action: "accept", Role: "editor"})
	req := httptest.NewRequest(http.MethodPost, "/notifications/"+notificationID.String()+"/resolve", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	mockService.AssertExpectations(t)
}

func TestResolveEndpoint_InvalidAction(t *testing.T) {
	mockService := new(MockService)
	router := setupRouter(NewHandler(mockService), asUser(recipientUser))

	payload := []byte(`{"action": "maybe"}`)
	req := httptest.NewRequest(http.MethodPost, "/notifications/"+uuid.New().String()+"/resolve", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	mockService.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResolveEndpoint_NonRecipientForbidden(t *testing.T) {
	mockService := new(MockService)
	stranger := asUser(otherUser)
	router := setupRouter(NewHandler(mockService), stranger)

	notificationID := uuid.New()
	mockService.On("Resolve", mock.Anything, notificationID, ActionReject, domain.AssignmentRole(""), stranger).
		Return(nil, errors.Forbidden("Only the recipient can resolve this request!", nil))

	payload, _ := json.Marshal(ResolveRequest{Action: "reject"})
	req := httptest.NewRequest(http.MethodPost, "/notifications/"+notificationID.String()+"/resolve", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusForbidden, recorder.Code)
}

func TestDismissEndpoint_NoContent(t *testing.T) {
	mockService := new(MockService)
	recipient := asUser(recipientUser)
	router := setupRouter(NewHandler(mockService), recipient)

	notificationID := uuid.New()
	mockService.On("Dismiss", mock.Anything, notificationID, recipient).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/notifications/"+notificationID.String(), nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	mockService.AssertExpectations(t)
}

func TestListEndpoint_ReturnsInbox(t *testing.T) {
	mockService := new(MockService)
	recipient := asUser(recipientUser)
	router := setupRouter(NewHandler(mockService), recipient)

	mockService.On("ListFor", mock.Anything, recipientUser, 1, 10).Return(&PaginatedNotifications{
		Data: []domain.Notification{
			{ID: uuid.New(), RecipientID: recipientUser, Status: domain.StatusPending},
		},
		Meta: NotificationsMeta{Total: 1, CurrentPage: 1, PerPage: 10, TotalPage: 1},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)

	var body PaginatedNotifications
	assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	mockService.AssertExpectations(t)
}
