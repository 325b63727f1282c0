package notification

import (
	"net/http"

	"document-vault/internal/domain"
	"document-vault/internal/errors"
	"document-vault/internal/middleware"
	"document-vault/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RequestAccess(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	requester := middleware.CurrentPrincipal(c)

	result, err := h.service.RequestAccess(c.Request.Context(), resourceID, requester)
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusCreated
	if result.AlreadySent {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

type ResolveRequest struct {
	Action string `json:"action" binding:"required,oneof=accept reject"`
	Role   string `json:"role" binding:"omitempty,oneof=editor viewer"`
}

func (h *Handler) Resolve(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid notification id", err))
		return
	}

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actor := middleware.CurrentPrincipal(c)

	notification, err := h.service.Resolve(
		c.Request.Context(),
		notificationID,
		ResolveAction(req.Action),
		domain.AssignmentRole(req.Role),
		actor,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, notification)
}

func (h *Handler) Dismiss(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid notification id", err))
		return
	}

	actor := middleware.CurrentPrincipal(c)

	if err := h.service.Dismiss(c.Request.Context(), notificationID, actor); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) List(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)

	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.ListFor(c.Request.Context(), principal.ID, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
