package access

import (
	"net/http"
	"strconv"

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

// Check answers "may this principal read/write this resource". Mounted with
// optional auth so anonymous checks against public resources work.
func (h *Handler) Check(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	level := domain.AccessLevel(c.DefaultQuery("level", "read"))
	principal := middleware.CurrentPrincipal(c)

	allowed, err := h.service.Check(c.Request.Context(), resourceID, principal, level)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed": allowed, "level": level})
}

func (h *Handler) ListAccessible(c *gin.Context) {
	principal := middleware.CurrentPrincipal(c)

	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.ListAccessible(c.Request.Context(), principal, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type GrantRequest struct {
	UserID uint64 `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=editor viewer"`
}

func (h *Handler) Grant(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	actor := middleware.CurrentPrincipal(c)

	assignment, err := h.service.Grant(
		c.Request.Context(),
		resourceID,
		req.UserID,
		domain.AssignmentRole(req.Role),
		actor,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

func (h *Handler) Revoke(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	targetUserID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid user id", err))
		return
	}

	actor := middleware.CurrentPrincipal(c)

	if err := h.service.Revoke(c.Request.Context(), resourceID, targetUserID, actor); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "assignment revoked"})
}

// InternalCheck serves the realtime hub's connection-time permission check.
// The hub passes the user id explicitly; it authenticated the user itself.
func (h *Handler) InternalCheck(c *gin.Context) {
	resourceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	level := domain.AccessLevel(c.DefaultQuery("level", "read"))

	var principal *domain.Principal
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		userID, err := strconv.ParseUint(userIDStr, 10, 64)
		if err != nil {
			c.Error(errors.UnprocessableEntity("Invalid user id", err))
			return
		}
		principal = &domain.Principal{ID: userID, Role: domain.UserRoleUser}
	}

	allowed, err := h.service.Check(c.Request.Context(), resourceID, principal, level)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed": allowed, "level": level})
}
