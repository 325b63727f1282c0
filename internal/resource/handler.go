package resource

import (
	"io"
	"net/http"

	"document-vault/internal/domain"
	"document-vault/internal/errors"
	"document-vault/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateRepositoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

func (h *Handler) CreateRepository(c *gin.Context) {
	var form CreateRepositoryRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	principal := middleware.CurrentPrincipal(c)

	repo, err := h.service.CreateRepository(c.Request.Context(), principal, form.Name)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, repo)
}

type CreateResourceRequest struct {
	Kind         string  `json:"kind" binding:"required,oneof=folder file"`
	Path         string  `json:"path" binding:"required,min=1,max=1024"`
	ParentID     *string `json:"parent_id"`
	RepositoryID string  `json:"repository_id" binding:"required,uuid"`
	IsPublic     bool    `json:"is_public"`
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateResourceRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	repositoryID, err := uuid.Parse(form.RepositoryID)
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid repository id", err))
		return
	}

	var parentID *uuid.UUID
	if form.ParentID != nil {
		parsed, err := uuid.Parse(*form.ParentID)
		if err != nil {
			c.Error(errors.UnprocessableEntity("Invalid parent id", err))
			return
		}
		parentID = &parsed
	}

	principal := middleware.CurrentPrincipal(c)

	ref, err := h.service.CreateResource(c.Request.Context(), principal, CreateResourceInput{
		Kind:         domain.ResourceKind(form.Kind),
		Path:         form.Path,
		ParentID:     parentID,
		RepositoryID: repositoryID,
		IsPublic:     form.IsPublic,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, ref)
}

func (h *Handler) Show(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	principal := middleware.CurrentPrincipal(c)

	ref, err := h.service.GetResource(c.Request.Context(), principal, id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, ref)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	principal := middleware.CurrentPrincipal(c)

	if err := h.service.DeleteResource(c.Request.Context(), principal, id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) UploadContent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	if c.Request.ContentLength <= 0 {
		c.Error(errors.UnprocessableEntity("Empty content body", nil))
		return
	}

	principal := middleware.CurrentPrincipal(c)

	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file, err := h.service.UploadContent(
		c.Request.Context(),
		principal,
		id,
		c.Request.Body,
		c.Request.ContentLength,
		contentType,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, file)
}

func (h *Handler) DownloadContent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.UnprocessableEntity("Invalid resource id", err))
		return
	}

	principal := middleware.CurrentPrincipal(c)

	reader, contentType, err := h.service.DownloadContent(c.Request.Context(), principal, id)
	if err != nil {
		c.Error(err)
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	io.Copy(c.Writer, reader)
}
