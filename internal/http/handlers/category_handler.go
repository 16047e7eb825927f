package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/dto"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// CategoryManager - операции дерева категорий, нужные хэндлеру.
type CategoryManager interface {
	Create(ctx context.Context, in models.CreateCategoryInput) (*models.Category, error)
	GetByID(ctx context.Context, id uuid.UUID, opts models.CategoryOptions) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string, opts models.CategoryOptions) (*models.Category, error)
	List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, error)
	GetRoots(ctx context.Context, opts models.CategoryOptions) ([]models.Category, error)
	Search(ctx context.Context, term string, opts models.CategoryOptions) ([]models.Category, error)
	Update(ctx context.Context, id uuid.UUID, patch models.CategoryPatch) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID, opts models.DeleteCategoryOptions) (*models.Category, error)
	GetHierarchy(ctx context.Context, id uuid.UUID) (*models.CategoryHierarchy, error)
	SuggestSlug(name string) (string, error)
}

// CategoryHandler обслуживает /api/categories.
type CategoryHandler struct {
	categories CategoryManager
}

// NewCategoryHandler создаёт хэндлер категорий.
func NewCategoryHandler(categories CategoryManager) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List GET /api/categories?parent_id=<uuid|null>&include=children,parent,services
func (h *CategoryHandler) List(c *gin.Context) {
	opts, err := parseInclude(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	filter := models.CategoryFilter{CategoryOptions: opts}
	switch raw := strings.TrimSpace(c.Query("parent_id")); raw {
	case "":
	case "null":
		filter.RootsOnly = true
	default:
		parentID, err := uuid.Parse(raw)
		if err != nil {
			common.Fail(c, apperror.Validation("параметр parent_id должен быть UUID или null"))
			return
		}
		filter.ParentID = &parentID
	}

	categories, err := h.categories.List(c.Request.Context(), filter)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CategoryListResponse{Categories: categories})
}

// Roots GET /api/categories/roots
func (h *CategoryHandler) Roots(c *gin.Context) {
	opts, err := parseInclude(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	categories, err := h.categories.GetRoots(c.Request.Context(), opts)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CategoryListResponse{Categories: categories})
}

// Search GET /api/categories/search?q=
func (h *CategoryHandler) Search(c *gin.Context) {
	opts, err := parseInclude(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	categories, err := h.categories.Search(c.Request.Context(), c.Query("q"), opts)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CategoryListResponse{Categories: categories})
}

// SuggestSlug GET /api/categories/slug-suggestion?name=
func (h *CategoryHandler) SuggestSlug(c *gin.Context) {
	slug, err := h.categories.SuggestSlug(c.Query("name"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SlugSuggestionResponse{Slug: slug})
}

// Get GET /api/categories/:id
func (h *CategoryHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	opts, err := parseInclude(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	category, err := h.categories.GetByID(c.Request.Context(), id, opts)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if category == nil {
		common.Fail(c, apperror.ErrCategoryNotFound)
		return
	}
	c.JSON(http.StatusOK, category)
}

// GetBySlug GET /api/categories/slug/:slug
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	opts, err := parseInclude(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	category, err := h.categories.GetBySlug(c.Request.Context(), c.Param("slug"), opts)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if category == nil {
		common.Fail(c, apperror.ErrCategoryNotFound)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Hierarchy GET /api/categories/:id/hierarchy
func (h *CategoryHandler) Hierarchy(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	hierarchy, err := h.categories.GetHierarchy(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if hierarchy == nil {
		common.Fail(c, apperror.ErrCategoryNotFound)
		return
	}
	c.JSON(http.StatusOK, hierarchy)
}

// Create POST /api/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	category, err := h.categories.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// Update PATCH /api/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.UpdateCategoryRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	category, err := h.categories.Update(c.Request.Context(), id, req.ToPatch())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Delete DELETE /api/categories/:id?force=true
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	force, err := common.ParseBoolQuery(c, "force")
	if err != nil {
		common.Fail(c, err)
		return
	}

	opts := models.DeleteCategoryOptions{Force: force != nil && *force}
	category, err := h.categories.Delete(c.Request.Context(), id, opts)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// parseInclude разбирает ?include=children,parent,services.
func parseInclude(c *gin.Context) (models.CategoryOptions, error) {
	var opts models.CategoryOptions
	raw := strings.TrimSpace(c.Query("include"))
	if raw == "" {
		return opts, nil
	}
	for _, part := range strings.Split(raw, ",") {
		switch strings.TrimSpace(part) {
		case "children":
			opts.IncludeChildren = true
		case "parent":
			opts.IncludeParent = true
		case "services":
			opts.IncludeServices = true
		case "":
		default:
			return opts, apperror.Validation("неизвестное значение include: %s", part)
		}
	}
	return opts, nil
}
