package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/dto"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers/common"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

// ServiceCatalog - операции каталога услуг.
type ServiceCatalog interface {
	Create(ctx context.Context, requesterID uuid.UUID, in models.CreateServiceInput) (*models.Service, error)
	List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	Update(ctx context.Context, id, requesterID uuid.UUID, patch models.ServicePatch) (*models.Service, error)
	Deactivate(ctx context.Context, id, requesterID uuid.UUID) (*models.Service, error)
	Delete(ctx context.Context, id, requesterID uuid.UUID) (*models.Service, error)
}

// ServiceHandler обслуживает /api/services.
type ServiceHandler struct {
	catalog ServiceCatalog
}

// NewServiceHandler создаёт хэндлер услуг.
func NewServiceHandler(catalog ServiceCatalog) *ServiceHandler {
	return &ServiceHandler{catalog: catalog}
}

// List GET /api/services?provider_id=&category_id=&is_active=&skip=&take=
func (h *ServiceHandler) List(c *gin.Context) {
	var (
		filter models.ServiceFilter
		err    error
	)
	if filter.ProviderID, err = common.ParseUUIDQuery(c, "provider_id"); err != nil {
		common.Fail(c, err)
		return
	}
	if filter.CategoryID, err = common.ParseUUIDQuery(c, "category_id"); err != nil {
		common.Fail(c, err)
		return
	}
	if filter.IsActive, err = common.ParseBoolQuery(c, "is_active"); err != nil {
		common.Fail(c, err)
		return
	}
	filter.Skip = common.ParseIntQuery(c, "skip", 0)
	filter.Take = common.ParseIntQuery(c, "take", service.DefaultServiceTake)
	filter = service.NormalizeServiceFilter(filter)

	services, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ServiceListResponse{Services: services, Skip: filter.Skip, Take: filter.Take})
}

// Get GET /api/services/:id
func (h *ServiceHandler) Get(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}

	svc, err := h.catalog.GetByID(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// Create POST /api/services
func (h *ServiceHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.CreateServiceRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	svc, err := h.catalog.Create(c.Request.Context(), userID, req.ToInput())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, svc)
}

// Update PATCH /api/services/:id
func (h *ServiceHandler) Update(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	var req dto.UpdateServiceRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	svc, err := h.catalog.Update(c.Request.Context(), id, userID, req.ToPatch())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// Deactivate POST /api/services/:id/deactivate
func (h *ServiceHandler) Deactivate(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	svc, err := h.catalog.Deactivate(c.Request.Context(), id, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// Delete DELETE /api/services/:id
func (h *ServiceHandler) Delete(c *gin.Context) {
	userID, id, ok := h.target(c)
	if !ok {
		return
	}

	svc, err := h.catalog.Delete(c.Request.Context(), id, userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// target читает текущего пользователя и :id услуги.
func (h *ServiceHandler) target(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, id, true
}
