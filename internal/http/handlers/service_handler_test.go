package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/marketplace-backend/internal/dto"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

type mockServiceCatalog struct {
	mock.Mock
}

func serviceResult(args mock.Arguments) (*models.Service, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *mockServiceCatalog) Create(ctx context.Context, requesterID uuid.UUID, in models.CreateServiceInput) (*models.Service, error) {
	return serviceResult(m.Called(ctx, requesterID, in))
}

func (m *mockServiceCatalog) List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Service), args.Error(1)
}

func (m *mockServiceCatalog) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	return serviceResult(m.Called(ctx, id))
}

func (m *mockServiceCatalog) Update(ctx context.Context, id, requesterID uuid.UUID, patch models.ServicePatch) (*models.Service, error) {
	return serviceResult(m.Called(ctx, id, requesterID, patch))
}

func (m *mockServiceCatalog) Deactivate(ctx context.Context, id, requesterID uuid.UUID) (*models.Service, error) {
	return serviceResult(m.Called(ctx, id, requesterID))
}

func (m *mockServiceCatalog) Delete(ctx context.Context, id, requesterID uuid.UUID) (*models.Service, error) {
	return serviceResult(m.Called(ctx, id, requesterID))
}

func newServiceEngine(catalog ServiceCatalog, userID uuid.UUID) http.Handler {
	h := NewServiceHandler(catalog)
	r := newEngine(userID)
	r.GET("/services", h.List)
	r.GET("/services/:id", h.Get)
	r.POST("/services", h.Create)
	r.PATCH("/services/:id", h.Update)
	r.POST("/services/:id/deactivate", h.Deactivate)
	r.DELETE("/services/:id", h.Delete)
	return r
}

func TestServiceHandler_ListFilters(t *testing.T) {
	catalog := new(mockServiceCatalog)
	categoryID := uuid.New()
	active := true
	catalog.On("List", mock.Anything, models.ServiceFilter{
		CategoryID: &categoryID,
		IsActive:   &active,
		Skip:       20,
		Take:       service.MaxServiceTake,
	}).Return([]models.Service{}, nil)

	w := doRequest(newServiceEngine(catalog, uuid.Nil), http.MethodGet,
		"/services?category_id="+categoryID.String()+"&is_active=true&skip=20&take=500", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.ServiceListResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 20, resp.Skip)
	assert.Equal(t, service.MaxServiceTake, resp.Take)
	catalog.AssertExpectations(t)
}

func TestServiceHandler_ListDefaults(t *testing.T) {
	catalog := new(mockServiceCatalog)
	catalog.On("List", mock.Anything, models.ServiceFilter{Take: service.DefaultServiceTake}).Return([]models.Service{}, nil)

	w := doRequest(newServiceEngine(catalog, uuid.Nil), http.MethodGet, "/services", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	catalog.AssertExpectations(t)
}

func TestServiceHandler_ListBadProvider(t *testing.T) {
	w := doRequest(newServiceEngine(new(mockServiceCatalog), uuid.Nil), http.MethodGet, "/services?provider_id=1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceHandler_Create(t *testing.T) {
	catalog := new(mockServiceCatalog)
	userID, categoryID := uuid.New(), uuid.New()
	catalog.On("Create", mock.Anything, userID, mock.MatchedBy(func(in models.CreateServiceInput) bool {
		return in.Title == "Логотип" && in.Price.Equal(decimal.RequireFromString("1500.50")) && in.CategoryID == categoryID
	})).Return(&models.Service{ID: uuid.New(), Title: "Логотип"}, nil)

	body := `{"title":"Логотип","price":"1500.50","currency":"RUB","category_id":"` + categoryID.String() + `"}`
	w := doRequest(newServiceEngine(catalog, userID), http.MethodPost, "/services", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	catalog.AssertExpectations(t)
}

func TestServiceHandler_CreateRequiresUser(t *testing.T) {
	w := doRequest(newServiceEngine(new(mockServiceCatalog), uuid.Nil), http.MethodPost, "/services", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServiceHandler_DeleteForbidden(t *testing.T) {
	catalog := new(mockServiceCatalog)
	userID, id := uuid.New(), uuid.New()
	catalog.On("Delete", mock.Anything, id, userID).Return(nil, apperror.Forbidden("услуга принадлежит другому исполнителю"))

	w := doRequest(newServiceEngine(catalog, userID), http.MethodDelete, "/services/"+id.String(), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServiceHandler_Deactivate(t *testing.T) {
	catalog := new(mockServiceCatalog)
	userID, id := uuid.New(), uuid.New()
	catalog.On("Deactivate", mock.Anything, id, userID).Return(&models.Service{ID: id}, nil)

	w := doRequest(newServiceEngine(catalog, userID), http.MethodPost, "/services/"+id.String()+"/deactivate", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	catalog.AssertExpectations(t)
}
