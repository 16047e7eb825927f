package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

type mockServiceRepo struct {
	mock.Mock
}

func (m *mockServiceRepo) Create(ctx context.Context, service *models.Service) error {
	args := m.Called(ctx, service)
	if args.Error(0) == nil {
		service.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockServiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *mockServiceRepo) List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Service), args.Error(1)
}

func (m *mockServiceRepo) Update(ctx context.Context, service *models.Service) error {
	return m.Called(ctx, service).Error(0)
}

func (m *mockServiceRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

func (m *mockServiceRepo) AppendImage(ctx context.Context, id uuid.UUID, url string, limit int) (*models.Service, error) {
	args := m.Called(ctx, id, url, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Service), args.Error(1)
}

func (m *mockServiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockCategoryLookup struct {
	mock.Mock
}

func (m *mockCategoryLookup) GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

type mockReviewCounter struct {
	mock.Mock
}

func (m *mockReviewCounter) CountByService(ctx context.Context, serviceID uuid.UUID) (int, error) {
	args := m.Called(ctx, serviceID)
	return args.Int(0), args.Error(1)
}

type catalogFixture struct {
	repo       *mockServiceRepo
	categories *mockCategoryLookup
	users      *mockUserLookup
	reviews    *mockReviewCounter
	svc        *CatalogService
	provider   *models.User
	customer   *models.User
	admin      *models.User
	category   uuid.UUID
}

func newCatalogFixture() *catalogFixture {
	f := &catalogFixture{
		repo:       new(mockServiceRepo),
		categories: new(mockCategoryLookup),
		users:      new(mockUserLookup),
		reviews:    new(mockReviewCounter),
		provider:   &models.User{ID: uuid.New(), Role: models.RoleProvider},
		customer:   &models.User{ID: uuid.New(), Role: models.RoleCustomer},
		admin:      &models.User{ID: uuid.New(), Role: models.RoleAdmin},
		category:   uuid.New(),
	}
	for _, u := range []*models.User{f.provider, f.customer, f.admin} {
		f.users.On("GetByID", mock.Anything, u.ID).Return(u, nil).Maybe()
	}
	f.categories.On("GetByID", mock.Anything, f.category).Return(&models.Category{ID: f.category}, nil).Maybe()
	f.svc = NewCatalogService(f.repo, f.categories, f.users, f.reviews, nil, 0)
	return f
}

func (f *catalogFixture) input() models.CreateServiceInput {
	return models.CreateServiceInput{
		Title:      "Замена смесителя",
		Price:      decimal.RequireFromString("1500.50"),
		Currency:   "rub",
		CategoryID: f.category,
		Tags:       []string{"сантехника"},
	}
}

func TestCatalogService_Create(t *testing.T) {
	f := newCatalogFixture()
	f.repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Service")).Return(nil)

	service, err := f.svc.Create(context.Background(), f.provider.ID, f.input())
	require.NoError(t, err)
	assert.Equal(t, f.provider.ID, service.ProviderID)
	assert.Equal(t, "RUB", service.Currency)
	assert.True(t, service.IsActive)
	assert.True(t, decimal.RequireFromString("1500.5").Equal(service.Price))
}

func TestCatalogService_Create_Rules(t *testing.T) {
	f := newCatalogFixture()

	_, err := f.svc.Create(context.Background(), f.customer.ID, f.input())
	assert.True(t, apperror.IsValidation(err), "заказчик не публикует услуги")

	in := f.input()
	in.ProviderID = f.provider.ID
	_, err = f.svc.Create(context.Background(), f.customer.ID, in)
	assert.True(t, apperror.IsForbidden(err))

	in = f.input()
	in.Price = decimal.RequireFromString("10.999")
	_, err = f.svc.Create(context.Background(), f.provider.ID, in)
	assert.True(t, apperror.IsValidation(err))

	in = f.input()
	in.Price = decimal.Zero
	_, err = f.svc.Create(context.Background(), f.provider.ID, in)
	assert.True(t, apperror.IsValidation(err))

	missing := uuid.New()
	f.categories.On("GetByID", mock.Anything, missing).Return(nil, repository.ErrCategoryNotFound)
	in = f.input()
	in.CategoryID = missing
	_, err = f.svc.Create(context.Background(), f.provider.ID, in)
	assert.True(t, apperror.IsNotFound(err))

	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCatalogService_Create_AdminOnBehalf(t *testing.T) {
	f := newCatalogFixture()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	in := f.input()
	in.ProviderID = f.provider.ID
	service, err := f.svc.Create(context.Background(), f.admin.ID, in)
	require.NoError(t, err)
	assert.Equal(t, f.provider.ID, service.ProviderID)
}

func TestCatalogService_List_NormalizesPaging(t *testing.T) {
	f := newCatalogFixture()
	f.repo.On("List", mock.Anything, models.ServiceFilter{Skip: 0, Take: DefaultServiceTake}).Return([]models.Service{}, nil).Once()
	f.repo.On("List", mock.Anything, models.ServiceFilter{Skip: 5, Take: MaxServiceTake}).Return([]models.Service{}, nil).Once()

	_, err := f.svc.List(context.Background(), models.ServiceFilter{Skip: -3})
	require.NoError(t, err)
	_, err = f.svc.List(context.Background(), models.ServiceFilter{Skip: 5, Take: 1000})
	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

func TestCatalogService_Update(t *testing.T) {
	f := newCatalogFixture()
	existing := &models.Service{ID: uuid.New(), ProviderID: f.provider.ID, CategoryID: f.category, Title: "Старое", IsActive: true}
	f.repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	f.repo.On("Update", mock.Anything, existing).Return(nil)

	title := "Новое название"
	updated, err := f.svc.Update(context.Background(), existing.ID, f.provider.ID, models.ServicePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	_, err = f.svc.Update(context.Background(), existing.ID, f.customer.ID, models.ServicePatch{Title: &title})
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.Update(context.Background(), existing.ID, f.provider.ID, models.ServicePatch{})
	assert.ErrorIs(t, err, apperror.ErrEmptyPatch)
}

func TestCatalogService_Delete_WithReviews(t *testing.T) {
	f := newCatalogFixture()
	existing := &models.Service{ID: uuid.New(), ProviderID: f.provider.ID, CategoryID: f.category}
	f.repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	f.reviews.On("CountByService", mock.Anything, existing.ID).Return(2, nil)

	_, err := f.svc.Delete(context.Background(), existing.ID, f.provider.ID)
	assert.True(t, apperror.IsConflict(err))
	f.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	f.repo.On("SetActive", mock.Anything, existing.ID, false).Return(nil)
	deactivated, err := f.svc.Deactivate(context.Background(), existing.ID, f.provider.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)
}

func TestCatalogService_Delete(t *testing.T) {
	f := newCatalogFixture()
	existing := &models.Service{ID: uuid.New(), ProviderID: f.provider.ID, CategoryID: f.category}
	f.repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	f.reviews.On("CountByService", mock.Anything, existing.ID).Return(0, nil)
	f.repo.On("Delete", mock.Anything, existing.ID).Return(nil)

	deleted, err := f.svc.Delete(context.Background(), existing.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, deleted.ID)
}

func TestCatalogService_AddImage_Limit(t *testing.T) {
	f := newCatalogFixture()
	full := &models.Service{ID: uuid.New(), ProviderID: f.provider.ID, Images: []string{"a", "b", "c", "d", "e"}}
	f.repo.On("GetByID", mock.Anything, full.ID).Return(full, nil)

	_, err := f.svc.AddImage(context.Background(), full.ID, f.provider.ID, "/media/x.png")
	assert.True(t, apperror.IsValidation(err))
	f.repo.AssertNotCalled(t, "AppendImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogService_GetByID_NotFound(t *testing.T) {
	f := newCatalogFixture()
	id := uuid.New()
	f.repo.On("GetByID", mock.Anything, id).Return(nil, repository.ErrServiceNotFound)

	_, err := f.svc.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, apperror.ErrServiceNotFound)
}
