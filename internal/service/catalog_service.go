package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/cache"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
	"github.com/ignatzorin/marketplace-backend/internal/validation"
)

// Параметры выборки услуг.
const (
	DefaultServiceTake = 10
	MaxServiceTake     = 100
)

// ServiceRepository описывает хранилище услуг.
type ServiceRepository interface {
	Create(ctx context.Context, service *models.Service) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error)
	Update(ctx context.Context, service *models.Service) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	AppendImage(ctx context.Context, id uuid.UUID, url string, limit int) (*models.Service, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryLookup - проверка существования категории.
type CategoryLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// UserLookup - чтение пользователя по ID.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ServiceReviewCounter считает отзывы, ссылающиеся на услугу.
type ServiceReviewCounter interface {
	CountByService(ctx context.Context, serviceID uuid.UUID) (int, error)
}

// CatalogService управляет каталогом услуг.
type CatalogService struct {
	repo       ServiceRepository
	categories CategoryLookup
	users      UserLookup
	reviews    ServiceReviewCounter
	cache      readCache
	log        *logrus.Entry
}

// NewCatalogService создаёт сервис каталога. store может быть nil.
func NewCatalogService(repo ServiceRepository, categories CategoryLookup, users UserLookup, reviews ServiceReviewCounter, store cache.Cache, cacheTTL time.Duration) *CatalogService {
	log := logger.WithComponent("catalog_service")
	return &CatalogService{
		repo:       repo,
		categories: categories,
		users:      users,
		reviews:    reviews,
		cache:      newReadCache(store, cacheTTL, log),
		log:        log,
	}
}

// Create публикует услугу от имени исполнителя. Администратор может
// указать любого исполнителя.
func (s *CatalogService) Create(ctx context.Context, requesterID uuid.UUID, in models.CreateServiceInput) (*models.Service, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.ProviderID == uuid.Nil {
		in.ProviderID = requesterID
	}
	if err := validation.ValidateCreateService(in); err != nil {
		return nil, invalid(err)
	}

	if in.ProviderID != requesterID {
		requester, err := s.user(ctx, requesterID)
		if err != nil {
			return nil, err
		}
		if requester.Role != models.RoleAdmin {
			return nil, apperror.Forbidden("публиковать услуги можно только от своего имени")
		}
	}

	provider, err := s.user(ctx, in.ProviderID)
	if err != nil {
		return nil, err
	}
	if !provider.IsProvider() {
		return nil, apperror.Validation("пользователь %s не является исполнителем", provider.ID)
	}

	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	service := &models.Service{
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Currency:    in.Currency,
		CategoryID:  in.CategoryID,
		ProviderID:  in.ProviderID,
		Tags:        pq.StringArray(in.Tags),
		Images:      pq.StringArray(in.Images),
		WorkingTime: pq.StringArray(in.WorkingTime),
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := s.repo.Create(ctx, service); err != nil {
		return nil, apperror.FromStore(err)
	}

	s.cache.invalidate(ctx, cache.PrefixServices)
	s.log.WithFields(logrus.Fields{"service_id": service.ID, "provider_id": service.ProviderID}).Info("услуга опубликована")
	return service, nil
}

// List возвращает услуги по фильтру. Take по умолчанию 10, не больше 100.
func (s *CatalogService) List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error) {
	filter = NormalizeServiceFilter(filter)

	key := serviceListCacheKey(filter)
	var cached []models.Service
	if s.cache.get(ctx, key, &cached) {
		return cached, nil
	}

	services, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	s.cache.set(ctx, key, services)
	return services, nil
}

// GetByID возвращает услугу или NotFoundError.
func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	service, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, apperror.FromStore(err)
	}
	return service, nil
}

// Update применяет частичное изменение услуги (владелец или администратор).
func (s *CatalogService) Update(ctx context.Context, id, requesterID uuid.UUID, patch models.ServicePatch) (*models.Service, error) {
	if patch.IsEmpty() {
		return nil, apperror.ErrEmptyPatch
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		patch.Title = &title
	}
	if patch.Currency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*patch.Currency))
		patch.Currency = &currency
	}
	if err := validation.ValidateServicePatch(patch); err != nil {
		return nil, invalid(err)
	}

	service, err := s.manageable(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	if patch.CategoryID != nil && *patch.CategoryID != service.CategoryID {
		if err := s.ensureCategory(ctx, *patch.CategoryID); err != nil {
			return nil, err
		}
		service.CategoryID = *patch.CategoryID
	}
	if patch.Title != nil {
		service.Title = *patch.Title
	}
	if patch.Description != nil {
		service.Description = patch.Description
	}
	if patch.Price != nil {
		service.Price = *patch.Price
	}
	if patch.Currency != nil {
		service.Currency = *patch.Currency
	}
	if patch.Tags != nil {
		service.Tags = pq.StringArray(patch.Tags)
	}
	if patch.Images != nil {
		service.Images = pq.StringArray(patch.Images)
	}
	if patch.WorkingTime != nil {
		service.WorkingTime = pq.StringArray(patch.WorkingTime)
	}
	if patch.IsActive != nil {
		service.IsActive = *patch.IsActive
	}

	if err := s.repo.Update(ctx, service); err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, apperror.FromStore(err)
	}

	s.cache.invalidate(ctx, cache.PrefixServices)
	return service, nil
}

// Deactivate снимает услугу с публикации, сохраняя ссылки на неё.
func (s *CatalogService) Deactivate(ctx context.Context, id, requesterID uuid.UUID) (*models.Service, error) {
	service, err := s.manageable(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, apperror.FromStore(err)
	}
	service.IsActive = false

	s.cache.invalidate(ctx, cache.PrefixServices)
	return service, nil
}

// Delete удаляет услугу. Если на неё ссылаются отзывы, удаление
// отклоняется: такую услугу можно только деактивировать.
func (s *CatalogService) Delete(ctx context.Context, id, requesterID uuid.UUID) (*models.Service, error) {
	service, err := s.manageable(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviews.CountByService(ctx, id)
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	if reviews > 0 {
		return nil, apperror.Conflict("на услугу ссылаются отзывы (%d), её можно только снять с публикации", reviews)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, apperror.FromStore(err)
	}

	s.cache.invalidate(ctx, cache.PrefixServices)
	s.log.WithField("service_id", id).Info("услуга удалена")
	return service, nil
}

// AddImage добавляет загруженное изображение к услуге.
func (s *CatalogService) AddImage(ctx context.Context, id, requesterID uuid.UUID, url string) (*models.Service, error) {
	service, err := s.manageable(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}
	if len(service.Images) >= validation.MaxServiceImages {
		return nil, apperror.Validation("у услуги уже %d изображений", validation.MaxServiceImages)
	}

	updated, err := s.repo.AppendImage(ctx, id, url, validation.MaxServiceImages)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrServiceImagesLimit):
			return nil, apperror.Validation("у услуги уже %d изображений", validation.MaxServiceImages)
		case errors.Is(err, repository.ErrServiceNotFound):
			return nil, apperror.ErrServiceNotFound
		}
		return nil, apperror.FromStore(err)
	}

	s.cache.invalidate(ctx, cache.PrefixServices)
	return updated, nil
}

// manageable загружает услугу и проверяет, что requester - владелец или администратор.
func (s *CatalogService) manageable(ctx context.Context, id, requesterID uuid.UUID) (*models.Service, error) {
	service, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if service.ProviderID == requesterID {
		return service, nil
	}

	requester, err := s.user(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester.Role != models.RoleAdmin {
		return nil, apperror.Forbidden("изменять услугу может только её исполнитель")
	}
	return service, nil
}

func (s *CatalogService) user(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.NotFound("пользователь %s не найден", id)
		}
		return nil, apperror.FromStore(err)
	}
	return user, nil
}

func (s *CatalogService) ensureCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return apperror.NotFound("категория %s не найдена", id)
		}
		return apperror.FromStore(err)
	}
	return nil
}

// NormalizeServiceFilter применяет значения skip и take по умолчанию.
func NormalizeServiceFilter(filter models.ServiceFilter) models.ServiceFilter {
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	if filter.Take <= 0 {
		filter.Take = DefaultServiceTake
	}
	if filter.Take > MaxServiceTake {
		filter.Take = MaxServiceTake
	}
	return filter
}

func serviceListCacheKey(filter models.ServiceFilter) string {
	optional := func(id *uuid.UUID) string {
		if id == nil {
			return "-"
		}
		return id.String()
	}
	active := "-"
	if filter.IsActive != nil {
		if *filter.IsActive {
			active = "1"
		} else {
			active = "0"
		}
	}
	return cacheKey(cache.PrefixServices+"list:",
		optional(filter.ProviderID), optional(filter.CategoryID), active, filter.Skip, filter.Take)
}
