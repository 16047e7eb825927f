package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/slug"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

// SeedPassword - пароль демо-исполнителей.
const SeedPassword = "demo-password-123"

// SeedUserStore - хранилище пользователей для генерации демо-данных.
type SeedUserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SeedCategories - создание и поиск категорий.
type SeedCategories interface {
	Create(ctx context.Context, in models.CreateCategoryInput) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string, opts models.CategoryOptions) (*models.Category, error)
}

// SeedCatalog - публикация услуг.
type SeedCatalog interface {
	Create(ctx context.Context, requesterID uuid.UUID, in models.CreateServiceInput) (*models.Service, error)
}

// SeedResult - сколько записей создано.
type SeedResult struct {
	Users      int `json:"users"`
	Categories int `json:"categories"`
	Services   int `json:"services"`
}

type seedBranch struct {
	name   string
	leaves []seedLeaf
}

type seedLeaf struct {
	name     string
	services []string
}

var demoCatalog = []seedBranch{
	{name: "Дизайн", leaves: []seedLeaf{
		{name: "Логотипы", services: []string{"Логотип с нуля", "Редизайн логотипа"}},
		{name: "Веб-дизайн", services: []string{"Дизайн лендинга", "Макет интернет-магазина"}},
	}},
	{name: "Разработка", leaves: []seedLeaf{
		{name: "Сайты", services: []string{"Сайт-визитка", "Доработка сайта"}},
		{name: "Мобильные приложения", services: []string{"Прототип приложения", "Публикация в сторах"}},
	}},
	{name: "Тексты и переводы", leaves: []seedLeaf{
		{name: "Копирайтинг", services: []string{"Продающий текст", "Статья для блога"}},
		{name: "Переводы", services: []string{"Перевод с английского", "Локализация интерфейса"}},
	}},
}

var demoProviders = []string{"Анна Смирнова", "Дмитрий Волков", "Елена Козлова"}

var demoTags = []string{"срочно", "под ключ", "с правками", "с исходниками"}

// SeedService генерирует демо-каталог для разработки.
type SeedService struct {
	users      SeedUserStore
	categories SeedCategories
	catalog    SeedCatalog
	log        *logrus.Entry
}

// NewSeedService создаёт новый сервис для генерации данных.
func NewSeedService(users SeedUserStore, categories SeedCategories, catalog SeedCatalog) *SeedService {
	return &SeedService{
		users:      users,
		categories: categories,
		catalog:    catalog,
		log:        logger.WithComponent("seed_service"),
	}
}

// Seed создаёт исполнителей, дерево категорий и услуги. Существующие
// пользователи и категории переиспользуются, услуги добавляются заново.
func (s *SeedService) Seed(ctx context.Context) (*SeedResult, error) {
	result := &SeedResult{}

	providers, err := s.seedProviders(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("seed service: providers %w", err)
	}

	next := 0
	for _, branch := range demoCatalog {
		root, err := s.ensureCategory(ctx, branch.name, nil, result)
		if err != nil {
			return nil, fmt.Errorf("seed service: category %s %w", branch.name, err)
		}

		for _, leaf := range branch.leaves {
			category, err := s.ensureCategory(ctx, leaf.name, &root.ID, result)
			if err != nil {
				return nil, fmt.Errorf("seed service: category %s %w", leaf.name, err)
			}

			for _, title := range leaf.services {
				provider := providers[next%len(providers)]
				next++
				if _, err := s.catalog.Create(ctx, provider.ID, demoService(title, category.ID, provider.ID)); err != nil {
					return nil, fmt.Errorf("seed service: service %s %w", title, err)
				}
				result.Services++
			}
		}
	}

	s.log.WithFields(logrus.Fields{
		"users":      result.Users,
		"categories": result.Categories,
		"services":   result.Services,
	}).Info("демо-каталог создан")
	return result, nil
}

func (s *SeedService) seedProviders(ctx context.Context, result *SeedResult) ([]*models.User, error) {
	passHash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	providers := make([]*models.User, 0, len(demoProviders))
	for i, name := range demoProviders {
		email := fmt.Sprintf("provider%d@example.com", i+1)

		existing, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			providers = append(providers, existing)
			continue
		case !errors.Is(err, repository.ErrUserNotFound):
			return nil, err
		}

		user := &models.User{
			Email:        email,
			DisplayName:  name,
			PasswordHash: string(passHash),
			Role:         models.RoleProvider,
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		providers = append(providers, user)
		result.Users++
	}
	return providers, nil
}

func (s *SeedService) ensureCategory(ctx context.Context, name string, parentID *uuid.UUID, result *SeedResult) (*models.Category, error) {
	slugValue := slug.From(name)
	existing, err := s.categories.GetBySlug(ctx, slugValue, models.CategoryOptions{})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	category, err := s.categories.Create(ctx, models.CreateCategoryInput{
		Slug:     slugValue,
		Name:     &name,
		ParentID: parentID,
	})
	if err != nil {
		return nil, err
	}
	result.Categories++
	return category, nil
}

func demoService(title string, categoryID, providerID uuid.UUID) models.CreateServiceInput {
	description := "Демо-услуга: " + title
	return models.CreateServiceInput{
		Title:       title,
		Description: &description,
		Price:       decimal.NewFromInt(int64(1000 + rand.Intn(40)*500)),
		Currency:    "RUB",
		CategoryID:  categoryID,
		ProviderID:  providerID,
		Tags:        []string{demoTags[rand.Intn(len(demoTags))]},
		WorkingTime: []string{"пн-пт 10:00-19:00"},
	}
}
