package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/repository/common"
)

var (
	// ErrServiceNotFound возвращается, когда услуга не найдена.
	ErrServiceNotFound = fmt.Errorf("service: %w", common.ErrNotFound)
	// ErrServiceImagesLimit - у услуги уже максимальное число изображений.
	ErrServiceImagesLimit = errors.New("service images limit reached")
)

const serviceColumns = `id, title, description, price, currency, category_id, provider_id,
	tags, images, working_time, is_active, created_at, updated_at`

// ServiceRepository отвечает за таблицу services.
type ServiceRepository struct {
	db *sqlx.DB
}

// NewServiceRepository создаёт экземпляр репозитория.
func NewServiceRepository(db *sqlx.DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// Create публикует услугу.
func (r *ServiceRepository) Create(ctx context.Context, service *models.Service) error {
	query := `
		INSERT INTO services (title, description, price, currency, category_id, provider_id,
			tags, images, working_time, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		service.Title, service.Description, service.Price, service.Currency,
		service.CategoryID, service.ProviderID,
		textArray(service.Tags), textArray(service.Images), textArray(service.WorkingTime),
		service.IsActive,
	).Scan(&service.ID, &service.CreatedAt, &service.UpdatedAt); err != nil {
		return fmt.Errorf("service repository: create %w", err)
	}
	return nil
}

// GetByID возвращает услугу по идентификатору.
func (r *ServiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	var service models.Service
	if err := r.db.GetContext(ctx, &service, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("service repository: get by id %w", err)
	}
	return &service, nil
}

// List возвращает услуги по фильтру. Skip и Take должны быть уже нормализованы.
func (r *ServiceRepository) List(ctx context.Context, filter models.ServiceFilter) ([]models.Service, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ProviderID != nil {
		args = append(args, *filter.ProviderID)
		conditions = append(conditions, fmt.Sprintf("provider_id = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	query := `SELECT ` + serviceColumns + ` FROM services`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Take, filter.Skip)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	services := []models.Service{}
	if err := r.db.SelectContext(ctx, &services, query, args...); err != nil {
		return nil, fmt.Errorf("service repository: list %w", err)
	}
	return services, nil
}

// ListByCategoryIDs возвращает услуги нескольких категорий одним запросом.
func (r *ServiceRepository) ListByCategoryIDs(ctx context.Context, categoryIDs []uuid.UUID) ([]models.Service, error) {
	services := []models.Service{}
	if len(categoryIDs) == 0 {
		return services, nil
	}
	query := `SELECT ` + serviceColumns + ` FROM services WHERE category_id = ANY($1) ORDER BY created_at DESC, id`
	if err := r.db.SelectContext(ctx, &services, query, pq.Array(categoryIDs)); err != nil {
		return nil, fmt.Errorf("service repository: list by categories %w", err)
	}
	return services, nil
}

// Update сохраняет изменяемые поля услуги целиком.
func (r *ServiceRepository) Update(ctx context.Context, service *models.Service) error {
	query := `
		UPDATE services
		SET title = $2, description = $3, price = $4, currency = $5, category_id = $6,
			tags = $7, images = $8, working_time = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		service.ID, service.Title, service.Description, service.Price, service.Currency, service.CategoryID,
		textArray(service.Tags), textArray(service.Images), textArray(service.WorkingTime), service.IsActive,
	).Scan(&service.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrServiceNotFound
		}
		return fmt.Errorf("service repository: update %w", err)
	}
	return nil
}

// SetActive включает или снимает услугу с публикации.
func (r *ServiceRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE services SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("service repository: set active %w", err)
	}
	return requireAffected(result, ErrServiceNotFound)
}

// AppendImage добавляет ссылку на изображение, если лимит не превышен.
func (r *ServiceRepository) AppendImage(ctx context.Context, id uuid.UUID, url string, limit int) (*models.Service, error) {
	query := `
		UPDATE services
		SET images = array_append(images, $2), updated_at = NOW()
		WHERE id = $1 AND cardinality(images) < $3
		RETURNING ` + serviceColumns
	var service models.Service
	if err := r.db.GetContext(ctx, &service, query, id, url, limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrServiceImagesLimit
		}
		return nil, fmt.Errorf("service repository: append image %w", err)
	}
	return &service, nil
}

// Delete удаляет услугу.
func (r *ServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("service repository: delete %w", err)
	}
	return requireAffected(result, ErrServiceNotFound)
}

// requireAffected возвращает notFound, если запрос не затронул ни одной строки.
func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// textArray заменяет nil пустым массивом: колонки text[] объявлены NOT NULL.
func textArray(a pq.StringArray) pq.StringArray {
	if a == nil {
		return pq.StringArray{}
	}
	return a
}
