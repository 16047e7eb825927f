package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/repository/common"
)

var (
	// ErrReviewNotFound возвращается, когда отзыв не найден.
	ErrReviewNotFound = fmt.Errorf("review: %w", common.ErrNotFound)
	// ErrReviewExists - отзыв для пары (reviewer, reviewee) уже создан.
	ErrReviewExists = fmt.Errorf("review for this pair: %w", common.ErrAlreadyExists)
)

const (
	reviewColumns   = `id, reviewer_id, reviewee_id, service_id, rating, comment, created_at, updated_at`
	reviewPairIndex = "reviews_pair_key"
)

// ReviewRepository отвечает за таблицу reviews.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository создаёт экземпляр репозитория.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create создаёт отзыв. Повторная пара возвращает ErrReviewExists.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (reviewer_id, reviewee_id, service_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		review.ReviewerID, review.RevieweeID, review.ServiceID, review.Rating, review.Comment,
	).Scan(&review.ID, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err, reviewPairIndex) {
			return ErrReviewExists
		}
		return fmt.Errorf("review repository: create %w", err)
	}
	return nil
}

// Update перезаписывает оценку, комментарий и услугу существующего отзыва.
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	query := `
		UPDATE reviews
		SET rating = $2, comment = $3, service_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		review.ID, review.Rating, review.Comment, review.ServiceID,
	).Scan(&review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrReviewNotFound
		}
		return fmt.Errorf("review repository: update %w", err)
	}
	return nil
}

// GetByID возвращает отзыв по ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := common.GetByID[models.Review](ctx, r.db, "reviews", id, ErrReviewNotFound)
	if err != nil && !errors.Is(err, ErrReviewNotFound) {
		return nil, fmt.Errorf("review repository: %w", err)
	}
	return review, err
}

// GetByPair возвращает отзыв пары или nil, если его нет.
func (r *ReviewRepository) GetByPair(ctx context.Context, reviewerID, revieweeID uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.GetContext(ctx, &review,
		`SELECT `+reviewColumns+` FROM reviews WHERE reviewer_id = $1 AND reviewee_id = $2`,
		reviewerID, revieweeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("review repository: get by pair %w", err)
	}
	return &review, nil
}

// ListByReviewer возвращает отзывы, оставленные пользователем, и их общее число.
func (r *ReviewRepository) ListByReviewer(ctx context.Context, reviewerID uuid.UUID, limit, offset int) ([]models.Review, int, error) {
	return r.listBy(ctx, "reviewer_id", reviewerID, limit, offset)
}

// ListByReviewee возвращает отзывы о пользователе и их общее число.
func (r *ReviewRepository) ListByReviewee(ctx context.Context, revieweeID uuid.UUID, limit, offset int) ([]models.Review, int, error) {
	return r.listBy(ctx, "reviewee_id", revieweeID, limit, offset)
}

// listBy: column подставляется только из констант выше.
func (r *ReviewRepository) listBy(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]models.Review, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reviews WHERE `+column+` = $1`, id); err != nil {
		return nil, 0, fmt.Errorf("review repository: count by %s %w", column, err)
	}

	reviews := []models.Review{}
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE ` + column + ` = $1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &reviews, query, id, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("review repository: list by %s %w", column, err)
	}
	return reviews, total, nil
}

// RatingDistribution возвращает количество отзывов по каждой оценке для
// пользователя (как получателя) или услуги.
func (r *ReviewRepository) RatingDistribution(ctx context.Context, targetID uuid.UUID) (map[int]int, error) {
	var rows []struct {
		Rating int `db:"rating"`
		Count  int `db:"count"`
	}
	query := `
		SELECT rating, COUNT(*) AS count
		FROM reviews
		WHERE reviewee_id = $1 OR service_id = $1
		GROUP BY rating
	`
	if err := r.db.SelectContext(ctx, &rows, query, targetID); err != nil {
		return nil, fmt.Errorf("review repository: rating distribution %w", err)
	}

	distribution := make(map[int]int, len(rows))
	for _, row := range rows {
		distribution[row.Rating] = row.Count
	}
	return distribution, nil
}

// CountByService возвращает количество отзывов, ссылающихся на услугу.
func (r *ReviewRepository) CountByService(ctx context.Context, serviceID uuid.UUID) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM reviews WHERE service_id = $1`, serviceID); err != nil {
		return 0, fmt.Errorf("review repository: count by service %w", err)
	}
	return count, nil
}

// Delete удаляет отзыв.
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("review repository: delete %w", err)
	}
	return requireAffected(result, ErrReviewNotFound)
}
