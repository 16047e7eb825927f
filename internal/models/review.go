package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/marketplace-backend/internal/pkg/pagination"
)

// Границы рейтинга отзыва.
const (
	MinRating = 1
	MaxRating = 5
)

// Review - отзыв одного участника о другом (и, опционально, о его услуге).
// На пару (reviewer_id, reviewee_id) существует не более одного отзыва.
type Review struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ReviewerID uuid.UUID  `db:"reviewer_id" json:"reviewer_id"`
	RevieweeID uuid.UUID  `db:"reviewee_id" json:"reviewee_id"`
	ServiceID  *uuid.UUID `db:"service_id" json:"service_id,omitempty"`
	Rating     int        `db:"rating" json:"rating"`
	Comment    *string    `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// SubmitReviewInput - единственный путь создания или изменения отзыва.
type SubmitReviewInput struct {
	ReviewerID uuid.UUID
	RevieweeID uuid.UUID
	ServiceID  *uuid.UUID
	Rating     int
	Comment    *string
}

// ReviewResult - результат Submit.
type ReviewResult struct {
	Review   *Review `json:"review"`
	IsUpdate bool    `json:"is_update"`
}

// ReviewStats - агрегированная статистика оценок.
type ReviewStats struct {
	Count        int         `json:"count"`
	Average      float64     `json:"average"`
	Distribution map[int]int `json:"distribution"`
}

// ReviewPage - страница отзывов с метаданными пагинации.
type ReviewPage struct {
	Reviews []Review        `json:"reviews"`
	Meta    pagination.Meta `json:"meta"`
}
