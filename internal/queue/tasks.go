package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// Типы задач.
const (
	TypeReviewCreated = "notification:review_created"
)

// Очереди и их приоритеты.
const (
	QueueNotifications = "notifications"
	QueueDefault       = "default"
)

const (
	reviewCreatedMaxRetry = 3
	reviewCreatedTimeout  = 30 * time.Second
)

// ReviewCreatedPayload - полезная нагрузка задачи о новом отзыве.
type ReviewCreatedPayload struct {
	Review models.Review `json:"review"`
}

// NewReviewCreatedTask собирает задачу уведомления о новом отзыве.
func NewReviewCreatedTask(review models.Review) (*asynq.Task, error) {
	payload, err := json.Marshal(ReviewCreatedPayload{Review: review})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal review created %w", err)
	}
	return asynq.NewTask(TypeReviewCreated, payload,
		asynq.Queue(QueueNotifications),
		asynq.MaxRetry(reviewCreatedMaxRetry),
		asynq.Timeout(reviewCreatedTimeout),
	), nil
}

// ReviewCreatedHandler обрабатывает событие о новом отзыве.
type ReviewCreatedHandler interface {
	ReviewCreated(ctx context.Context, review models.Review) error
}

// HandleReviewCreated возвращает обработчик задачи TypeReviewCreated.
func HandleReviewCreated(handler ReviewCreatedHandler) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p ReviewCreatedPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("queue: bad %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
		}
		return handler.ReviewCreated(ctx, p.Review)
	}
}
