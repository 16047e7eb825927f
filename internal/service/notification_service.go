package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/pagination"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
)

// События уведомлений.
const (
	EventReviewReceived = "review.received"
	EventReviewSent     = "review.sent"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// Broadcaster доставляет сообщение подключённым клиентам пользователя.
type Broadcaster interface {
	SendToUser(userID uuid.UUID, payload []byte)
}

// notificationPayload - формат payload в БД и в сообщении websocket.
type notificationPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NotificationService содержит бизнес-логику работы с уведомлениями.
type NotificationService struct {
	repo        NotificationRepository
	broadcaster Broadcaster
	log         *logrus.Entry
}

// NewNotificationService создаёт новый сервис уведомлений. broadcaster может быть nil.
func NewNotificationService(repo NotificationRepository, broadcaster Broadcaster) *NotificationService {
	return &NotificationService{
		repo:        repo,
		broadcaster: broadcaster,
		log:         logger.WithComponent("notification_service"),
	}
}

// Notify сохраняет уведомление и отправляет его в открытые websocket-соединения.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) (*models.Notification, error) {
	payload, err := json.Marshal(notificationPayload{Type: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("notification service: marshal payload %w", err)
	}

	notification := &models.Notification{UserID: userID, Payload: payload}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.SendToUser(userID, payload)
	}
	return notification, nil
}

// ReviewCreated уведомляет получателя и автора нового отзыва.
func (s *NotificationService) ReviewCreated(ctx context.Context, review models.Review) error {
	var errs []error
	if _, err := s.Notify(ctx, review.RevieweeID, EventReviewReceived, review); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.Notify(ctx, review.ReviewerID, EventReviewSent, review); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notification service: review created %w", err)
	}

	s.log.WithField("review_id", review.ID).Debug("уведомления о новом отзыве отправлены")
	return nil
}

// List возвращает уведомления пользователя, новые первыми.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) ([]models.Notification, error) {
	params := pagination.New(page, limit)
	notifications, err := s.repo.List(ctx, userID, unreadOnly, params.Limit, params.Offset())
	if err != nil {
		return nil, apperror.FromStore(err)
	}
	return notifications, nil
}

// MarkAsRead отмечает уведомление как прочитанное. Чужое уведомление
// не отличается от отсутствующего.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return apperror.NotFound("уведомление не найдено")
		}
		return apperror.FromStore(err)
	}
	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperror.FromStore(err)
	}
	return count, nil
}
