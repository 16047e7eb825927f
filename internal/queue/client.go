package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// Enqueuer - часть asynq.Client, которой пользуется Notifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier ставит события в очередь вместо синхронной отправки уведомлений.
type Notifier struct {
	client Enqueuer
	log    *logrus.Entry
}

// NewNotifier создаёт Notifier поверх клиента asynq.
func NewNotifier(client Enqueuer) *Notifier {
	return &Notifier{client: client, log: logger.WithComponent("queue")}
}

// ReviewCreated ставит задачу TypeReviewCreated.
func (n *Notifier) ReviewCreated(ctx context.Context, review models.Review) error {
	task, err := NewReviewCreatedTask(review)
	if err != nil {
		return err
	}

	info, err := n.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("queue: enqueue %s %w", task.Type(), err)
	}

	n.log.WithFields(logrus.Fields{"task_id": info.ID, "queue": info.Queue, "review_id": review.ID}).
		Debug("задача поставлена в очередь")
	return nil
}
