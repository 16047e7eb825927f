package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
)

const workerConcurrency = 10

// Worker обрабатывает фоновые задачи в том же процессе, что и HTTP-сервер.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewWorker настраивает сервер asynq и регистрирует обработчики.
func NewWorker(redisURL string, reviews ReviewCreatedHandler) (*Worker, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse redis url %w", err)
	}

	log := logger.WithComponent("queue_worker")
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: workerConcurrency,
		Queues: map[string]int{
			QueueNotifications: 6,
			QueueDefault:       3,
		},
		Logger: log,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.WithError(err).WithFields(logrus.Fields{
				"task":      task.Type(),
				"retried":   retried,
				"max_retry": maxRetry,
			}).Error("задача завершилась с ошибкой")
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TypeReviewCreated, HandleReviewCreated(reviews))

	return &Worker{server: server, mux: mux}, nil
}

// Start запускает обработку задач без блокировки.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown дожидается текущих задач и останавливает воркер.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// NewClient создаёт клиента asynq для постановки задач.
func NewClient(redisURL string) (*asynq.Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("queue: parse redis url %w", err)
	}
	return asynq.NewClient(opt), nil
}
