// Package goroutine запускает фоновые задачи так, что panic не роняет процесс.
package goroutine

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/logger"
)

// Runner запускает горутины и логирует их panic.
type Runner struct {
	log logrus.FieldLogger
}

// NewRunner создаёт Runner с заданным логгером. nil - глобальный logger.Log.
func NewRunner(log logrus.FieldLogger) *Runner {
	return &Runner{log: log}
}

// Go запускает fn в отдельной горутине.
func (r *Runner) Go(fn func()) {
	go func() {
		defer r.recover()
		fn()
	}()
}

// GoWithTimeout запускает fn с собственным контекстом, не связанным с
// контекстом запроса, и ограничивает его timeout.
func (r *Runner) GoWithTimeout(timeout time.Duration, fn func(ctx context.Context)) {
	go func() {
		defer r.recover()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (r *Runner) recover() {
	if p := recover(); p != nil {
		log := r.log
		if log == nil {
			// logger.Init может заменить логгер после старта.
			log = logger.WithComponent("goroutine")
		}
		log.WithField("panic", p).Errorf("panic в горутине\n%s", debug.Stack())
	}
}

var defaultRunner = &Runner{}

// SafeGo запускает fn через глобальный Runner.
func SafeGo(fn func()) {
	defaultRunner.Go(fn)
}

// SafeGoWithTimeout запускает fn через глобальный Runner с таймаутом.
func SafeGoWithTimeout(timeout time.Duration, fn func(ctx context.Context)) {
	defaultRunner.GoWithTimeout(timeout, fn)
}
