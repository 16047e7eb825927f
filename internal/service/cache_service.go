package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/marketplace-backend/internal/cache"
	"github.com/ignatzorin/marketplace-backend/internal/pkg/apperror"
)

// readCache - обёртка над вспомогательным кэшем. Ошибки кэша только
// логируются и никогда не влияют на результат операции.
type readCache struct {
	store cache.Cache
	ttl   time.Duration
	log   *logrus.Entry
}

func newReadCache(store cache.Cache, ttl time.Duration, log *logrus.Entry) readCache {
	return readCache{store: store, ttl: ttl, log: log}
}

func (c readCache) get(ctx context.Context, key string, dest interface{}) bool {
	if c.store == nil {
		return false
	}
	found, err := c.store.Get(ctx, key, dest)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("не удалось прочитать кэш")
		return false
	}
	return found
}

func (c readCache) set(ctx context.Context, key string, value interface{}) {
	if c.store == nil || c.ttl <= 0 {
		return
	}
	if err := c.store.Set(ctx, key, value, c.ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("не удалось записать кэш")
	}
}

func (c readCache) invalidate(ctx context.Context, prefixes ...string) {
	if c.store == nil {
		return
	}
	for _, prefix := range prefixes {
		if err := c.store.DeletePrefix(ctx, prefix); err != nil {
			c.log.WithError(err).WithField("prefix", prefix).Warn("не удалось сбросить кэш")
		}
	}
}

// invalid переводит ошибку ozzo-validation в ValidationError.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
}

// cacheKey собирает ключ из префикса и частей.
func cacheKey(prefix string, parts ...interface{}) string {
	key := prefix
	for i, part := range parts {
		if i > 0 {
			key += ":"
		}
		key += fmt.Sprint(part)
	}
	return key
}
