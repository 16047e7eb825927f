// Package cache - вспомогательный кэш чтения. Его содержимое никогда не
// используется для проверок уникальности и существования.
package cache

import (
	"context"
	"time"
)

// Cache - хранилище с TTL и инвалидацией по префиксу.
// Значения сериализуются в JSON, dest в Get должен быть указателем.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Префиксы ключей.
const (
	PrefixCategories = "categories:"
	PrefixServices   = "services:"
	PrefixStats      = "review_stats:"
)
