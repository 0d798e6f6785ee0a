package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	// GetJSON returns apperrors.ErrNotFound on a cache miss.
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}
