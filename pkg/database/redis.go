package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yourusername/parajuriste-api/internal/config"
)

const redisPingTimeout = 5 * time.Second

// RedisOptions переводит конфигурацию в опции UniversalClient.
// Режим sentinel требует MasterName, cluster определяется по числу адресов.
func RedisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	addrs := cfg.Addrs
	if len(addrs) == 0 && cfg.Addr != "" {
		addrs = []string{cfg.Addr}
	}
	if len(addrs) == 0 {
		return nil, "", fmt.Errorf("redis: addrs or addr must be set")
	}

	mode := cfg.Mode
	if mode == "" {
		mode = "single"
	}

	opts := &redis.UniversalOptions{
		Addrs:    addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	switch mode {
	case "single":
		// один адрес, иначе UniversalClient решит что это cluster
		opts.Addrs = addrs[:1]
	case "sentinel":
		if cfg.MasterName == "" {
			return nil, "", fmt.Errorf("redis: sentinel mode requires master_name")
		}
		opts.MasterName = cfg.MasterName
	case "cluster":
	default:
		return nil, "", fmt.Errorf("redis: unsupported mode %q", mode)
	}

	if cfg.MaxRetries != 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.MinRetryBackoff > 0 {
		opts.MinRetryBackoff = time.Duration(cfg.MinRetryBackoff) * time.Millisecond
	}
	if cfg.MaxRetryBackoff > 0 {
		opts.MaxRetryBackoff = time.Duration(cfg.MaxRetryBackoff) * time.Millisecond
	}
	return opts, mode, nil
}

// NewUniversalRedisClient создает клиент Redis (single, sentinel, cluster) и проверяет соединение
func NewUniversalRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	opts, mode, err := RedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis (mode: %s, addrs: %v): %w", mode, opts.Addrs, err)
	}
	return client, nil
}
