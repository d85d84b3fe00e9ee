package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Connect opens a redis client and verifies it with PING.
func Connect(ctx context.Context, addr string, log *slog.Logger) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if log == nil {
		log = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis %s", addr)
	}
	log.Info("redis connected",
		"event", "redis_connected",
		"module", "internal/platform/cache",
		"layer", "platform",
		"addr", addr,
	)
	return client, nil
}
