package redisadapter

import (
	"context"
	"log/slog"
	"time"

	application "tokenvest/contexts/token-economics/vesting-engine/application"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	"tokenvest/contexts/token-economics/vesting-engine/ports"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const defaultPrefix = "vesting:idempotency"

// minimumTTL keeps a record that is already past ExpiresAt long enough for a
// concurrent Put to see it. Get still treats it as expired.
const minimumTTL = time.Second

// storedRecord is the msgpack layout of an idempotency key.
type storedRecord struct {
	RequestHash string    `msgpack:"h"`
	ResourceID  string    `msgpack:"r"`
	ExpiresAt   time.Time `msgpack:"e"`
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now().UTC() }

// IdempotencyStore keeps idempotency keys in Redis and lets Redis expire them.
// Key TTLs are measured against the same clock the use cases stamp
// ExpiresAt with, so a frozen or skewed clock does not drop records.
type IdempotencyStore struct {
	client *redis.Client
	clock  ports.Clock
	prefix string
	logger *slog.Logger
}

func NewIdempotencyStore(client *redis.Client, clock ports.Clock, prefix string, logger *slog.Logger) *IdempotencyStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if clock == nil {
		clock = wallClock{}
	}
	return &IdempotencyStore{
		client: client,
		clock:  clock,
		prefix: prefix,
		logger: application.ModuleLogger(logger, "adapter"),
	}
}

func (s *IdempotencyStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *IdempotencyStore) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	record, found, err := s.load(ctx, key)
	if err != nil || !found {
		return ports.IdempotencyRecord{}, false, err
	}
	if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
		if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
			return ports.IdempotencyRecord{}, false, errors.Wrap(err, "expire idempotency record")
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return record, true, nil
}

func (s *IdempotencyStore) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	data, err := msgpack.Marshal(storedRecord{
		RequestHash: record.RequestHash,
		ResourceID:  record.ResourceID,
		ExpiresAt:   record.ExpiresAt.UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "encode idempotency record")
	}

	created, err := s.client.SetNX(ctx, s.key(record.Key), data, s.ttl(record.ExpiresAt)).Result()
	if err != nil {
		return errors.Wrap(err, "store idempotency record")
	}
	if created {
		return nil
	}

	existing, found, err := s.load(ctx, record.Key)
	if err != nil {
		return err
	}
	if found && existing.RequestHash != record.RequestHash {
		s.logger.Warn("idempotency key reused with different payload",
			"event", "redis_idempotency_conflict",
			"key", record.Key,
		)
		return domainerrors.ErrIdempotencyKeyConflict
	}
	return nil
}

// ttl returns zero (no expiry) for records without ExpiresAt.
func (s *IdempotencyStore) ttl(expiresAt time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	ttl := expiresAt.Sub(s.clock.Now())
	if ttl < minimumTTL {
		return minimumTTL
	}
	return ttl
}

func (s *IdempotencyStore) load(ctx context.Context, key string) (ports.IdempotencyRecord, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, errors.Wrap(err, "load idempotency record")
	}
	var stored storedRecord
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return ports.IdempotencyRecord{}, false, errors.Wrap(err, "decode idempotency record")
	}
	return ports.IdempotencyRecord{
		Key:         key,
		RequestHash: stored.RequestHash,
		ResourceID:  stored.ResourceID,
		ExpiresAt:   stored.ExpiresAt.UTC(),
	}, true, nil
}
