package opqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dashlens/resilience-core/pkg/config"
	"github.com/dashlens/resilience-core/pkg/errors"
	"github.com/dashlens/resilience-core/pkg/logging"
)

const journalKey = "resilience:opqueue:journal"

// Journal persists the queue contents so deferred operations survive a
// process restart. All methods are best-effort from the caller's point of
// view; journal failures never block queueing.
type Journal interface {
	Save(ctx context.Context, ops []Operation) error
	Load(ctx context.Context) ([]Operation, error)
	Clear(ctx context.Context) error
	Close() error
}

// RedisJournal stores the queue as a single JSON blob in Redis.
type RedisJournal struct {
	client *redis.Client
	logger *logging.Logger
}

// NewRedisJournal connects to Redis and verifies the connection.
func NewRedisJournal(cfg config.RedisConfig, logger *logging.Logger) (*RedisJournal, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.NewExternalError("redis", "failed to connect").WithCause(err)
	}

	return &RedisJournal{client: client, logger: logger}, nil
}

// Save overwrites the journal with the given operations.
func (j *RedisJournal) Save(ctx context.Context, ops []Operation) error {
	data, err := json.Marshal(ops)
	if err != nil {
		return errors.NewInternalError("failed to marshal operation journal").WithCause(err)
	}

	if err := j.client.Set(ctx, journalKey, data, 0).Err(); err != nil {
		return errors.NewExternalError("redis", "failed to write operation journal").WithCause(err)
	}
	return nil
}

// Load returns the journaled operations, or nil when no journal exists.
func (j *RedisJournal) Load(ctx context.Context) ([]Operation, error) {
	data, err := j.client.Get(ctx, journalKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewExternalError("redis", "failed to read operation journal").WithCause(err)
	}

	var ops []Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, errors.NewInternalError("failed to decode operation journal").WithCause(err)
	}
	return ops, nil
}

// Clear removes the journal.
func (j *RedisJournal) Clear(ctx context.Context) error {
	if err := j.client.Del(ctx, journalKey).Err(); err != nil {
		return errors.NewExternalError("redis", "failed to clear operation journal").WithCause(err)
	}
	return nil
}

// Close releases the Redis connection.
func (j *RedisJournal) Close() error {
	return j.client.Close()
}
