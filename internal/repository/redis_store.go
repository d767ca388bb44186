package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"DataLink.piwebapi/internal/config"
	"DataLink.piwebapi/internal/models"
)

// ResultStore keeps fetched tidy rows under a query cache key.
type ResultStore interface {
	Save(ctx context.Context, key string, rows []models.TidyRow) error
	Load(ctx context.Context, key string) ([]models.TidyRow, bool, error)
}

// RedisResultStore stores rows as JSON with a TTL.
type RedisResultStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisResultStore connects to Redis and checks the connection.
func NewRedisResultStore(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*RedisResultStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", cfg.Addr, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Connected to Redis", zap.String("addr", cfg.Addr))
	return &RedisResultStore{client: client, ttl: cfg.TTL, logger: logger}, nil
}

func resultKey(key string) string {
	return fmt.Sprintf("datalink:result:%s", key)
}

// Save stores rows under key, replacing any previous value.
func (s *RedisResultStore) Save(ctx context.Context, key string, rows []models.TidyRow) error {
	payload, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}
	if err := s.client.Set(ctx, resultKey(key), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing rows in Redis: %w", err)
	}
	s.logger.Debug("stored rows", zap.String("key", key), zap.Int("rows", len(rows)))
	return nil
}

// Load returns the rows stored under key; ok is false when nothing is stored.
func (s *RedisResultStore) Load(ctx context.Context, key string) ([]models.TidyRow, bool, error) {
	payload, err := s.client.Get(ctx, resultKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading rows from Redis: %w", err)
	}
	var rows []models.TidyRow
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, false, fmt.Errorf("decoding rows: %w", err)
	}
	return rows, true, nil
}

// Close closes the Redis connection.
func (s *RedisResultStore) Close() error {
	return s.client.Close()
}
