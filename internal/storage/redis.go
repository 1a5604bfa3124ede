package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	"github.com/redis/go-redis/v9"
)

const maxAttackerHistory = 100

// RedisStorage implements the Storage interface using Redis for resolutions
// and saved creatures, and the filesystem for seed creatures
type RedisStorage struct {
	client  *redis.Client
	logger  *slog.Logger
	dataDir string
	ttl     time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// ParseRedisURL accepts either a redis:// URL or a bare host:port address.
func ParseRedisURL(redisURL string) (*redis.Options, error) {
	if strings.Contains(redisURL, "://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return opt, nil
	}
	return &redis.Options{Addr: redisURL}, nil
}

// NewRedisStorage creates a new Redis storage instance
func NewRedisStorage(redisURL string, dataDir string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}

	if dataDir == "" {
		dataDir = "./data"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &RedisStorage{
		client:  redis.NewClient(opt),
		logger:  logger,
		dataDir: dataDir,
		ttl:     ttl,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Resolution operations (Redis-backed)

func resolutionKey(id uuid.UUID) string {
	return "resolution:" + id.String()
}

func attackerHistoryKey(attackerID int) string {
	return fmt.Sprintf("resolutions:attacker:%d", attackerID)
}

func (r *RedisStorage) SaveResolution(ctx context.Context, res *combat.Resolution) error {
	if res == nil {
		return errors.New("resolution cannot be nil")
	}

	data, err := json.Marshal(res)
	if err != nil {
		r.logger.Error("Failed to marshal resolution", "id", res.ID, "error", err)
		return fmt.Errorf("failed to marshal resolution: %w", err)
	}

	historyKey := attackerHistoryKey(res.AttackerID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, resolutionKey(res.ID), data, r.ttl)
		pipe.LPush(ctx, historyKey, res.ID.String())
		pipe.LTrim(ctx, historyKey, 0, maxAttackerHistory-1)
		pipe.Expire(ctx, historyKey, r.ttl)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save resolution", "id", res.ID, "error", err)
		return fmt.Errorf("failed to save resolution: %w", err)
	}
	return nil
}

func (r *RedisStorage) GetResolution(ctx context.Context, id uuid.UUID) (*combat.Resolution, error) {
	data, err := r.client.Get(ctx, resolutionKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("resolution %s: %w", id, ErrNotFound)
		}
		r.logger.Error("Failed to load resolution", "id", id, "error", err)
		return nil, fmt.Errorf("failed to load resolution: %w", err)
	}

	var res combat.Resolution
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resolution: %w", err)
	}
	return &res, nil
}

func (r *RedisStorage) ListResolutions(ctx context.Context, attackerID int, limit int) ([]*combat.Resolution, error) {
	end := int64(limit - 1)
	if limit <= 0 {
		end = -1
	}

	ids, err := r.client.LRange(ctx, attackerHistoryKey(attackerID), 0, end).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	if len(ids) == 0 {
		return []*combat.Resolution{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "resolution:" + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load resolutions: %w", err)
	}

	results := make([]*combat.Resolution, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Expired before the history list was trimmed
			continue
		}
		var res combat.Resolution
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			r.logger.Warn("Failed to unmarshal resolution", "key", keys[i], "error", err)
			continue
		}
		results = append(results, &res)
	}
	return results, nil
}
