package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zfogg/searchstudy/internal/logger"
	"go.uber.org/zap"
)

// RedisClient wraps the redis.Client with connection pooling
type RedisClient struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		_ = client.Close()
		return nil, err
	}

	logger.Log.Info("Redis client connected", zap.String("address", addr))
	return &RedisClient{client: client, prefix: "searchstudy:"}, nil
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Ping checks connectivity
func (rc *RedisClient) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// IncrWindow increments key and sets its expiry on first use. It backs the
// fixed-window rate limiter.
func (rc *RedisClient) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	full := rc.prefix + "ratelimit:" + key
	pipe := rc.client.TxPipeline()
	incr := pipe.Incr(ctx, full)
	pipe.ExpireNX(ctx, full, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (rc *RedisClient) openSessionKey(participantID string) string {
	return rc.prefix + "open_session:" + participantID
}

// GetOpenSession implements SessionCache
func (rc *RedisClient) GetOpenSession(ctx context.Context, participantID string) (string, bool) {
	id, err := rc.client.Get(ctx, rc.openSessionKey(participantID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("Open session cache read failed", zap.Error(err))
		}
		return "", false
	}
	return id, true
}

// SetOpenSession implements SessionCache
func (rc *RedisClient) SetOpenSession(ctx context.Context, participantID, sessionID string) {
	if err := rc.client.Set(ctx, rc.openSessionKey(participantID), sessionID, OpenSessionTTL).Err(); err != nil {
		logger.Log.Warn("Open session cache write failed", zap.Error(err))
	}
}

// InvalidateOpenSession implements SessionCache
func (rc *RedisClient) InvalidateOpenSession(ctx context.Context, participantID string) {
	if err := rc.client.Del(ctx, rc.openSessionKey(participantID)).Err(); err != nil {
		logger.Log.Warn("Open session cache delete failed", zap.Error(err))
	}
}
