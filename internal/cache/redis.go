// Package cache provides an optional Redis-backed line-score cache so
// retry-errors reruns avoid refetching summaries for games already margined.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"nba_priors/mining/internal/segment"
)

// Config holds Redis connection settings
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache caches computed Q3 margins keyed by game id.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// HealthCheck pings Redis to verify the connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// GetMargins returns cached margins for a game, if present.
func (rc *RedisCache) GetMargins(ctx context.Context, gameID string) (*segment.Margins, bool) {
	data, err := rc.client.Get(ctx, marginsKey(gameID)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("game_id", gameID).Msg("Line-score cache read failed")
		}
		return nil, false
	}

	var m segment.Margins
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Corrupt cached margins, ignoring")
		return nil, false
	}
	return &m, true
}

// SetMargins caches a game's margins. Failures are logged, not propagated;
// the cache is best-effort.
func (rc *RedisCache) SetMargins(ctx context.Context, gameID string, m *segment.Margins) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := rc.client.Set(ctx, marginsKey(gameID), data, rc.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Line-score cache write failed")
	}
}

func marginsKey(gameID string) string {
	return "q3margins:" + gameID
}
