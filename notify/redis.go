package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "tirecheck:events"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// RedisChannel publishes events on a Redis pub/sub channel.
type RedisChannel struct {
	cfg    RedisConfig
	client *redis.Client
}

func NewRedis(cfg RedisConfig) *RedisChannel {
	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	ch := &RedisChannel{cfg: cfg}
	if cfg.Addr != "" {
		ch.client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	return ch
}

func (r *RedisChannel) Name() string       { return "redis" }
func (r *RedisChannel) IsConfigured() bool { return r.client != nil }

func (r *RedisChannel) Send(ctx context.Context, evt Event) error {
	if r.client == nil {
		return fmt.Errorf("redis channel not configured")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.cfg.Channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (r *RedisChannel) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
