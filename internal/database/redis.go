package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients keeps key/value traffic (refresh tokens, publishes) apart
// from the long-lived subscriptions held by the websocket hub.
type RedisClients struct {
	KV     *redis.Client
	PubSub *redis.Client
}

func NewRedisClients(redisURL string) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kvClient := redis.NewClient(opt)
	if err := kvClient.Ping(ctx).Err(); err != nil {
		kvClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (kv): %w", err)
	}

	// Separate connection pool for subscriptions
	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		kvClient.Close()
		pubsubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		KV:     kvClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.KV.Close()
	r.PubSub.Close()
}
