package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/ryosukesatoh/feed-digest/internal/pipeline"
)

// redisCommands is the subset of *redis.Client the publisher uses.
type redisCommands interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
	Close() error
}

// RedisPublisher announces each digest on a pub/sub channel and keeps a
// bounded history list. An empty channel or list key disables that half.
type RedisPublisher struct {
	client  redisCommands
	channel string
	listKey string
	keep    int64
}

func NewRedisPublisher(addr, password string, db int, channel, listKey string, keep int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return newRedisPublisher(client, channel, listKey, keep)
}

func newRedisPublisher(client redisCommands, channel, listKey string, keep int64) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		listKey: listKey,
		keep:    keep,
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, result *pipeline.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal digest: %w", err)
	}

	if p.channel != "" {
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			return fmt.Errorf("redis: failed to publish to %s: %w", p.channel, err)
		}
	}

	if p.listKey != "" {
		if err := p.client.LPush(ctx, p.listKey, payload).Err(); err != nil {
			return fmt.Errorf("redis: failed to push to %s: %w", p.listKey, err)
		}
		if p.keep > 0 {
			if err := p.client.LTrim(ctx, p.listKey, 0, p.keep-1).Err(); err != nil {
				return fmt.Errorf("redis: failed to trim %s: %w", p.listKey, err)
			}
		}
	}
	return nil
}

// Close releases the connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
