package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
	logger    *log.Logger
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration, keyPrefix string, logger *log.Logger) (*RedisCache, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = "autoflow:nodecache"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisCache{client: client, ttl: ttl, keyPrefix: keyPrefix, logger: logger}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (map[string]json.RawMessage, bool) {
	data, err := c.client.Get(ctx, c.keyPrefix+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Printf("node cache get: %v", err)
		return nil, false
	}
	var outputs map[string]json.RawMessage
	if err := json.Unmarshal(data, &outputs); err != nil {
		c.logger.Printf("node cache decode: %v", err)
		return nil, false
	}
	return outputs, true
}

func (c *RedisCache) Set(ctx context.Context, key string, outputs map[string]json.RawMessage) {
	data, err := json.Marshal(outputs)
	if err != nil {
		c.logger.Printf("node cache encode: %v", err)
		return
	}
	if err := c.client.Set(ctx, c.keyPrefix+":"+key, data, c.ttl).Err(); err != nil {
		c.logger.Printf("node cache set: %v", err)
	}
}
