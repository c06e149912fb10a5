package cacheinfra

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisTier stores msgpack envelopes in redis. Reads return Encoded values
// or Tombstone; the caller decodes into its own value type.
type RedisTier struct {
	name   string
	client redis.UniversalClient
	prefix string
	cfg    RedisConfig
}

// NewRedisClient builds a universal client from cfg.
func NewRedisClient(cfg RedisConfig) redis.UniversalClient {
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewRedisTier wraps client. When client is nil one is created from cfg.
func NewRedisTier(name string, cfg RedisConfig, client redis.UniversalClient) (*RedisTier, error) {
	if client == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		client = NewRedisClient(cfg)
	}

	return &RedisTier{
		name:   name,
		client: client,
		prefix: cfg.KeyPrefix,
		cfg:    cfg,
	}, nil
}

func (r *RedisTier) Name() string { return r.name }

func (r *RedisTier) Get(ctx context.Context, key string) (any, bool, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	v, err := decodeValue(data)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (r *RedisTier) Put(ctx context.Context, key string, value any) error {
	data, err := encodeValue(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, data, r.cfg.TTL).Err()
}

func (r *RedisTier) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// DeleteByPrefix scans for matching keys and removes them in batches.
func (r *RedisTier) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, r.prefix+prefix+"*", 100).Iterator()

	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisTier) Close() error {
	return r.client.Close()
}
