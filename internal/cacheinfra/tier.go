package cacheinfra

import (
	"context"
	"fmt"
)

// Store is the method set every tier in this package provides.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) (any, bool, error)
	Put(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

var (
	_ Store = (*SturdycTier)(nil)
	_ Store = (*LRUTier)(nil)
	_ Store = (*RedisTier)(nil)
)

// NewTier builds the tier described by cfg. Missing sturdyc or lru blocks
// fall back to their defaults.
func NewTier(cfg TierConfig) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case TypeSturdyc:
		sc := DefaultConfig()
		if cfg.Sturdyc != nil {
			sc = *cfg.Sturdyc
		}
		return NewSturdycTier(cfg.Name, sc)
	case TypeLRU:
		lc := DefaultLRUConfig()
		if cfg.LRU != nil {
			lc = *cfg.LRU
		}
		return NewLRUTier(cfg.Name, lc)
	case TypeRedis:
		return NewRedisTier(cfg.Name, *cfg.Redis, nil)
	}
	return nil, &ConfigError{Field: "Type", Message: fmt.Sprintf("unknown tier type %q", cfg.Type)}
}
