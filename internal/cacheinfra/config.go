package cacheinfra

import (
	"errors"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Tier types understood by NewTier.
const (
	TypeSturdyc = "sturdyc"
	TypeLRU     = "lru"
	TypeRedis   = "redis"
)

// Config holds the configuration for the sturdyc tier.
// It encapsulates the core sturdyc options needed for cache initialization.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int `yaml:"capacity"`

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int `yaml:"num_shards"`

	// TTL is the default time-to-live for cached entries.
	TTL time.Duration `yaml:"ttl"`

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int `yaml:"eviction_percentage"`

	// MissingRecordStorage keeps negative entries as sturdyc missing records
	// instead of Tombstone values.
	MissingRecordStorage bool `yaml:"missing_record_storage"`

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration `yaml:"eviction_interval"`
}

// LRUConfig configures a bounded in-process tier.
type LRUConfig struct {
	Size int `yaml:"size"`
}

// RedisConfig configures a remote tier backed by redis.
// Addrs with more than one entry yields a cluster client.
type RedisConfig struct {
	Addrs     []string      `yaml:"addrs"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// TierConfig describes one named tier.
type TierConfig struct {
	Name    string       `yaml:"name"`
	Type    string       `yaml:"type"`
	Sturdyc *Config      `yaml:"sturdyc"`
	LRU     *LRUConfig   `yaml:"lru"`
	Redis   *RedisConfig `yaml:"redis"`
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:             10000,
		NumShards:            256,
		TTL:                  5 * time.Minute,
		EvictionPercentage:   10,
		MissingRecordStorage: true,
	}
}

// DefaultLRUConfig returns the LRU tier defaults.
func DefaultLRUConfig() LRUConfig {
	return LRUConfig{Size: 1024}
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	positive := validation.Required.Error("must be greater than 0")
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, positive, validation.Min(1).Error("must be greater than 0")),
		validation.Field(&c.NumShards, positive, validation.Min(1).Error("must be greater than 0")),
		validation.Field(&c.TTL, positive, validation.Min(time.Nanosecond).Error("must be greater than 0")),
		validation.Field(&c.EvictionPercentage,
			validation.Required.Error("must be between 1 and 100"),
			validation.Min(1).Error("must be between 1 and 100"),
			validation.Max(100).Error("must be between 1 and 100"),
		),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0)).Error("must be non-negative")),
	)
	return firstConfigError("", err)
}

// Validate checks the LRU tier settings.
func (c LRUConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Size, validation.Required.Error("must be greater than 0"), validation.Min(1).Error("must be greater than 0")),
	)
	return firstConfigError("", err)
}

// Validate checks the redis tier settings.
func (c RedisConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Addrs, validation.Required.Error("at least one address is required")),
		validation.Field(&c.DB, validation.Min(0).Error("must be non-negative")),
		validation.Field(&c.TTL, validation.Min(time.Duration(0)).Error("must be non-negative")),
	)
	return firstConfigError("", err)
}

// Validate checks that exactly the block matching Type is usable.
func (c TierConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required.Error("cannot be empty")),
		validation.Field(&c.Type, validation.Required.Error("cannot be empty"), validation.In(TypeSturdyc, TypeLRU, TypeRedis).Error("must be one of sturdyc, lru, redis")),
	)
	if err != nil {
		return firstConfigError("", err)
	}

	switch c.Type {
	case TypeSturdyc:
		if c.Sturdyc != nil {
			return prefixed("Sturdyc.", c.Sturdyc.Validate())
		}
	case TypeLRU:
		if c.LRU != nil {
			return prefixed("LRU.", c.LRU.Validate())
		}
	case TypeRedis:
		if c.Redis == nil {
			return &ConfigError{Field: "Redis", Message: "is required for redis tiers"}
		}
		return prefixed("Redis.", c.Redis.Validate())
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// firstConfigError reduces ozzo's field map to the first failing field in
// name order so callers always see the same error for the same input.
func firstConfigError(prefix string, err error) error {
	if err == nil {
		return nil
	}

	var fields validation.Errors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return &ConfigError{Field: prefix, Message: err.Error()}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	first := names[0]
	return &ConfigError{Field: prefix + first, Message: fields[first].Error()}
}

func prefixed(prefix string, err error) error {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return &ConfigError{Field: prefix + cfgErr.Field, Message: cfgErr.Message}
	}
	return err
}
