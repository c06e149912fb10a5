package cacheinfra

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}
	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}
	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}
	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}
	if !cfg.MissingRecordStorage {
		t.Error("expected MissingRecordStorage to be enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mut func(*Config)) Config {
		cfg := Config{
			Capacity:           1000,
			NumShards:          256,
			TTL:                5 * time.Minute,
			EvictionPercentage: 10,
		}
		mut(&cfg)
		return cfg
	}

	tests := []struct {
		name      string
		cfg       Config
		wantField string
		wantMsg   string
	}{
		{name: "valid default config", cfg: DefaultConfig()},
		{
			name:      "zero capacity",
			cfg:       valid(func(c *Config) { c.Capacity = 0 }),
			wantField: "Capacity",
			wantMsg:   "must be greater than 0",
		},
		{
			name:      "negative shards",
			cfg:       valid(func(c *Config) { c.NumShards = -4 }),
			wantField: "NumShards",
			wantMsg:   "must be greater than 0",
		},
		{
			name:      "zero TTL",
			cfg:       valid(func(c *Config) { c.TTL = 0 }),
			wantField: "TTL",
			wantMsg:   "must be greater than 0",
		},
		{
			name:      "eviction percentage too low",
			cfg:       valid(func(c *Config) { c.EvictionPercentage = 0 }),
			wantField: "EvictionPercentage",
			wantMsg:   "must be between 1 and 100",
		},
		{
			name:      "eviction percentage too high",
			cfg:       valid(func(c *Config) { c.EvictionPercentage = 101 }),
			wantField: "EvictionPercentage",
			wantMsg:   "must be between 1 and 100",
		},
		{
			name:      "negative eviction interval",
			cfg:       valid(func(c *Config) { c.EvictionInterval = -time.Second }),
			wantField: "EvictionInterval",
			wantMsg:   "must be non-negative",
		},
		{
			name: "several failures report the first field by name",
			cfg: valid(func(c *Config) {
				c.TTL = 0
				c.Capacity = 0
			}),
			wantField: "Capacity",
			wantMsg:   "must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected no validation error but got: %v", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, cfgErr.Field)
			}
			if cfgErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, cfgErr.Message)
			}
		})
	}
}

func TestTierConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       TierConfig
		wantField string
	}{
		{name: "sturdyc without block", cfg: TierConfig{Name: "local", Type: TypeSturdyc}},
		{name: "lru with block", cfg: TierConfig{Name: "hot", Type: TypeLRU, LRU: &LRUConfig{Size: 10}}},
		{
			name: "redis",
			cfg:  TierConfig{Name: "shared", Type: TypeRedis, Redis: &RedisConfig{Addrs: []string{"localhost:6379"}}},
		},
		{name: "missing name", cfg: TierConfig{Type: TypeLRU}, wantField: "Name"},
		{name: "missing type", cfg: TierConfig{Name: "x"}, wantField: "Type"},
		{name: "unknown type", cfg: TierConfig{Name: "x", Type: "memcached"}, wantField: "Type"},
		{name: "redis without block", cfg: TierConfig{Name: "x", Type: TypeRedis}, wantField: "Redis"},
		{
			name:      "redis without addrs",
			cfg:       TierConfig{Name: "x", Type: TypeRedis, Redis: &RedisConfig{}},
			wantField: "Redis.Addrs",
		},
		{
			name:      "lru zero size",
			cfg:       TierConfig{Name: "x", Type: TypeLRU, LRU: &LRUConfig{}},
			wantField: "LRU.Size",
		},
		{
			name:      "sturdyc bad block",
			cfg:       TierConfig{Name: "x", Type: TypeSturdyc, Sturdyc: &Config{}},
			wantField: "Sturdyc.Capacity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %T (%v)", err, err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q (%s)", tt.wantField, cfgErr.Field, cfgErr.Message)
			}
		})
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "TestField", Message: "test message"}

	expected := "config error in field TestField: test message"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestNewTier(t *testing.T) {
	tests := []struct {
		name     string
		cfg      TierConfig
		wantType string
		wantErr  string
	}{
		{name: "sturdyc defaults", cfg: TierConfig{Name: "local", Type: TypeSturdyc}, wantType: "*cacheinfra.SturdycTier"},
		{name: "lru defaults", cfg: TierConfig{Name: "hot", Type: TypeLRU}, wantType: "*cacheinfra.LRUTier"},
		{name: "invalid", cfg: TierConfig{Name: "bad", Type: "nope"}, wantErr: "Type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewTier(tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(store); got != tt.wantType {
				t.Errorf("expected %s, got %s", tt.wantType, got)
			}
			if store.Name() != tt.cfg.Name {
				t.Errorf("expected name %q, got %q", tt.cfg.Name, store.Name())
			}
		})
	}
}
