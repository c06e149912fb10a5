package cache

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-collection-cache/internal/cacheinfra"
)

// DefaultTierName is used for the implicit tier built when Config lists none.
const DefaultTierName = "default"

// Tier type names accepted in TierConfig.Type.
const (
	TierSturdyc = cacheinfra.TypeSturdyc
	TierLRU     = cacheinfra.TypeLRU
	TierRedis   = cacheinfra.TypeRedis
)

type (
	// TierConfig describes one named tier.
	TierConfig = cacheinfra.TierConfig
	// LRUConfig configures a bounded in-process tier.
	LRUConfig = cacheinfra.LRUConfig
	// RedisConfig configures a remote redis tier.
	RedisConfig = cacheinfra.RedisConfig
)

// Config exposes cache configuration options for consumers of the cache package.
// The top level sturdyc fields configure the default tier used when Tiers is empty.
type Config struct {
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`

	// MissingRecordStorage keeps negative entries on sturdyc tiers as
	// missing records instead of plain values.
	MissingRecordStorage bool `yaml:"missing_record_storage"`

	// Tiers lists named tiers. Operations reference them by name.
	Tiers []TierConfig `yaml:"tiers"`

	// DefaultCacheNames is applied to operations that do not name caches.
	DefaultCacheNames []string `yaml:"default_cache_names"`

	// StrictReads makes tier read failures fail the call instead of
	// counting as a miss.
	StrictReads bool `yaml:"strict_reads"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse cache config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the default tier settings and every listed tier.
func (c Config) Validate() error {
	if err := c.toInternal().Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(c.Tiers))
	for i, tier := range c.Tiers {
		if err := tier.Validate(); err != nil {
			return fmt.Errorf("tiers[%d]: %w", i, err)
		}
		if _, dup := seen[tier.Name]; dup {
			return &cacheinfra.ConfigError{Field: fmt.Sprintf("Tiers[%d].Name", i), Message: fmt.Sprintf("duplicate tier %q", tier.Name)}
		}
		seen[tier.Name] = struct{}{}
	}

	return validation.Validate(c.DefaultCacheNames, validation.Each(validation.Required.Error("cache name cannot be empty")))
}

// NewManager builds every configured tier. With no Tiers a single sturdyc
// tier named DefaultTierName is built from the top level fields.
func NewManager(cfg Config) (*StaticManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(cfg.Tiers) == 0 {
		tier, err := cacheinfra.NewSturdycTier(DefaultTierName, cfg.toInternal())
		if err != nil {
			return nil, err
		}
		return NewStaticManager(tier), nil
	}

	tiers := make([]Tier, 0, len(cfg.Tiers))
	for _, tc := range cfg.Tiers {
		tier, err := cacheinfra.NewTier(tc)
		if err != nil {
			return nil, fmt.Errorf("tier %s: %w", tc.Name, err)
		}
		tiers = append(tiers, tier)
	}
	return NewStaticManager(tiers...), nil
}

// TierNames returns the configured tier names in declaration order.
func (c Config) TierNames() []string {
	if len(c.Tiers) == 0 {
		return []string{DefaultTierName}
	}
	names := make([]string, len(c.Tiers))
	for i, t := range c.Tiers {
		names[i] = t.Name
	}
	return names
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:             c.Capacity,
		NumShards:            c.NumShards,
		TTL:                  c.TTL,
		EvictionPercentage:   c.EvictionPercentage,
		MissingRecordStorage: c.MissingRecordStorage,
		EvictionInterval:     c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:             cfg.Capacity,
		NumShards:            cfg.NumShards,
		TTL:                  cfg.TTL,
		EvictionPercentage:   cfg.EvictionPercentage,
		MissingRecordStorage: cfg.MissingRecordStorage,
		EvictionInterval:     cfg.EvictionInterval,
	}
}
