package di

import (
	"errors"
	"io"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-collection-cache/batchcache"
	"github.com/goliatone/go-collection-cache/cache"
	"github.com/goliatone/go-collection-cache/repositorycache"
)

// Container builds the cache tiers described by one cache.Config and hands
// them, with a shared logger and metrics, to engines and repositories.
type Container struct {
	config        cache.Config
	manager       *cache.StaticManager
	keySerializer cache.KeySerializer
	logger        log.Logger
	registry      *prometheus.Registry
	metrics       *batchcache.Metrics
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger passed to every engine and repository.
func WithLogger(l log.Logger) Option {
	return func(c *Container) { c.logger = l }
}

// WithKeySerializer replaces the serializer every engine and repository
// built by the container derives keys with.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(c *Container) {
		if s != nil {
			c.keySerializer = s
		}
	}
}

// WithRegistry registers the engine metrics with reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Container) { c.registry = reg }
}

// NewContainer validates config and builds its tiers.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	manager, err := cache.NewManager(config)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:        config,
		manager:       manager,
		keySerializer: cache.NewDefaultKeySerializer(),
		logger:        log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = prometheus.NewRegistry()
	}
	c.metrics = batchcache.NewMetrics(c.registry)

	return c, nil
}

// NewContainerWithDefaults builds a container with a single default tier.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

func (c *Container) Manager() cache.Manager {
	return c.manager
}

func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the configuration the container was built from.
func (c *Container) Config() cache.Config {
	return c.config
}

func (c *Container) Logger() log.Logger {
	return c.logger
}

// Registry returns the registry holding the engine metrics.
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Container) Metrics() *batchcache.Metrics {
	return c.metrics
}

// CacheNames returns the names operations use when they name none:
// DefaultCacheNames when set, otherwise every tier in declaration order.
func (c *Container) CacheNames() []string {
	if len(c.config.DefaultCacheNames) > 0 {
		return append([]string(nil), c.config.DefaultCacheNames...)
	}
	return c.config.TierNames()
}

// EngineOptions returns the options NewEngine applies before its own.
func (c *Container) EngineOptions() []batchcache.Option {
	return []batchcache.Option{
		batchcache.WithManager(c.manager),
		batchcache.WithLogger(c.logger),
		batchcache.WithMetrics(c.metrics),
		batchcache.WithStrictReads(c.config.StrictReads),
		batchcache.WithKeySerializer(c.keySerializer),
		batchcache.WithDefaults(batchcache.Defaults{CacheNames: c.CacheNames()}),
	}
}

// Close releases tiers that hold connections.
func (c *Container) Close() error {
	var errs []error
	for _, name := range c.manager.CacheNames() {
		tier, _ := c.manager.GetCache(name)
		if closer, ok := tier.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// NewEngine creates an engine wired to the container's tiers. Since Go
// methods cannot have type parameters, this is a package-level function.
func NewEngine[K comparable, V any](c *Container, opts ...batchcache.Option) (*batchcache.Engine[K, V], error) {
	return batchcache.NewEngine[K, V](append(c.EngineOptions(), opts...)...)
}

// NewBatchRepository wraps store with a batch cache over the container's
// default cache names.
// Example: NewBatchRepository[User](container, baseUserRepository)
func NewBatchRepository[T any](c *Container, store repositorycache.Store[T], opts ...repositorycache.Option) (*repositorycache.BatchRepository[T], error) {
	defaults := []repositorycache.Option{
		repositorycache.WithCacheNames(c.CacheNames()...),
		repositorycache.WithLogger(c.logger),
		repositorycache.WithKeySerializer(c.keySerializer),
		repositorycache.WithEngineOptions(
			batchcache.WithMetrics(c.metrics),
			batchcache.WithStrictReads(c.config.StrictReads),
		),
	}
	return repositorycache.New(store, c.manager, append(defaults, opts...)...)
}
