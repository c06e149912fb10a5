package batchcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-collection-cache/cache"
)

// CacheResolver picks the tiers for an operation at call time.
type CacheResolver interface {
	ResolveCaches(ctx context.Context, operation string, cacheNames []string) ([]cache.Tier, error)
}

// ResolverFunc adapts a function to CacheResolver.
type ResolverFunc func(ctx context.Context, operation string, cacheNames []string) ([]cache.Tier, error)

func (f ResolverFunc) ResolveCaches(ctx context.Context, operation string, cacheNames []string) ([]cache.Tier, error) {
	return f(ctx, operation, cacheNames)
}

// Defaults fills in operation fields left empty, like a class level cache
// configuration shared by a group of operations.
type Defaults struct {
	CacheNames    []string
	CacheManager  string
	CacheResolver string
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	manager     cache.Manager
	managers    map[string]cache.Manager
	resolvers   map[string]CacheResolver
	defaults    Defaults
	logger      log.Logger
	metrics     *Metrics
	strictReads bool
	serializer  cache.KeySerializer
}

// WithManager sets the manager used by operations that name no manager
// or resolver.
func WithManager(m cache.Manager) Option {
	return func(o *options) { o.manager = m }
}

// WithNamedManager registers a manager operations can reference by name.
func WithNamedManager(name string, m cache.Manager) Option {
	return func(o *options) { o.managers[name] = m }
}

// WithResolver registers a resolver operations can reference by name.
func WithResolver(name string, r CacheResolver) Option {
	return func(o *options) { o.resolvers[name] = r }
}

func WithDefaults(d Defaults) Option {
	return func(o *options) { o.defaults = d }
}

func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithKeySerializer sets the serializer behind the built-in key strategy
// used by operations that set no key.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(o *options) { o.serializer = s }
}

// WithStrictReads makes tier read failures fail the call. By default a
// failed read counts as a miss and the next tier is tried.
func WithStrictReads(strict bool) Option {
	return func(o *options) { o.strictReads = strict }
}

// BatchFunc loads the values for ids from the backing source.
type BatchFunc[K comparable] func(ctx context.Context, ids Collection[K]) (any, error)

// BulkFunc loads everything from the backing source.
type BulkFunc func(ctx context.Context) (any, error)

// Engine runs registered operations against their cache tiers. Strategy
// registration must happen before the operations that depend on it are
// registered, since strategies are bound at registration time.
type Engine[K comparable, V any] struct {
	opts          options
	keys          []KeyStrategy[K]
	materializers []Materializer[K]
	shapes        []ShapeConverter[K, V]
	bindings      *xsync.MapOf[string, *binding[K, V]]
	logger        log.Logger
	metrics       *Metrics
}

type binding[K comparable, V any] struct {
	method       string
	op           *Operation[K, V]
	tiers        []cache.Tier
	resolver     CacheResolver
	materializer Materializer[K]
	shape        ShapeConverter[K, V]
	ambiguous    bool
}

func NewEngine[K comparable, V any](opts ...Option) (*Engine[K, V], error) {
	o := options{
		managers:   map[string]cache.Manager{},
		resolvers:  map[string]CacheResolver{},
		logger:     log.NewNopLogger(),
		serializer: cache.NewDefaultKeySerializer(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	err := validation.Errors{
		"defaults.cacheResolver": validation.Validate(o.defaults.CacheResolver,
			validation.Empty.When(o.defaults.CacheManager != "").Error("cannot be combined with a cache manager")),
		"defaults.cacheNames": validation.Validate(o.defaults.CacheNames,
			validation.Each(validation.Required.Error("cache name cannot be empty"))),
	}.Filter()
	if err != nil {
		return nil, configError("engine", err)
	}

	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	if o.serializer == nil {
		o.serializer = cache.NewDefaultKeySerializer()
	}

	return &Engine[K, V]{
		opts:          o,
		keys:          []KeyStrategy[K]{NewKeyStrategy(DefaultOrder, SerializedKey[K](o.serializer, ""))},
		materializers: builtinMaterializers[K](),
		shapes:        builtinShapes[K, V](),
		bindings:      xsync.NewMapOf[string, *binding[K, V]](),
		logger:        log.With(o.logger, "component", "batchcache"),
		metrics:       o.metrics,
	}, nil
}

// RegisterMaterializer adds a container strategy.
func (e *Engine[K, V]) RegisterMaterializer(m Materializer[K]) {
	e.materializers = append(e.materializers, m)
}

// RegisterShape adds a result shape strategy.
func (e *Engine[K, V]) RegisterShape(c ShapeConverter[K, V]) {
	e.shapes = append(e.shapes, c)
}

// RegisterKey adds a key strategy for operations registered afterwards that
// set no key.
func (e *Engine[K, V]) RegisterKey(k KeyStrategy[K]) {
	e.keys = append(e.keys, k)
}

// Metrics returns the engine's collectors.
func (e *Engine[K, V]) Metrics() *Metrics {
	return e.metrics
}

// Register binds op to method. Registering a second operation for the same
// method fails and leaves the method ambiguous, so calls to it fail too.
func (e *Engine[K, V]) Register(method string, op *Operation[K, V]) error {
	if op == nil {
		return configError(method, validation.Errors{"operation": validation.ErrRequired})
	}

	b, err := e.bind(method, op)
	if err != nil {
		level.Warn(e.logger).Log("msg", "operation registration failed", "method", method, "err", err)
		return err
	}

	var duplicate bool
	e.bindings.Compute(method, func(old *binding[K, V], loaded bool) (*binding[K, V], bool) {
		if loaded {
			duplicate = true
			return &binding[K, V]{method: method, ambiguous: true}, false
		}
		return b, false
	})
	if duplicate {
		return ambiguous(method)
	}

	level.Debug(e.logger).Log("msg", "operation registered", "method", method, "operation", b.op.name,
		"mode", b.op.mode, "caches", fmt.Sprint(b.op.cacheNames))
	return nil
}

// Operation returns the bound descriptor for method, with defaults applied.
func (e *Engine[K, V]) Operation(method string) (*Operation[K, V], error) {
	b, err := e.lookup(method)
	if err != nil {
		return nil, err
	}
	return b.op, nil
}

func (e *Engine[K, V]) bind(method string, op *Operation[K, V]) (*binding[K, V], error) {
	op = op.withDefaults(method, e.opts.defaults, resolveKey(e.keys, method))

	err := validation.Errors{
		"cacheNames": validation.Validate(op.cacheNames, validation.Required.Error("at least one cache name is required")),
		"cacheManager": validation.Validate(op.cacheManager, validation.By(func(any) error {
			if _, ok := e.opts.managers[op.cacheManager]; op.cacheManager != "" && !ok {
				return fmt.Errorf("unknown cache manager %q", op.cacheManager)
			}
			return nil
		})),
		"cacheResolver": validation.Validate(op.cacheResolver, validation.By(func(any) error {
			if _, ok := e.opts.resolvers[op.cacheResolver]; op.cacheResolver != "" && !ok {
				return fmt.Errorf("unknown cache resolver %q", op.cacheResolver)
			}
			return nil
		})),
	}.Filter()
	if err != nil {
		return nil, configError(method, err)
	}

	b := &binding[K, V]{method: method, op: op, shape: resolveShape(e.shapes, op.shape)}

	if op.mode == PerIdentifier {
		if b.materializer, err = resolveMaterializer(e.materializers, method, op.container); err != nil {
			return nil, err
		}
	}

	switch {
	case op.cacheResolver != "":
		b.resolver = e.opts.resolvers[op.cacheResolver]
	case op.cacheManager != "":
		b.tiers, err = cache.ResolveTiers(e.opts.managers[op.cacheManager], op.cacheNames)
	case e.opts.manager != nil:
		b.tiers, err = cache.ResolveTiers(e.opts.manager, op.cacheNames)
	default:
		err = configError(method, validation.Errors{"cacheManager": fmt.Errorf("no cache manager or resolver available")})
	}
	if errors.Is(err, cache.ErrUnknownCache) {
		err = configError(method, err)
	}
	if err != nil {
		return nil, annotate(err, op.name)
	}

	return b, nil
}

func (e *Engine[K, V]) lookup(method string) (*binding[K, V], error) {
	b, ok := e.bindings.Load(method)
	if !ok {
		return nil, newError(ErrOperationNotFound, goerrors.CategoryNotFound,
			fmt.Sprintf("no operation registered for %q", method),
			map[string]any{"method": method})
	}
	if b.ambiguous {
		return nil, ambiguous(method)
	}
	return b, nil
}

func (e *Engine[K, V]) tiersFor(ctx context.Context, b *binding[K, V]) ([]cache.Tier, error) {
	if b.resolver == nil {
		return b.tiers, nil
	}
	tiers, err := b.resolver.ResolveCaches(ctx, b.op.name, b.op.CacheNames())
	if err != nil {
		return nil, annotate(err, b.op.name)
	}
	return tiers, nil
}

func ambiguous(method string) error {
	return newError(ErrAmbiguousOperation, goerrors.CategoryConflict,
		fmt.Sprintf("more than one operation registered for %q", method),
		map[string]any{"method": method})
}
