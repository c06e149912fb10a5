package repositorycache

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-collection-cache/batchcache"
	"github.com/goliatone/go-collection-cache/cache"
)

// Store is the part of a go-repository-bun repository the batch cache needs.
// Any repository.Repository[T] satisfies it.
type Store[T any] interface {
	List(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, int, error)
	Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error)
	Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error)
	Delete(ctx context.Context, record T) error
	DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error
}

var _ Store[any] = (repository.Repository[any])(nil)

// Method names registered on the engine, relative to the key prefix.
const (
	methodByIDs = "by_ids"
	methodAll   = "all"
)

// recordsShape is the result shape of All: a plain []T keyed by ID field.
const recordsShape batchcache.ShapeKind = "records"

// BatchRepository loads records by ID through the batch cache and evicts
// their keys on writes.
type BatchRepository[T any] struct {
	store      Store[T]
	engine     *batchcache.Engine[string, T]
	tiers      []cache.Tier
	key        batchcache.KeyDeriver[string]
	serializer cache.KeySerializer
	prefix     string
	idsIn      func(ids []string) repository.SelectCriteria
	logger     log.Logger
}

// Option configures a BatchRepository.
type Option func(*settings)

type settings struct {
	cacheNames    []string
	prefix        string
	idColumn      string
	idCriteria    func(ids []string) repository.SelectCriteria
	putNull       bool
	serializer    cache.KeySerializer
	logger        log.Logger
	engineOptions []batchcache.Option
}

// WithCacheNames selects the tiers, in probe order. Defaults to every tier
// the manager knows, sorted by name.
func WithCacheNames(names ...string) Option {
	return func(s *settings) { s.cacheNames = names }
}

// WithKeyPrefix overrides the key namespace, which defaults to the snake
// cased record type name.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) { s.prefix = prefix }
}

// WithIDColumn sets the column matched by GetByIDs. Defaults to "id".
func WithIDColumn(column string) Option {
	return func(s *settings) { s.idColumn = column }
}

// WithIDCriteria replaces the criteria GetByIDs uses to load missing IDs.
func WithIDCriteria(fn func(ids []string) repository.SelectCriteria) Option {
	return func(s *settings) { s.idCriteria = fn }
}

// WithNegativeCaching stores negative entries for IDs the repository does
// not have.
func WithNegativeCaching(enabled bool) Option {
	return func(s *settings) { s.putNull = enabled }
}

// WithKeySerializer renders record keys and the eviction prefix with s.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(st *settings) { st.serializer = s }
}

func WithLogger(l log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithEngineOptions passes options through to the underlying engine.
func WithEngineOptions(opts ...batchcache.Option) Option {
	return func(s *settings) { s.engineOptions = append(s.engineOptions, opts...) }
}

// New wraps store with a batch cache over the tiers of manager.
func New[T any](store Store[T], manager cache.Manager, opts ...Option) (*BatchRepository[T], error) {
	s := settings{
		prefix:   typeName[T](),
		idColumn: "id",
		logger:   log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.serializer == nil {
		s.serializer = cache.NewDefaultKeySerializer()
	}
	if len(s.cacheNames) == 0 {
		s.cacheNames = manager.CacheNames()
	}
	if s.idCriteria == nil {
		column := s.idColumn
		s.idCriteria = func(ids []string) repository.SelectCriteria { return idsIn(column, ids) }
	}

	tiers, err := cache.ResolveTiers(manager, s.cacheNames)
	if err != nil {
		return nil, err
	}

	engineOpts := append([]batchcache.Option{
		batchcache.WithManager(manager),
		batchcache.WithLogger(s.logger),
		batchcache.WithKeySerializer(s.serializer),
	}, s.engineOptions...)
	engine, err := batchcache.NewEngine[string, T](engineOpts...)
	if err != nil {
		return nil, err
	}
	engine.RegisterShape(recordShape[T]{})

	r := &BatchRepository[T]{
		store:      store,
		engine:     engine,
		tiers:      tiers,
		key:        batchcache.SerializedKey[string](s.serializer, s.prefix),
		serializer: s.serializer,
		prefix:     s.prefix,
		idsIn:      s.idCriteria,
		logger:     log.With(s.logger, "repository", s.prefix),
	}

	ops := map[string]batchcache.OperationSpec[string, T]{
		methodByIDs: {
			Name:       s.prefix + "." + methodByIDs,
			CacheNames: s.cacheNames,
			Key:        r.key,
			Container:  batchcache.KindOrderedSet,
			Condition:  func(ctx context.Context, _ []string) bool { return !bypassed(ctx) },
			PutNull:    s.putNull,
		},
		methodAll: {
			Name:       s.prefix + "." + methodAll,
			CacheNames: s.cacheNames,
			Key:        r.key,
			Mode:       batchcache.BulkAll,
			Shape:      recordsShape,
		},
	}
	for method, spec := range ops {
		op, err := batchcache.NewOperation(spec)
		if err != nil {
			return nil, err
		}
		if err := engine.Register(method, op); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Engine exposes the underlying engine, mostly for its metrics.
func (r *BatchRepository[T]) Engine() *batchcache.Engine[string, T] {
	return r.engine
}

// GetByIDs returns the records for ids keyed by ID. Cached records are not
// read again; the rest are loaded with a single IN query. Unknown IDs are
// absent from the result.
func (r *BatchRepository[T]) GetByIDs(ctx context.Context, ids []string) (map[string]T, error) {
	return batchcache.Fetch(ctx, r.engine, methodByIDs, ids, func(ctx context.Context, missing batchcache.Collection[string]) (map[string]T, error) {
		records, _, err := r.store.List(ctx, r.idsIn(missing.Slice()))
		if err != nil {
			return nil, err
		}

		out := make(map[string]T, len(records))
		for _, record := range records {
			id, err := extractID(record)
			if err != nil {
				return nil, err
			}
			out[id] = record
		}
		return out, nil
	})
}

// All loads every record and primes the per ID cache with them. A context
// marked with WithCacheBypass reads the repository without writing.
func (r *BatchRepository[T]) All(ctx context.Context, criteria ...repository.SelectCriteria) ([]T, error) {
	load := func(ctx context.Context) ([]T, error) {
		records, _, err := r.store.List(ctx, criteria...)
		return records, err
	}
	if bypassed(ctx) {
		return load(ctx)
	}
	return batchcache.FetchAll(ctx, r.engine, methodAll, load)
}

func (r *BatchRepository[T]) Create(ctx context.Context, record T, criteria ...repository.InsertCriteria) (T, error) {
	result, err := r.store.Create(ctx, record, criteria...)
	if err != nil {
		return result, err
	}
	// a negative entry may exist for the new ID
	return result, r.evictRecord(ctx, result)
}

func (r *BatchRepository[T]) Update(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.store.Update(ctx, record, criteria...)
	if err != nil {
		return result, err
	}
	return result, r.evictRecord(ctx, result)
}

func (r *BatchRepository[T]) Upsert(ctx context.Context, record T, criteria ...repository.UpdateCriteria) (T, error) {
	result, err := r.store.Upsert(ctx, record, criteria...)
	if err != nil {
		return result, err
	}
	return result, r.evictRecord(ctx, result)
}

func (r *BatchRepository[T]) Delete(ctx context.Context, record T) error {
	if err := r.store.Delete(ctx, record); err != nil {
		return err
	}
	return r.evictRecord(ctx, record)
}

// DeleteMany drops every cached record since the affected IDs are unknown.
func (r *BatchRepository[T]) DeleteMany(ctx context.Context, criteria ...repository.DeleteCriteria) error {
	if err := r.store.DeleteMany(ctx, criteria...); err != nil {
		return err
	}
	return r.InvalidateAll(ctx)
}

// Invalidate evicts the given IDs from every tier.
func (r *BatchRepository[T]) Invalidate(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		key, err := r.key.DeriveKey(id)
		if err != nil {
			return err
		}
		if err := cache.Evict(ctx, r.tiers, key); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateAll drops every key under the repository prefix. It fails with
// cache.ErrPrefixEvictionUnsupported when a tier cannot drop a key range,
// after evicting the tiers that can.
func (r *BatchRepository[T]) InvalidateAll(ctx context.Context) error {
	if err := cache.EvictPrefix(ctx, r.tiers, r.namespace()); err != nil {
		if errors.Is(err, cache.ErrPrefixEvictionUnsupported) {
			level.Warn(r.logger).Log("msg", "tier cannot evict by prefix, cached records may be stale", "err", err)
		} else {
			level.Error(r.logger).Log("msg", "prefix eviction failed", "err", err)
		}
		return err
	}
	level.Debug(r.logger).Log("msg", "evicted all cached records")
	return nil
}

// namespace is the key prefix shared by every record key.
func (r *BatchRepository[T]) namespace() string {
	return r.serializer.SerializeKey(r.prefix, "")
}

func (r *BatchRepository[T]) evictRecord(ctx context.Context, record T) error {
	id, err := extractID(record)
	if err != nil {
		level.Warn(r.logger).Log("msg", "cannot evict record without ID, dropping prefix", "err", err)
		return r.InvalidateAll(ctx)
	}
	if err := r.Invalidate(ctx, id); err != nil {
		level.Error(r.logger).Log("msg", "cache eviction failed", "id", id, "err", err)
		return err
	}
	return nil
}

// idsIn matches rows whose column is one of ids.
func idsIn(column string, ids []string) repository.SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? IN (?)", bun.Ident(column), bun.In(ids))
	}
}

// extractID reads the ID field of record using reflection.
func extractID(record any) (string, error) {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return "", goerrors.New("record is nil", goerrors.CategoryBadInput)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", goerrors.New(fmt.Sprintf("record of type %s is not a struct", v.Type()), goerrors.CategoryBadInput)
	}

	for _, name := range []string{"ID", "Id", "id"} {
		field := v.FieldByName(name)
		if !field.IsValid() || !field.CanInterface() {
			continue
		}
		id := fmt.Sprintf("%v", field.Interface())
		if id == "" {
			return "", goerrors.New("record ID is empty", goerrors.CategoryBadInput)
		}
		return id, nil
	}
	return "", goerrors.New(fmt.Sprintf("no ID field found in %s", v.Type()), goerrors.CategoryBadInput).
		WithMetadata(map[string]any{"type": v.Type().String()})
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := toSnake(t.Name()); name != "" {
		return name
	}
	return "record"
}
