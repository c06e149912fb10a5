package batchcache

import (
	"context"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Mode selects how an operation talks to its source.
type Mode int

const (
	// PerIdentifier caches one entry per identifier and fetches only misses.
	PerIdentifier Mode = iota
	// BulkAll takes no identifiers and caches every pair the source returns.
	BulkAll
)

func (m Mode) String() string {
	switch m {
	case PerIdentifier:
		return "per_identifier"
	case BulkAll:
		return "bulk_all"
	}
	return "unknown"
}

// Condition decides, before any cache access, whether a call may use the
// cache at all. Returning false sends the call straight to the source.
type Condition[K comparable] func(ctx context.Context, ids []K) bool

// Unless decides, after the merge, whether to skip writing to the cache.
type Unless[K comparable, V any] func(ctx context.Context, view View[K, V]) bool

// OperationSpec is the input to NewOperation. Zero values mean "use the
// engine default" for CacheNames, Key, CacheManager and CacheResolver.
type OperationSpec[K comparable, V any] struct {
	Name          string
	CacheNames    []string
	Key           KeyDeriver[K]
	Mode          Mode
	Container     ContainerKind
	Shape         ShapeKind
	Condition     Condition[K]
	Unless        Unless[K, V]
	PutNull       bool
	CacheManager  string
	CacheResolver string
}

// Operation is an immutable, validated operation descriptor.
type Operation[K comparable, V any] struct {
	name          string
	cacheNames    []string
	key           KeyDeriver[K]
	mode          Mode
	container     ContainerKind
	shape         ShapeKind
	condition     Condition[K]
	unless        Unless[K, V]
	putNull       bool
	cacheManager  string
	cacheResolver string
}

// NewOperation validates spec and freezes it.
func NewOperation[K comparable, V any](spec OperationSpec[K, V]) (*Operation[K, V], error) {
	if err := spec.Validate(); err != nil {
		return nil, configError(spec.Name, err)
	}

	op := &Operation[K, V]{
		name:          spec.Name,
		cacheNames:    slices.Clone(spec.CacheNames),
		key:           spec.Key,
		mode:          spec.Mode,
		container:     spec.Container,
		shape:         spec.Shape,
		condition:     spec.Condition,
		unless:        spec.Unless,
		putNull:       spec.PutNull,
		cacheManager:  spec.CacheManager,
		cacheResolver: spec.CacheResolver,
	}
	if op.container == "" {
		op.container = KindSequence
	}
	if op.shape == "" {
		op.shape = ShapeMap
	}
	return op, nil
}

// MustOperation is NewOperation for static descriptors; it panics on error.
func MustOperation[K comparable, V any](spec OperationSpec[K, V]) *Operation[K, V] {
	op, err := NewOperation(spec)
	if err != nil {
		panic(err)
	}
	return op
}

// Validate reports descriptor rule violations as ozzo field errors.
func (s OperationSpec[K, V]) Validate() error {
	bulk := s.Mode == BulkAll
	return validation.Errors{
		"mode": validation.Validate(s.Mode,
			validation.In(PerIdentifier, BulkAll).Error("must be PerIdentifier or BulkAll")),
		"condition": validation.Validate(s.Condition != nil,
			validation.Empty.When(bulk).Error("cannot be used in bulk mode")),
		"putNull": validation.Validate(s.PutNull,
			validation.Empty.When(bulk).Error("cannot be used in bulk mode")),
		"cacheResolver": validation.Validate(s.CacheResolver,
			validation.Empty.When(s.CacheManager != "").Error("cannot be combined with a cache manager")),
		"cacheNames": validation.Validate(s.CacheNames,
			validation.Each(validation.Required.Error("cache name cannot be empty"))),
	}.Filter()
}

func (o *Operation[K, V]) Name() string             { return o.name }
func (o *Operation[K, V]) CacheNames() []string     { return slices.Clone(o.cacheNames) }
func (o *Operation[K, V]) Mode() Mode               { return o.mode }
func (o *Operation[K, V]) Container() ContainerKind { return o.container }
func (o *Operation[K, V]) Shape() ShapeKind         { return o.shape }
func (o *Operation[K, V]) PutNull() bool            { return o.putNull }
func (o *Operation[K, V]) CacheManager() string     { return o.cacheManager }
func (o *Operation[K, V]) CacheResolver() string    { return o.cacheResolver }

// withDefaults returns a copy with engine defaults filled in. The manager
// and resolver defaults only apply when the descriptor names neither.
func (o *Operation[K, V]) withDefaults(method string, d Defaults, key KeyDeriver[K]) *Operation[K, V] {
	out := *o
	out.cacheNames = slices.Clone(o.cacheNames)

	if out.name == "" {
		out.name = method
	}
	if len(out.cacheNames) == 0 {
		out.cacheNames = slices.Clone(d.CacheNames)
	}
	if out.key == nil {
		out.key = key
	}
	if out.cacheManager == "" && out.cacheResolver == "" {
		out.cacheManager = d.CacheManager
		out.cacheResolver = d.CacheResolver
	}
	return &out
}
