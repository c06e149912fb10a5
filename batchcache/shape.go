package batchcache

import (
	"fmt"
	"iter"
	"maps"

	goerrors "github.com/goliatone/go-errors"
)

// ShapeKind names the natural result shape of an operation.
type ShapeKind string

const (
	// ShapeMap results are map[K]V. It is the fallback shape.
	ShapeMap ShapeKind = "map"
	// ShapeList results are []V whose elements implement Keyed[K].
	ShapeList ShapeKind = "list"
)

// Keyed is implemented by entities that know their own cache identifier.
type Keyed[K comparable] interface {
	CacheKey() K
}

// Entry is one identifier and its value.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// View exposes any result shape as (identifier, value) pairs.
type View[K comparable, V any] interface {
	Len() int
	Contains(id K) bool
	// All yields fresh entries followed by cache hits.
	All() iter.Seq2[K, V]
	// Fresh yields only the entries produced by the source.
	Fresh() iter.Seq2[K, V]
	// Result projects the view back into the caller's shape.
	Result() any
}

// ShapeConverter adapts one result shape to View.
type ShapeConverter[K comparable, V any] interface {
	Handles(kind ShapeKind) bool
	Order() int
	FromBulk(result any) (View[K, V], error)
	FromPartial(result any, hits []Entry[K, V]) (View[K, V], error)
}

// MapShape converts map[K]V results.
type MapShape[K comparable, V any] struct{}

func (MapShape[K, V]) Handles(kind ShapeKind) bool { return kind == ShapeMap }
func (MapShape[K, V]) Order() int                  { return DefaultOrder }

func (s MapShape[K, V]) FromBulk(result any) (View[K, V], error) {
	fresh, err := s.assert(result)
	if err != nil {
		return nil, err
	}
	return &mapView[K, V]{fresh: fresh, merged: fresh}, nil
}

// FromPartial merges hits into a copy of result; the caller's map is not
// modified. A nil result is treated as empty.
func (s MapShape[K, V]) FromPartial(result any, hits []Entry[K, V]) (View[K, V], error) {
	fresh, err := s.assert(result)
	if err != nil {
		return nil, err
	}

	merged := make(map[K]V, len(fresh)+len(hits))
	maps.Copy(merged, fresh)
	for _, h := range hits {
		merged[h.Key] = h.Value
	}
	return &mapView[K, V]{fresh: fresh, merged: merged}, nil
}

func (MapShape[K, V]) assert(result any) (map[K]V, error) {
	if result == nil {
		return nil, nil
	}
	m, ok := result.(map[K]V)
	if !ok {
		return nil, shapeMismatch(string(ShapeMap), result)
	}
	return m, nil
}

type mapView[K comparable, V any] struct {
	fresh  map[K]V
	merged map[K]V
}

func (v *mapView[K, V]) Len() int { return len(v.merged) }

func (v *mapView[K, V]) Contains(id K) bool {
	_, ok := v.merged[id]
	return ok
}

func (v *mapView[K, V]) All() iter.Seq2[K, V]   { return maps.All(v.merged) }
func (v *mapView[K, V]) Fresh() iter.Seq2[K, V] { return maps.All(v.fresh) }

func (v *mapView[K, V]) Result() any {
	if v.merged == nil {
		return map[K]V{}
	}
	return v.merged
}

// ListShape converts []V results whose elements implement Keyed[K].
type ListShape[K comparable, V any] struct{}

func (ListShape[K, V]) Handles(kind ShapeKind) bool { return kind == ShapeList }
func (ListShape[K, V]) Order() int                  { return DefaultOrder }

func (s ListShape[K, V]) FromBulk(result any) (View[K, V], error) {
	return s.FromPartial(result, nil)
}

// FromPartial keys every fresh element up front, so a list with one
// element lacking CacheKey fails before anything is written.
func (s ListShape[K, V]) FromPartial(result any, hits []Entry[K, V]) (View[K, V], error) {
	var items []V
	if result != nil {
		var ok bool
		if items, ok = result.([]V); !ok {
			return nil, shapeMismatch(string(ShapeList), result)
		}
	}

	view := &listView[K, V]{
		fresh: make([]Entry[K, V], 0, len(items)),
		hits:  hits,
		index: make(map[K]struct{}, len(items)+len(hits)),
	}
	for i, item := range items {
		keyed, ok := any(item).(Keyed[K])
		if !ok {
			return nil, newError(ErrMissingKeyCapability, goerrors.CategoryBadInput,
				fmt.Sprintf("list element %d of type %T does not implement CacheKey", i, item),
				map[string]any{"index": i, "type": fmt.Sprintf("%T", item)})
		}
		id := keyed.CacheKey()
		view.fresh = append(view.fresh, Entry[K, V]{Key: id, Value: item})
		view.index[id] = struct{}{}
	}
	for _, h := range hits {
		view.index[h.Key] = struct{}{}
	}
	return view, nil
}

type listView[K comparable, V any] struct {
	fresh []Entry[K, V]
	hits  []Entry[K, V]
	index map[K]struct{}
}

func (v *listView[K, V]) Len() int { return len(v.fresh) + len(v.hits) }

func (v *listView[K, V]) Contains(id K) bool {
	_, ok := v.index[id]
	return ok
}

func (v *listView[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range v.fresh {
			if !yield(e.Key, e.Value) {
				return
			}
		}
		for _, e := range v.hits {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

func (v *listView[K, V]) Fresh() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, e := range v.fresh {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Result returns fresh elements followed by cached ones.
func (v *listView[K, V]) Result() any {
	out := make([]V, 0, v.Len())
	for _, val := range v.All() {
		out = append(out, val)
	}
	return out
}

func builtinShapes[K comparable, V any]() []ShapeConverter[K, V] {
	return []ShapeConverter[K, V]{MapShape[K, V]{}, ListShape[K, V]{}}
}

// resolveShape falls back to MapShape when nothing handles kind.
func resolveShape[K comparable, V any](candidates []ShapeConverter[K, V], kind ShapeKind) ShapeConverter[K, V] {
	c, ok := selectStrategy(candidates, func(c ShapeConverter[K, V]) bool { return c.Handles(kind) })
	if !ok {
		return MapShape[K, V]{}
	}
	return c
}
