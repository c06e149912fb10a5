package batchcache

import (
	"fmt"
	"iter"
	"slices"

	goerrors "github.com/goliatone/go-errors"
)

// ContainerKind names the container an operation's identifiers arrive in.
type ContainerKind string

const (
	// KindSequence is the most general kind and the default.
	KindSequence   ContainerKind = "sequence"
	KindList       ContainerKind = "list"
	KindSet        ContainerKind = "set"
	KindOrderedSet ContainerKind = "ordered_set"
)

// DefaultOrder is the order of the built-in strategies. Custom strategies
// with a lower order take precedence.
const DefaultOrder = 100

// Collection is the mutable working copy of an identifier collection.
type Collection[K comparable] interface {
	Kind() ContainerKind
	Len() int
	Contains(id K) bool
	// Add inserts id, reporting false when a set already holds it.
	Add(id K) bool
	// RemoveFunc visits elements in iteration order and removes those for
	// which fn returns true. It stops at the first error.
	RemoveFunc(fn func(id K) (bool, error)) error
	All() iter.Seq[K]
	Slice() []K
}

type listCollection[K comparable] struct {
	items []K
}

// NewList returns a sequence collection that keeps duplicates and order.
func NewList[K comparable](ids ...K) Collection[K] {
	return &listCollection[K]{items: slices.Clone(ids)}
}

func (l *listCollection[K]) Kind() ContainerKind { return KindList }
func (l *listCollection[K]) Len() int            { return len(l.items) }
func (l *listCollection[K]) Contains(id K) bool  { return slices.Contains(l.items, id) }
func (l *listCollection[K]) Slice() []K          { return slices.Clone(l.items) }

func (l *listCollection[K]) Add(id K) bool {
	l.items = append(l.items, id)
	return true
}

func (l *listCollection[K]) RemoveFunc(fn func(id K) (bool, error)) error {
	kept := l.items[:0]
	for i, id := range l.items {
		drop, err := fn(id)
		if err != nil {
			kept = append(kept, l.items[i:]...)
			l.items = kept
			return err
		}
		if !drop {
			kept = append(kept, id)
		}
	}
	clear(l.items[len(kept):])
	l.items = kept
	return nil
}

func (l *listCollection[K]) All() iter.Seq[K] {
	return slices.Values(l.items)
}

// orderedSet keeps insertion order and rejects duplicates. With ordered
// unset iteration order is unspecified.
type orderedSet[K comparable] struct {
	index   map[K]struct{}
	items   []K
	ordered bool
}

// NewSet returns a set collection with unspecified iteration order.
func NewSet[K comparable](ids ...K) Collection[K] {
	return fillSet(&orderedSet[K]{index: make(map[K]struct{}, len(ids))}, ids)
}

// NewOrderedSet returns a set collection that iterates in insertion order.
func NewOrderedSet[K comparable](ids ...K) Collection[K] {
	return fillSet(&orderedSet[K]{index: make(map[K]struct{}, len(ids)), ordered: true}, ids)
}

func fillSet[K comparable](s *orderedSet[K], ids []K) Collection[K] {
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *orderedSet[K]) Kind() ContainerKind {
	if s.ordered {
		return KindOrderedSet
	}
	return KindSet
}

func (s *orderedSet[K]) Len() int { return len(s.index) }

func (s *orderedSet[K]) Contains(id K) bool {
	_, ok := s.index[id]
	return ok
}

func (s *orderedSet[K]) Add(id K) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.items = append(s.items, id)
	return true
}

func (s *orderedSet[K]) RemoveFunc(fn func(id K) (bool, error)) error {
	kept := s.items[:0]
	for i, id := range s.items {
		drop, err := fn(id)
		if err != nil {
			kept = append(kept, s.items[i:]...)
			s.items = kept
			return err
		}
		if drop {
			delete(s.index, id)
			continue
		}
		kept = append(kept, id)
	}
	clear(s.items[len(kept):])
	s.items = kept
	return nil
}

func (s *orderedSet[K]) All() iter.Seq[K] {
	if s.ordered {
		return slices.Values(s.items)
	}
	return func(yield func(K) bool) {
		for id := range s.index {
			if !yield(id) {
				return
			}
		}
	}
}

func (s *orderedSet[K]) Slice() []K {
	return slices.Collect(s.All())
}

// Materializer builds the working copy for the container kinds it handles.
type Materializer[K comparable] interface {
	Handles(kind ContainerKind) bool
	Order() int
	Materialize(ids []K) Collection[K]
}

type materializer[K comparable] struct {
	kinds []ContainerKind
	order int
	build func(ids []K) Collection[K]
}

// NewMaterializer registers build for kinds at the given order.
func NewMaterializer[K comparable](order int, build func(ids []K) Collection[K], kinds ...ContainerKind) Materializer[K] {
	return materializer[K]{kinds: kinds, order: order, build: build}
}

func (m materializer[K]) Handles(kind ContainerKind) bool { return slices.Contains(m.kinds, kind) }
func (m materializer[K]) Order() int                      { return m.order }
func (m materializer[K]) Materialize(ids []K) Collection[K] {
	return m.build(ids)
}

func builtinMaterializers[K comparable]() []Materializer[K] {
	return []Materializer[K]{
		NewMaterializer(DefaultOrder, func(ids []K) Collection[K] { return NewList(ids...) }, KindSequence, KindList),
		NewMaterializer(DefaultOrder, func(ids []K) Collection[K] { return NewSet(ids...) }, KindSet),
		NewMaterializer(DefaultOrder, func(ids []K) Collection[K] { return NewOrderedSet(ids...) }, KindOrderedSet),
	}
}

type ordered interface {
	Order() int
}

// selectStrategy returns the matching candidate with the lowest order.
// Ties go to the earliest registered.
func selectStrategy[S ordered](candidates []S, matches func(S) bool) (S, bool) {
	var (
		best  S
		found bool
	)
	for _, c := range candidates {
		if !matches(c) {
			continue
		}
		if !found || c.Order() < best.Order() {
			best, found = c, true
		}
	}
	return best, found
}

func resolveMaterializer[K comparable](candidates []Materializer[K], method string, kind ContainerKind) (Materializer[K], error) {
	m, ok := selectStrategy(candidates, func(m Materializer[K]) bool { return m.Handles(kind) })
	if !ok {
		return nil, newError(ErrUnsupportedContainerKind, goerrors.CategoryBadInput,
			fmt.Sprintf("no materializer handles container kind %q", kind),
			map[string]any{"operation": method, "container": string(kind)})
	}
	return m, nil
}
