package repositorycache

import (
	"fmt"
	"iter"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-collection-cache/batchcache"
)

// recordShape views a []T of repository records as (ID, record) pairs,
// reading the ID field by reflection so records need not implement
// batchcache.Keyed.
type recordShape[T any] struct{}

func (recordShape[T]) Handles(kind batchcache.ShapeKind) bool { return kind == recordsShape }
func (recordShape[T]) Order() int                            { return batchcache.DefaultOrder }

func (s recordShape[T]) FromBulk(result any) (batchcache.View[string, T], error) {
	return s.FromPartial(result, nil)
}

func (recordShape[T]) FromPartial(result any, hits []batchcache.Entry[string, T]) (batchcache.View[string, T], error) {
	var records []T
	if result != nil {
		var ok bool
		if records, ok = result.([]T); !ok {
			return nil, goerrors.Wrap(batchcache.ErrReturnShapeMismatch, goerrors.CategoryBadInput,
				fmt.Sprintf("records shape cannot handle %T", result))
		}
	}

	v := &recordView[T]{index: make(map[string]T, len(records)+len(hits))}
	for _, record := range records {
		id, err := extractID(record)
		if err != nil {
			return nil, goerrors.Wrap(batchcache.ErrMissingKeyCapability, goerrors.CategoryBadInput, err.Error())
		}
		v.fresh = append(v.fresh, batchcache.Entry[string, T]{Key: id, Value: record})
		v.index[id] = record
	}
	for _, h := range hits {
		v.hits = append(v.hits, h)
		v.index[h.Key] = h.Value
	}
	return v, nil
}

type recordView[T any] struct {
	fresh []batchcache.Entry[string, T]
	hits  []batchcache.Entry[string, T]
	index map[string]T
}

func (v *recordView[T]) Len() int { return len(v.fresh) + len(v.hits) }

func (v *recordView[T]) Contains(id string) bool {
	_, ok := v.index[id]
	return ok
}

func (v *recordView[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		for _, group := range [][]batchcache.Entry[string, T]{v.fresh, v.hits} {
			for _, e := range group {
				if !yield(e.Key, e.Value) {
					return
				}
			}
		}
	}
}

func (v *recordView[T]) Fresh() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		for _, e := range v.fresh {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

func (v *recordView[T]) Result() any {
	out := make([]T, 0, v.Len())
	for _, record := range v.All() {
		out = append(out, record)
	}
	return out
}
