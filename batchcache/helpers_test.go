package batchcache

import (
	"context"
	"testing"

	"github.com/goliatone/go-collection-cache/cache"
	"github.com/goliatone/go-collection-cache/pkg/testsupport"
)

type user struct {
	ID   int    `msgpack:"id"`
	Name string `msgpack:"name"`
}

func (u user) CacheKey() int { return u.ID }

func newTestEngine(t *testing.T, tiers []*testsupport.RecordingTier, opts ...Option) *Engine[int, user] {
	t.Helper()

	ts := make([]cache.Tier, len(tiers))
	for i, tier := range tiers {
		ts[i] = tier
	}

	opts = append([]Option{WithManager(cache.NewStaticManager(ts...))}, opts...)
	e, err := NewEngine[int, user](opts...)
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return e
}

func mustRegister(t *testing.T, e *Engine[int, user], method string, spec OperationSpec[int, user]) {
	t.Helper()

	op, err := NewOperation(spec)
	if err != nil {
		t.Fatalf("invalid operation: %v", err)
	}
	if err := e.Register(method, op); err != nil {
		t.Fatalf("register %s failed: %v", method, err)
	}
}

func mapLoader(src *testsupport.Source[int, user]) func(context.Context, Collection[int]) (map[int]user, error) {
	return func(ctx context.Context, ids Collection[int]) (map[int]user, error) {
		return src.Lookup(ctx, ids.Slice())
	}
}

func listLoader(src *testsupport.Source[int, user]) func(context.Context, Collection[int]) ([]user, error) {
	return func(ctx context.Context, ids Collection[int]) ([]user, error) {
		found, err := src.Lookup(ctx, ids.Slice())
		if err != nil {
			return nil, err
		}
		out := make([]user, 0, len(found))
		for _, id := range ids.Slice() {
			if u, ok := found[id]; ok {
				out = append(out, u)
			}
		}
		return out, nil
	}
}

func sampleUsers() map[int]user {
	return map[int]user{
		1: {ID: 1, Name: "alice"},
		2: {ID: 2, Name: "bob"},
		3: {ID: 3, Name: "carol"},
	}
}
