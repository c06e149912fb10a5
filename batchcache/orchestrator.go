package batchcache

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/goliatone/go-collection-cache/cache"
)

// Invoke runs the per identifier path for method. fn receives only the
// identifiers that were not resolved from cache. The result has the
// operation's declared shape.
func (e *Engine[K, V]) Invoke(ctx context.Context, method string, ids []K, fn BatchFunc[K]) (any, error) {
	b, err := e.lookup(method)
	if err != nil {
		return nil, err
	}
	if b.op.mode != PerIdentifier {
		return nil, modeMismatch(b.op, PerIdentifier)
	}

	op := b.op
	invocation := uuid.NewString()
	logger := log.With(e.logger, "operation", op.name, "invocation", invocation)

	if op.condition != nil && !op.condition(ctx, ids) {
		e.metrics.bypass(op.name)
		e.metrics.sourceCall(op.name, op.mode)
		level.Debug(logger).Log("msg", "condition failed, calling source directly", "ids", len(ids))
		return fn(ctx, NewList(ids...))
	}

	tiers, err := e.tiersFor(ctx, b)
	if err != nil {
		return nil, err
	}

	work := b.materializer.Materialize(ids)
	requested := work.Len()

	var hits []Entry[K, V]
	found := make(map[K]struct{})
	err = work.RemoveFunc(func(id K) (bool, error) {
		key, err := b.deriveKey(id)
		if err != nil {
			return false, err
		}

		stored, hit, err := e.probe(ctx, b, tiers, key)
		if err != nil || !hit {
			return false, err
		}

		if cache.IsNegative(stored) {
			e.metrics.lookup(op.name, resultNegative)
			return true, nil
		}

		value, err := decodeStored[V](stored)
		if err != nil {
			return false, annotate(err, op.name)
		}
		if _, dup := found[id]; !dup {
			found[id] = struct{}{}
			hits = append(hits, Entry[K, V]{Key: id, Value: value})
		}
		e.metrics.lookup(op.name, resultHit)
		return true, nil
	})
	if err != nil {
		traceError(ctx, err)
		return nil, err
	}

	traceEvent(ctx, "batchcache.probe",
		attribute.String("operation", op.name),
		attribute.String("invocation", invocation),
		attribute.Int("requested", requested),
		attribute.Int("cached", len(hits)),
		attribute.Int("missing", work.Len()),
	)

	if work.Len() == 0 {
		view, err := b.shape.FromPartial(nil, hits)
		if err != nil {
			return nil, annotate(err, op.name)
		}
		level.Debug(logger).Log("msg", "all identifiers resolved from cache", "hits", len(hits))
		return view.Result(), nil
	}

	missing := work.Slice()
	for range missing {
		e.metrics.lookup(op.name, resultMiss)
	}

	level.Debug(logger).Log("msg", "calling source for missing identifiers", "missing", len(missing), "hits", len(hits))
	e.metrics.sourceCall(op.name, op.mode)

	result, err := fn(ctx, work)
	if err != nil {
		return nil, err
	}

	view, err := b.shape.FromPartial(result, hits)
	if err != nil {
		err = annotate(err, op.name)
		traceError(ctx, err)
		return nil, err
	}

	if op.unless != nil && op.unless(ctx, view) {
		level.Debug(logger).Log("msg", "unless matched, skipping cache writes")
		return view.Result(), nil
	}

	if err := e.writeFresh(ctx, b, tiers, view); err != nil {
		return nil, err
	}

	if op.putNull {
		for _, id := range missing {
			if view.Contains(id) {
				continue
			}
			key, err := b.deriveKey(id)
			if err != nil {
				return nil, err
			}
			if err := e.store(ctx, b, tiers, key, cache.NegativeEntry); err != nil {
				return nil, err
			}
		}
	}

	return view.Result(), nil
}

// InvokeAll runs the bulk path for method and returns the source result
// unchanged.
func (e *Engine[K, V]) InvokeAll(ctx context.Context, method string, fn BulkFunc) (any, error) {
	b, err := e.lookup(method)
	if err != nil {
		return nil, err
	}
	if b.op.mode != BulkAll {
		return nil, modeMismatch(b.op, BulkAll)
	}

	tiers, err := e.tiersFor(ctx, b)
	if err != nil {
		return nil, err
	}

	invocation := uuid.NewString()
	logger := log.With(e.logger, "operation", b.op.name, "invocation", invocation)

	e.metrics.sourceCall(b.op.name, b.op.mode)
	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	view, err := b.shape.FromBulk(result)
	if err != nil {
		err = annotate(err, b.op.name)
		traceError(ctx, err)
		return nil, err
	}

	traceEvent(ctx, "batchcache.bulk",
		attribute.String("operation", b.op.name),
		attribute.String("invocation", invocation),
		attribute.Int("entries", view.Len()),
	)

	if b.op.unless != nil && b.op.unless(ctx, view) {
		level.Debug(logger).Log("msg", "unless matched, skipping cache writes")
		return result, nil
	}
	level.Debug(logger).Log("msg", "priming cache from bulk result", "entries", view.Len())

	for id, value := range view.All() {
		key, err := b.deriveKey(id)
		if err != nil {
			return nil, err
		}
		if err := e.store(ctx, b, tiers, key, value); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// probe asks each tier in order and returns the first hit.
func (e *Engine[K, V]) probe(ctx context.Context, b *binding[K, V], tiers []cache.Tier, key string) (any, bool, error) {
	for _, t := range tiers {
		v, ok, err := t.Get(ctx, key)
		if err != nil {
			e.metrics.lookup(b.op.name, resultError)
			rerr := annotate(cache.ReadFailure(t.Name(), key, err), b.op.name)
			if e.opts.strictReads {
				return nil, false, rerr
			}
			level.Warn(e.logger).Log("msg", "cache read failed, trying next tier", "operation", b.op.name,
				"tier", t.Name(), "key", key, "err", err)
			continue
		}
		if ok {
			level.Debug(e.logger).Log("msg", "cache hit", "operation", b.op.name, "tier", t.Name(), "key", key)
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (e *Engine[K, V]) writeFresh(ctx context.Context, b *binding[K, V], tiers []cache.Tier, view View[K, V]) error {
	for id, value := range view.Fresh() {
		key, err := b.deriveKey(id)
		if err != nil {
			return err
		}
		if err := e.store(ctx, b, tiers, key, value); err != nil {
			return err
		}
	}
	return nil
}

// store writes value to every tier in order. The first failure is returned.
func (e *Engine[K, V]) store(ctx context.Context, b *binding[K, V], tiers []cache.Tier, key string, value any) error {
	kind := "value"
	if cache.IsNegative(value) {
		kind = "negative"
	}

	for _, t := range tiers {
		if err := t.Put(ctx, key, value); err != nil {
			werr := annotate(cache.WriteFailure(t.Name(), key, err), b.op.name)
			level.Error(e.logger).Log("msg", "cache write failed", "operation", b.op.name, "tier", t.Name(), "key", key, "err", err)
			traceError(ctx, werr)
			return werr
		}
		e.metrics.write(b.op.name, kind)
	}
	return nil
}

// decodeStored turns a stored value into V, decoding byte payloads from
// remote tiers.
func decodeStored[V any](stored any) (V, error) {
	if v, ok := stored.(V); ok {
		return v, nil
	}

	var out V
	if d, ok := stored.(cache.Decoder); ok {
		if err := d.DecodeInto(&out); err != nil {
			return out, wrapError(cache.ErrInvalidResultType, err, goerrors.CategoryBadInput,
				fmt.Sprintf("cannot decode cached value into %T", out), nil)
		}
		return out, nil
	}

	return out, newError(cache.ErrInvalidResultType, goerrors.CategoryBadInput,
		fmt.Sprintf("cached value of type %T is not %T", stored, out),
		map[string]any{"type": fmt.Sprintf("%T", stored)})
}

func modeMismatch[K comparable, V any](op *Operation[K, V], want Mode) error {
	return newError(ErrModeMismatch, goerrors.CategoryBadInput,
		fmt.Sprintf("operation %q runs in %s mode, not %s", op.name, op.mode, want),
		map[string]any{"operation": op.name, "mode": op.mode.String()})
}
