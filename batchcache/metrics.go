package batchcache

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Lookup results recorded by Metrics.
const (
	resultHit      = "hit"
	resultNegative = "negative"
	resultMiss     = "miss"
	resultError    = "error"
)

// Metrics holds the engine's prometheus collectors. One Metrics can be
// shared by every engine in a process.
type Metrics struct {
	lookups     *prometheus.CounterVec
	writes      *prometheus.CounterVec
	sourceCalls *prometheus.CounterVec
	bypassed    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collection_cache",
			Name:      "lookups_total",
			Help:      "Per identifier cache lookups by result.",
		}, []string{"operation", "result"}),
		writes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collection_cache",
			Name:      "writes_total",
			Help:      "Entries written through to the cache, per tier write.",
		}, []string{"operation", "kind"}),
		sourceCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collection_cache",
			Name:      "source_calls_total",
			Help:      "Calls made to the backing source.",
		}, []string{"operation", "mode"}),
		bypassed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "collection_cache",
			Name:      "bypassed_total",
			Help:      "Calls routed straight to the source because the condition failed.",
		}, []string{"operation"}),
	}
}

func (m *Metrics) lookup(op, result string) {
	m.lookups.WithLabelValues(op, result).Inc()
}

func (m *Metrics) write(op, kind string) {
	m.writes.WithLabelValues(op, kind).Inc()
}

func (m *Metrics) sourceCall(op string, mode Mode) {
	m.sourceCalls.WithLabelValues(op, mode.String()).Inc()
}

func (m *Metrics) bypass(op string) {
	m.bypassed.WithLabelValues(op).Inc()
}

// Lookups returns the lookup counter for op and result, for tests and
// dashboards built on testutil.
func (m *Metrics) Lookups(op, result string) prometheus.Counter {
	return m.lookups.WithLabelValues(op, result)
}

// Writes returns the write counter for op and kind ("value" or "negative").
func (m *Metrics) Writes(op, kind string) prometheus.Counter {
	return m.writes.WithLabelValues(op, kind)
}

// SourceCalls returns the source call counter for op and mode.
func (m *Metrics) SourceCalls(op string, mode Mode) prometheus.Counter {
	return m.sourceCalls.WithLabelValues(op, mode.String())
}

func traceEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

func traceError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
