package testsupport

import (
	"context"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// TierCall is one recorded tier operation.
type TierCall struct {
	Op    string
	Key   string
	Value any
}

// RecordingTier is an in-memory tier that records every call and can be
// told to fail reads, writes, or deletes.
type RecordingTier struct {
	name    string
	entries *xsync.MapOf[string, any]

	mu        sync.Mutex
	calls     []TierCall
	getErr    error
	putErr    error
	deleteErr error
}

func NewRecordingTier(name string) *RecordingTier {
	return &RecordingTier{name: name, entries: xsync.NewMapOf[string, any]()}
}

func (r *RecordingTier) Name() string { return r.name }

func (r *RecordingTier) Get(_ context.Context, key string) (any, bool, error) {
	r.record("get", key, nil)
	if err := r.failure(&r.getErr); err != nil {
		return nil, false, err
	}
	v, ok := r.entries.Load(key)
	return v, ok, nil
}

func (r *RecordingTier) Put(_ context.Context, key string, value any) error {
	r.record("put", key, value)
	if err := r.failure(&r.putErr); err != nil {
		return err
	}
	r.entries.Store(key, value)
	return nil
}

func (r *RecordingTier) Delete(_ context.Context, key string) error {
	r.record("delete", key, nil)
	if err := r.failure(&r.deleteErr); err != nil {
		return err
	}
	r.entries.Delete(key)
	return nil
}

func (r *RecordingTier) DeleteByPrefix(_ context.Context, prefix string) error {
	r.record("delete_prefix", prefix, nil)
	if err := r.failure(&r.deleteErr); err != nil {
		return err
	}
	r.entries.Range(func(key string, _ any) bool {
		if strings.HasPrefix(key, prefix) {
			r.entries.Delete(key)
		}
		return true
	})
	return nil
}

// Seed stores a value without recording a call.
func (r *RecordingTier) Seed(key string, value any) {
	r.entries.Store(key, value)
}

// Peek returns a stored value without recording a call.
func (r *RecordingTier) Peek(key string) (any, bool) {
	return r.entries.Load(key)
}

func (r *RecordingTier) Len() int {
	return r.entries.Size()
}

// FailGets makes every following Get return err. Pass nil to recover.
func (r *RecordingTier) FailGets(err error) { r.setFailure(&r.getErr, err) }

// FailPuts makes every following Put return err. Pass nil to recover.
func (r *RecordingTier) FailPuts(err error) { r.setFailure(&r.putErr, err) }

// FailDeletes makes every following delete return err. Pass nil to recover.
func (r *RecordingTier) FailDeletes(err error) { r.setFailure(&r.deleteErr, err) }

// Calls returns a copy of the recorded calls.
func (r *RecordingTier) Calls() []TierCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TierCall(nil), r.calls...)
}

// CallsOf returns the keys passed to op, in call order.
func (r *RecordingTier) CallsOf(op string) []string {
	var keys []string
	for _, c := range r.Calls() {
		if c.Op == op {
			keys = append(keys, c.Key)
		}
	}
	return keys
}

// ResetCalls clears the call log but keeps the entries.
func (r *RecordingTier) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *RecordingTier) record(op, key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, TierCall{Op: op, Key: key, Value: value})
}

func (r *RecordingTier) setFailure(slot *error, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*slot = err
}

func (r *RecordingTier) failure(slot *error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *slot
}
