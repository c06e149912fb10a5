package testsupport

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Source is an in-memory backing store that counts how often and with
// which identifiers it was asked.
type Source[K comparable, V any] struct {
	mu      sync.Mutex
	records map[K]V
	calls   [][]K
	err     error
}

func NewSource[K comparable, V any](records map[K]V) *Source[K, V] {
	copied := make(map[K]V, len(records))
	for k, v := range records {
		copied[k] = v
	}
	return &Source[K, V]{records: copied}
}

// Set adds or replaces a record.
func (s *Source[K, V]) Set(id K, v V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = v
}

// Remove drops a record.
func (s *Source[K, V]) Remove(id K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// Fail makes following lookups return err. Pass nil to recover.
func (s *Source[K, V]) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Lookup returns the known records among ids.
func (s *Source[K, V]) Lookup(_ context.Context, ids []K) (map[K]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, slices.Clone(ids))
	if s.err != nil {
		return nil, s.err
	}

	out := make(map[K]V, len(ids))
	for _, id := range ids {
		if v, ok := s.records[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

// All returns every record.
func (s *Source[K, V]) All(_ context.Context) (map[K]V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, nil)
	if s.err != nil {
		return nil, s.err
	}

	out := make(map[K]V, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

// CallCount returns the number of lookups served.
func (s *Source[K, V]) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// LastCall returns the identifiers of the most recent lookup.
func (s *Source[K, V]) LastCall() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return slices.Clone(s.calls[len(s.calls)-1])
}

// NewIDs returns n random identifiers.
func NewIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}
