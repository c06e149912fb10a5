package cache

import (
	"context"
	"sort"

	"github.com/goliatone/go-collection-cache/internal/cacheinfra"
)

// Tier is a single cache store. Get reports a hit with ok; the stored value
// may be a negative entry, see IsNegative.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) (value any, ok bool, err error)
	Put(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// PrefixDeleter is implemented by tiers that can drop a key range.
type PrefixDeleter interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Decoder is implemented by values read back from byte oriented tiers.
type Decoder interface {
	DecodeInto(dst any) error
}

// Manager resolves cache names to tiers.
type Manager interface {
	GetCache(name string) (Tier, bool)
	CacheNames() []string
}

// NegativeEntry is written in place of a value for identifiers the source
// confirmed absent.
var NegativeEntry any = cacheinfra.Tombstone{}

// IsNegative reports whether a stored value is a negative entry.
func IsNegative(v any) bool {
	return cacheinfra.IsTombstone(v)
}

// StaticManager is a Manager over a fixed set of tiers.
type StaticManager struct {
	tiers map[string]Tier
}

// NewStaticManager indexes tiers by Name. Later tiers replace earlier ones
// with the same name.
func NewStaticManager(tiers ...Tier) *StaticManager {
	m := &StaticManager{tiers: make(map[string]Tier, len(tiers))}
	for _, t := range tiers {
		m.tiers[t.Name()] = t
	}
	return m
}

func (m *StaticManager) GetCache(name string) (Tier, bool) {
	t, ok := m.tiers[name]
	return t, ok
}

// CacheNames returns the registered names in sorted order.
func (m *StaticManager) CacheNames() []string {
	names := make([]string, 0, len(m.tiers))
	for name := range m.tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveTiers maps names to tiers in the given order.
func ResolveTiers(m Manager, names []string) ([]Tier, error) {
	tiers := make([]Tier, 0, len(names))
	for _, name := range names {
		t, ok := m.GetCache(name)
		if !ok {
			return nil, unknownCache(name)
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}

// Evict deletes key from every tier, stopping at the first failure.
func Evict(ctx context.Context, tiers []Tier, key string) error {
	for _, t := range tiers {
		if err := t.Delete(ctx, key); err != nil {
			return WriteFailure(t.Name(), key, err)
		}
	}
	return nil
}

// EvictPrefix drops every key starting with prefix. Tiers without
// PrefixDeleter keep their keys and are reported with
// ErrPrefixEvictionUnsupported once the other tiers are done.
func EvictPrefix(ctx context.Context, tiers []Tier, prefix string) error {
	var unsupported []string
	for _, t := range tiers {
		pd, ok := t.(PrefixDeleter)
		if !ok {
			unsupported = append(unsupported, t.Name())
			continue
		}
		if err := pd.DeleteByPrefix(ctx, prefix); err != nil {
			return WriteFailure(t.Name(), prefix, err)
		}
	}
	if len(unsupported) > 0 {
		return prefixUnsupported(unsupported, prefix)
	}
	return nil
}
