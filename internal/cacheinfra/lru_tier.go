package cacheinfra

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUTier is a bounded in-process tier. The least recently used entry is
// dropped once Size is reached.
type LRUTier struct {
	name  string
	cache *lru.Cache[string, any]
}

func NewLRUTier(name string, cfg LRUConfig) (*LRUTier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := lru.New[string, any](cfg.Size)
	if err != nil {
		return nil, err
	}
	return &LRUTier{name: name, cache: c}, nil
}

func (l *LRUTier) Name() string { return l.name }

func (l *LRUTier) Get(_ context.Context, key string) (any, bool, error) {
	v, ok := l.cache.Get(key)
	return v, ok, nil
}

func (l *LRUTier) Put(_ context.Context, key string, value any) error {
	l.cache.Add(key, value)
	return nil
}

func (l *LRUTier) Delete(_ context.Context, key string) error {
	l.cache.Remove(key)
	return nil
}

func (l *LRUTier) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range l.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			l.cache.Remove(key)
		}
	}
	return nil
}

func (l *LRUTier) Len() int {
	return l.cache.Len()
}
