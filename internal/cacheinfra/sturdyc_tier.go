package cacheinfra

import (
	"context"
	"errors"
	"strings"

	"github.com/viccon/sturdyc"
)

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to the sturdyc.New() constructor and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// errNotCached is returned by the lookup passed to GetOrFetch so a miss
// never reaches the store.
var errNotCached = errors.New("sturdyc tier: key not cached")

type notCached struct{}

// SturdycTier is an in-process sharded tier. Values are kept as-is. Negative
// entries are kept as Tombstone values, or as sturdyc missing records when
// MissingRecordStorage is set.
type SturdycTier struct {
	name         string
	client       *sturdyc.Client[any]
	storeMissing bool
}

// NewSturdycTier validates cfg and builds a sturdyc client for it.
//
// Version compatibility note: this assumes the sturdyc v1.x API.
func NewSturdycTier(name string, cfg Config) (*SturdycTier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycTier{name: name, client: client, storeMissing: cfg.MissingRecordStorage}, nil
}

func (s *SturdycTier) Name() string { return s.name }

func (s *SturdycTier) Get(ctx context.Context, key string) (any, bool, error) {
	if !s.storeMissing {
		v, ok := s.client.Get(key)
		return v, ok, nil
	}

	// Client.Get hides missing records, GetOrFetch reports them.
	v, err := s.client.GetOrFetch(ctx, key, func(context.Context) (any, error) {
		return notCached{}, errNotCached
	})
	switch {
	case errors.Is(err, sturdyc.ErrMissingRecord):
		return Tombstone{}, true, nil
	case errors.Is(err, errNotCached):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return v, true, nil
}

func (s *SturdycTier) Put(_ context.Context, key string, value any) error {
	if s.storeMissing && IsTombstone(value) {
		s.client.StoreMissingRecord(key)
		return nil
	}
	s.client.Set(key, value)
	return nil
}

func (s *SturdycTier) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *SturdycTier) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// Size returns the number of stored entries.
func (s *SturdycTier) Size() int {
	return s.client.Size()
}
