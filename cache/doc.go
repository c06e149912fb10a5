// Package cache defines the tiers the batch engine reads and writes, the
// configuration that builds them, and key serialization.
//
// # Overview
//
// A Tier is a named key/value store with Get, Put and Delete. A Manager maps
// cache names to tiers. StaticManager is the default Manager and is usually
// built from a Config:
//
//	cfg, err := cache.ParseConfig([]byte(`
//	ttl: 5m
//	tiers:
//	  - name: hot
//	    type: lru
//	    lru:
//	      size: 1024
//	  - name: shared
//	    type: redis
//	    redis:
//	      addrs: [localhost:6379]
//	`))
//	if err != nil {
//		return err
//	}
//	manager, err := cache.NewManager(cfg)
//
// A Config without tiers yields a single in-process "default" tier.
//
// # Values
//
// Tiers store whatever the engine hands them. Remote tiers serialize values,
// and hand back a value implementing Decoder that is decoded into the
// caller's type on read. NegativeEntry marks an identifier known to have no
// value; IsNegative reports whether a cached value is one.
//
// # Failures
//
// ReadFailure and WriteFailure wrap tier errors with ErrTierRead and
// ErrTierWrite so callers can tell them apart with errors.Is. Evict and
// EvictPrefix remove keys from several tiers at once. EvictPrefix still clears
// the tiers it can when some cannot delete by prefix, and reports those with
// ErrPrefixEvictionUnsupported.
//
// # Key Serialization
//
// KeySerializer renders a namespace and arguments into a key joined with
// KeySeparator. Scalars render verbatim, so identifiers map to readable
// keys such as "users::42". Maps are sorted, structs list their exported
// fields, and functions are keyed by pointer, which is stable only within
// one process. Use a custom KeySerializer when keys must be shared between
// processes and contain functions.
package cache
