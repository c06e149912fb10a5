package batchcache

import (
	"slices"
	"strconv"

	"github.com/cespare/xxhash/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-collection-cache/cache"
)

// KeyDeriver maps one identifier to its cache key. The same identifier
// must always produce the same key.
type KeyDeriver[K comparable] interface {
	DeriveKey(id K) (string, error)
}

// KeyFunc adapts a function to KeyDeriver.
type KeyFunc[K comparable] func(id K) (string, error)

func (f KeyFunc[K]) DeriveKey(id K) (string, error) { return f(id) }

// IdentityKey uses the identifier itself as the key. Non-string identifiers
// are rendered with the default cache.KeySerializer.
func IdentityKey[K comparable]() KeyDeriver[K] {
	return SerializedKey[K](cache.NewDefaultKeySerializer(), "")
}

// SerializedKey renders identifiers with s under namespace. An empty
// namespace yields the bare serialized identifier.
func SerializedKey[K comparable](s cache.KeySerializer, namespace string) KeyDeriver[K] {
	return KeyFunc[K](func(id K) (string, error) {
		key := s.SerializeValue(id)
		if key == "" || namespace == "" {
			return key, nil
		}
		return s.SerializeKey(namespace, id), nil
	})
}

// PrefixedKey namespaces the keys of inner under prefix.
func PrefixedKey[K comparable](prefix string, inner KeyDeriver[K]) KeyDeriver[K] {
	if inner == nil {
		inner = IdentityKey[K]()
	}
	serializer := cache.NewDefaultKeySerializer()
	return KeyFunc[K](func(id K) (string, error) {
		key, err := inner.DeriveKey(id)
		if err != nil || key == "" {
			return key, err
		}
		return serializer.SerializeKey(prefix, key), nil
	})
}

// HashedKey replaces the keys of inner with their xxhash digest. Useful when
// identifiers are long composite values.
func HashedKey[K comparable](inner KeyDeriver[K]) KeyDeriver[K] {
	if inner == nil {
		inner = IdentityKey[K]()
	}
	return KeyFunc[K](func(id K) (string, error) {
		key, err := inner.DeriveKey(id)
		if err != nil || key == "" {
			return key, err
		}
		return strconv.FormatUint(xxhash.Sum64String(key), 16), nil
	})
}

// KeyStrategy supplies the key deriver for operations that set none.
// Strategies are picked per method like materializers: lowest order wins,
// ties go to the earliest registered.
type KeyStrategy[K comparable] interface {
	KeyDeriver[K]
	Handles(method string) bool
	Order() int
}

type keyStrategy[K comparable] struct {
	KeyDeriver[K]
	methods []string
	order   int
}

// NewKeyStrategy wraps k as a strategy for methods, or for every method
// when none are given.
func NewKeyStrategy[K comparable](order int, k KeyDeriver[K], methods ...string) KeyStrategy[K] {
	return keyStrategy[K]{KeyDeriver: k, methods: methods, order: order}
}

func (s keyStrategy[K]) Handles(method string) bool {
	return len(s.methods) == 0 || slices.Contains(s.methods, method)
}

func (s keyStrategy[K]) Order() int { return s.order }

// resolveKey never fails while the built-in strategy is registered.
func resolveKey[K comparable](candidates []KeyStrategy[K], method string) KeyDeriver[K] {
	k, ok := selectStrategy(candidates, func(k KeyStrategy[K]) bool { return k.Handles(method) })
	if !ok {
		return IdentityKey[K]()
	}
	return k
}

func (b *binding[K, V]) deriveKey(id K) (string, error) {
	key, err := b.op.key.DeriveKey(id)
	if err != nil {
		return "", wrapError(ErrInvalidKey, err, goerrors.CategoryBadInput,
			"key derivation failed",
			map[string]any{"operation": b.op.name, "id": id})
	}
	if key == "" {
		return "", newError(ErrInvalidKey, goerrors.CategoryBadInput,
			"derived cache key is empty",
			map[string]any{"operation": b.op.name, "id": id})
	}
	return key, nil
}
