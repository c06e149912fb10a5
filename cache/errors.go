package cache

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrUnknownCache is returned when a cache name has no registered tier.
	ErrUnknownCache = errors.New("unknown cache")
	// ErrTierRead wraps a failed tier lookup.
	ErrTierRead = errors.New("cache tier read failed")
	// ErrTierWrite wraps a failed tier write or delete.
	ErrTierWrite = errors.New("cache tier write failed")
	// ErrInvalidResultType is returned when a stored value cannot be
	// turned into the type the caller expects.
	ErrInvalidResultType = errors.New("cached value has unexpected type")
	// ErrPrefixEvictionUnsupported is returned when a tier cannot drop keys
	// by prefix.
	ErrPrefixEvictionUnsupported = errors.New("cache tier cannot evict by prefix")
)

func unknownCache(name string) error {
	return goerrors.Wrap(ErrUnknownCache, goerrors.CategoryNotFound, fmt.Sprintf("cache %q is not registered", name)).
		WithMetadata(map[string]any{"cache": name})
}

// ReadFailure wraps a tier read error so both ErrTierRead and cause match
// with errors.Is.
func ReadFailure(tier, key string, cause error) error {
	return tierError(ErrTierRead, "read", tier, key, cause)
}

// WriteFailure wraps a tier write error so both ErrTierWrite and cause
// match with errors.Is.
func WriteFailure(tier, key string, cause error) error {
	return tierError(ErrTierWrite, "write", tier, key, cause)
}

func tierError(sentinel error, op, tier, key string, cause error) error {
	err := goerrors.New(fmt.Sprintf("cache tier %s %s failed", tier, op), goerrors.CategoryExternal).
		WithMetadata(map[string]any{"tier": tier, "key": key})
	err.Source = fmt.Errorf("%w: %w", sentinel, cause)
	return err
}

func prefixUnsupported(tiers []string, prefix string) error {
	err := goerrors.New(fmt.Sprintf("cache tiers %v cannot evict prefix %q", tiers, prefix), goerrors.CategoryOperation).
		WithMetadata(map[string]any{"tiers": tiers, "prefix": prefix})
	err.Source = ErrPrefixEvictionUnsupported
	return err
}
