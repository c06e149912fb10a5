package repositorycache

import "context"

type cacheBypassContextKey struct{}

// WithCacheBypass marks ctx so reads go straight to the repository. Cache
// tiers are neither read nor written for the marked call.
func WithCacheBypass(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, cacheBypassContextKey{}, true)
}

func bypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	skip, _ := ctx.Value(cacheBypassContextKey{}).(bool)
	return skip
}
