// Package repositorycache puts a batch cache in front of a go-repository-bun
// repository.
//
// A BatchRepository answers GetByIDs from its cache tiers and loads only
// the missing IDs with a single IN query. All loads every record and writes
// each one under the same keys, so a later GetByIDs is served entirely from
// cache.
//
//	manager, _ := cache.NewManager(cfg)
//	users, err := repositorycache.New[*User](baseRepo, manager,
//		repositorycache.WithCacheNames("hot", "shared"),
//		repositorycache.WithNegativeCaching(true),
//	)
//
//	byID, err := users.GetByIDs(ctx, []string{"u-1", "u-2"})
//
// Keys are "<type>::<id>", where <type> is the snake cased record type
// name (override with WithKeyPrefix). Create, Update, Upsert and Delete
// write through to the repository and then evict the record's key from
// every tier. DeleteMany cannot know which rows it removed and drops the
// whole prefix instead.
//
// Reads made with a context from WithCacheBypass skip the cache entirely.
//
// Errors from the repository are returned unchanged. Cache write and evict
// failures are returned wrapped in cache.ErrTierWrite.
package repositorycache
