// Package batchcache caches calls that load a collection of records by
// identifier.
//
// An Engine holds one Operation per method. For a per identifier operation
// Invoke derives a key for every requested identifier, probes the
// operation's tiers in order, and calls the source only with the
// identifiers no tier knew about. Fresh values are written to every tier;
// with PutNull, identifiers the source did not return are written as
// negative entries so the next call skips them too.
//
//	engine, _ := batchcache.NewEngine[int, User](batchcache.WithManager(manager))
//	_ = engine.Register("users.byIDs", batchcache.MustOperation(batchcache.OperationSpec[int, User]{
//		CacheNames: []string{"hot", "shared"},
//		Key:        batchcache.PrefixedKey[int]("users", nil),
//		PutNull:    true,
//	}))
//
//	users, err := batchcache.Fetch(ctx, engine, "users.byIDs", []int{1, 2, 3},
//		func(ctx context.Context, ids batchcache.Collection[int]) (map[int]User, error) {
//			return repo.FindByIDs(ctx, ids.Slice())
//		})
//
// A BulkAll operation takes no identifiers: InvokeAll calls the source and
// writes every returned pair, which primes the cache for later per
// identifier calls sharing the same keys.
//
// # Shapes and containers
//
// Results are map[K]V (ShapeMap, the default) or []V of elements that
// implement Keyed[K] (ShapeList). Identifiers are copied into a working
// Collection chosen by ContainerKind: sequences keep duplicates, sets do
// not. Both are pluggable through RegisterShape and RegisterMaterializer;
// among matching strategies the lowest Order wins and ties go to the one
// registered first.
//
// # Failures
//
// A failed tier read counts as a miss unless WithStrictReads is set. Failed
// writes always fail the call. Source errors are returned unchanged.
package batchcache
