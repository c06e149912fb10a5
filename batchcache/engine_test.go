package batchcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-collection-cache/cache"
	"github.com/goliatone/go-collection-cache/pkg/testsupport"
)

func TestNewEngine_InvalidDefaults(t *testing.T) {
	_, err := NewEngine[int, user](WithDefaults(Defaults{CacheManager: "a", CacheResolver: "b"}))
	if !errors.Is(err, ErrInvalidOperationConfiguration) {
		t.Errorf("expected ErrInvalidOperationConfiguration, got %v", err)
	}
}

func TestEngine_RegisterAmbiguous(t *testing.T) {
	tier := testsupport.NewRecordingTier("users")
	e := newTestEngine(t, []*testsupport.RecordingTier{tier})

	mustRegister(t, e, "users.byIDs", OperationSpec[int, user]{CacheNames: []string{"users"}})

	err := e.Register("users.byIDs", MustOperation(OperationSpec[int, user]{CacheNames: []string{"users"}}))
	if !errors.Is(err, ErrAmbiguousOperation) {
		t.Fatalf("expected ErrAmbiguousOperation, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryConflict) {
		t.Errorf("expected conflict category, got %v", err)
	}

	src := testsupport.NewSource(sampleUsers())
	_, err = Fetch(context.Background(), e, "users.byIDs", []int{1}, mapLoader(src))
	if !errors.Is(err, ErrAmbiguousOperation) {
		t.Errorf("expected calls to an ambiguous method to fail, got %v", err)
	}
	if src.CallCount() != 0 || len(tier.Calls()) != 0 {
		t.Error("ambiguous method must not touch source or cache")
	}
}

func TestEngine_OperationNotFound(t *testing.T) {
	e := newTestEngine(t, nil)

	_, err := e.Invoke(context.Background(), "missing", []int{1}, nil)
	if !errors.Is(err, ErrOperationNotFound) {
		t.Errorf("expected ErrOperationNotFound, got %v", err)
	}
	if !goerrors.IsNotFound(err) {
		t.Errorf("expected not found category, got %v", err)
	}

	_, err = e.Operation("missing")
	if !errors.Is(err, ErrOperationNotFound) {
		t.Errorf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestEngine_RegisterValidation(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		spec      OperationSpec[int, user]
		want      error
		notConfig bool
	}{
		{
			name: "no cache names",
			spec: OperationSpec[int, user]{},
			want: ErrInvalidOperationConfiguration,
		},
		{
			name: "unknown cache",
			spec: OperationSpec[int, user]{CacheNames: []string{"nope"}},
			want: cache.ErrUnknownCache,
		},
		{
			name: "unknown named manager",
			spec: OperationSpec[int, user]{CacheNames: []string{"users"}, CacheManager: "other"},
			want: ErrInvalidOperationConfiguration,
		},
		{
			name: "unknown resolver",
			spec: OperationSpec[int, user]{CacheNames: []string{"users"}, CacheResolver: "tenant"},
			want: ErrInvalidOperationConfiguration,
		},
		{
			name:      "unsupported container",
			spec:      OperationSpec[int, user]{CacheNames: []string{"users"}, Container: "bag"},
			want:      ErrUnsupportedContainerKind,
			notConfig: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, []*testsupport.RecordingTier{testsupport.NewRecordingTier("users")}, tt.opts...)

			err := e.Register("users.byIDs", MustOperation(tt.spec))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !tt.notConfig && !errors.Is(err, ErrInvalidOperationConfiguration) {
				t.Errorf("expected a configuration error, got %v", err)
			}
			if _, err := e.Operation("users.byIDs"); !errors.Is(err, ErrOperationNotFound) {
				t.Errorf("failed registration must not bind the method, got %v", err)
			}
		})
	}
}

func TestEngine_RegisterWithoutManager(t *testing.T) {
	e, err := NewEngine[int, user]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = e.Register("users.byIDs", MustOperation(OperationSpec[int, user]{CacheNames: []string{"users"}}))
	if !errors.Is(err, ErrInvalidOperationConfiguration) {
		t.Errorf("expected ErrInvalidOperationConfiguration, got %v", err)
	}
}

func TestEngine_Defaults(t *testing.T) {
	shared := testsupport.NewRecordingTier("shared")
	e := newTestEngine(t, []*testsupport.RecordingTier{shared},
		WithDefaults(Defaults{CacheNames: []string{"shared"}}))

	mustRegister(t, e, "users.byIDs", OperationSpec[int, user]{})

	op, err := e.Operation("users.byIDs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Name() != "users.byIDs" || op.CacheNames()[0] != "shared" {
		t.Errorf("defaults not applied: name=%q caches=%v", op.Name(), op.CacheNames())
	}

	src := testsupport.NewSource(sampleUsers())
	if _, err := Fetch(context.Background(), e, "users.byIDs", []int{1}, mapLoader(src)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := shared.Peek("1"); !ok {
		t.Error("expected value written to the default cache")
	}
}

func TestEngine_NamedManager(t *testing.T) {
	primary := testsupport.NewRecordingTier("users")
	secondary := testsupport.NewRecordingTier("users")

	e := newTestEngine(t, []*testsupport.RecordingTier{primary},
		WithNamedManager("secondary", cache.NewStaticManager(secondary)))

	mustRegister(t, e, "users.byIDs", OperationSpec[int, user]{
		CacheNames:   []string{"users"},
		CacheManager: "secondary",
	})

	src := testsupport.NewSource(sampleUsers())
	if _, err := Fetch(context.Background(), e, "users.byIDs", []int{2}, mapLoader(src)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := secondary.Peek("2"); !ok {
		t.Error("expected write to the named manager's tier")
	}
	if primary.Len() != 0 {
		t.Error("default manager must not be used when a named manager is set")
	}
}

func TestEngine_Resolver(t *testing.T) {
	tenants := map[string]*testsupport.RecordingTier{
		"acme":   testsupport.NewRecordingTier("acme"),
		"globex": testsupport.NewRecordingTier("globex"),
	}
	type tenantKey struct{}

	resolver := ResolverFunc(func(ctx context.Context, operation string, names []string) ([]cache.Tier, error) {
		tenant, _ := ctx.Value(tenantKey{}).(string)
		tier, ok := tenants[tenant]
		if !ok {
			return nil, errors.New("no tenant")
		}
		return []cache.Tier{tier}, nil
	})

	e := newTestEngine(t, nil, WithResolver("tenant", resolver))
	mustRegister(t, e, "users.byIDs", OperationSpec[int, user]{
		CacheNames:    []string{"users"},
		CacheResolver: "tenant",
	})

	src := testsupport.NewSource(sampleUsers())
	ctx := context.WithValue(context.Background(), tenantKey{}, "acme")
	if _, err := Fetch(ctx, e, "users.byIDs", []int{1}, mapLoader(src)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := tenants["acme"].Peek("1"); !ok {
		t.Error("expected write to the resolved tenant tier")
	}
	if tenants["globex"].Len() != 0 {
		t.Error("other tenant tier must stay empty")
	}

	_, err := Fetch(context.Background(), e, "users.byIDs", []int{1}, mapLoader(src))
	if err == nil {
		t.Error("expected resolver error to surface")
	}
}

func TestEngine_CustomMaterializer(t *testing.T) {
	tier := testsupport.NewRecordingTier("users")
	e := newTestEngine(t, []*testsupport.RecordingTier{tier})

	var used bool
	e.RegisterMaterializer(NewMaterializer(1, func(ids []int) Collection[int] {
		used = true
		return NewOrderedSet(ids...)
	}, KindSequence))

	mustRegister(t, e, "users.byIDs", OperationSpec[int, user]{CacheNames: []string{"users"}})

	src := testsupport.NewSource(sampleUsers())
	if _, err := Fetch(context.Background(), e, "users.byIDs", []int{1, 1, 2}, mapLoader(src)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !used {
		t.Error("expected lower order materializer to be chosen")
	}
	if got := src.LastCall(); len(got) != 2 {
		t.Errorf("expected deduplicated ids from ordered set, got %v", got)
	}
}

// slashSerializer wraps values in angle brackets and joins parts with "/".
type slashSerializer struct{}

func (s slashSerializer) SerializeKey(namespace string, args ...any) string {
	parts := []string{namespace}
	for _, arg := range args {
		parts = append(parts, s.SerializeValue(arg))
	}
	return strings.Join(parts, "/")
}

func (slashSerializer) SerializeValue(v any) string { return fmt.Sprintf("<%v>", v) }

func TestEngine_KeyStrategies(t *testing.T) {
	tier := testsupport.NewRecordingTier("users")
	e := newTestEngine(t, []*testsupport.RecordingTier{tier})

	e.RegisterKey(NewKeyStrategy(10, PrefixedKey[int]("first", nil), "users.byIDs"))
	e.RegisterKey(NewKeyStrategy(10, PrefixedKey[int]("second", nil), "users.byIDs"))
	e.RegisterKey(NewKeyStrategy(200, PrefixedKey[int]("late", nil)))

	mustRegister(t, e, "users.byIDs", OperationSpec[int, user]{CacheNames: []string{"users"}})
	mustRegister(t, e, "users.other", OperationSpec[int, user]{CacheNames: []string{"users"}})
	mustRegister(t, e, "users.own", OperationSpec[int, user]{
		CacheNames: []string{"users"},
		Key:        PrefixedKey[int]("own", nil),
	})

	ctx := context.Background()
	src := testsupport.NewSource(sampleUsers())
	for _, method := range []string{"users.byIDs", "users.other", "users.own"} {
		if _, err := Fetch(ctx, e, method, []int{1}, mapLoader(src)); err != nil {
			t.Fatalf("%s: unexpected error: %v", method, err)
		}
	}

	want := []string{"first::1", "1", "own::1"}
	got := tier.CallsOf("put")
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected puts %v, got %v", want, got)
	}
}

func TestEngine_WithKeySerializer(t *testing.T) {
	tier := testsupport.NewRecordingTier("users")
	e := newTestEngine(t, []*testsupport.RecordingTier{tier}, WithKeySerializer(slashSerializer{}))

	mustRegister(t, e, "users.byIDs", OperationSpec[int, user]{CacheNames: []string{"users"}})

	src := testsupport.NewSource(sampleUsers())
	if _, err := Fetch(context.Background(), e, "users.byIDs", []int{2}, mapLoader(src)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tier.Peek("<2>"); !ok {
		t.Errorf("expected key from the engine serializer, got puts %v", tier.CallsOf("put"))
	}
}
