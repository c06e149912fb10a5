package cache

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-collection-cache/pkg/testsupport"
)

func TestStaticManager(t *testing.T) {
	a := testsupport.NewRecordingTier("a")
	b := testsupport.NewRecordingTier("b")
	m := NewStaticManager(b, a)

	if got := m.CacheNames(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("expected sorted names, got %v", got)
	}

	tiers, err := ResolveTiers(m, []string{"b", "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tiers[0].Name() != "b" || tiers[1].Name() != "a" {
		t.Errorf("expected declaration order, got %s,%s", tiers[0].Name(), tiers[1].Name())
	}

	_, err = ResolveTiers(m, []string{"a", "missing"})
	if !errors.Is(err, ErrUnknownCache) {
		t.Fatalf("expected ErrUnknownCache, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Errorf("expected not found category, got %v", err)
	}
}

func TestNegativeEntry(t *testing.T) {
	if !IsNegative(NegativeEntry) {
		t.Error("NegativeEntry should be negative")
	}
	for _, v := range []any{nil, "", 0, struct{}{}} {
		if IsNegative(v) {
			t.Errorf("%#v should not be negative", v)
		}
	}
}

func TestEvict(t *testing.T) {
	ctx := context.Background()
	a := testsupport.NewRecordingTier("a")
	b := testsupport.NewRecordingTier("b")
	_ = a.Put(ctx, "users::1", "x")
	_ = b.Put(ctx, "users::1", "x")

	if err := Evict(ctx, []Tier{a, b}, "users::1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Len() != 0 || b.Len() != 0 {
		t.Errorf("expected both tiers empty, got %d and %d", a.Len(), b.Len())
	}

	boom := errors.New("boom")
	b.FailDeletes(boom)
	err := Evict(ctx, []Tier{a, b}, "users::1")
	if !errors.Is(err, ErrTierWrite) || !errors.Is(err, boom) {
		t.Errorf("expected wrapped write failure, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryExternal) {
		t.Errorf("expected external category, got %v", err)
	}
}

func TestEvictPrefix(t *testing.T) {
	ctx := context.Background()
	a := testsupport.NewRecordingTier("a")
	_ = a.Put(ctx, "users::1", "x")
	_ = a.Put(ctx, "users::2", "y")
	_ = a.Put(ctx, "teams::1", "z")

	if err := EvictPrefix(ctx, []Tier{a}, "users::"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Len() != 1 {
		t.Errorf("expected one entry left, got %d", a.Len())
	}
}

// plainTier hides DeleteByPrefix of the wrapped tier.
type plainTier struct{ Tier }

func TestEvictPrefix_UnsupportedTier(t *testing.T) {
	ctx := context.Background()
	a := testsupport.NewRecordingTier("a")
	b := testsupport.NewRecordingTier("b")
	_ = a.Put(ctx, "users::1", "x")
	_ = b.Put(ctx, "users::1", "x")

	err := EvictPrefix(ctx, []Tier{plainTier{b}, a}, "users::")
	if !errors.Is(err, ErrPrefixEvictionUnsupported) {
		t.Fatalf("expected ErrPrefixEvictionUnsupported, got %v", err)
	}
	if !goerrors.IsCategory(err, goerrors.CategoryOperation) {
		t.Errorf("expected operation category, got %v", err)
	}

	var ge *goerrors.Error
	if errors.As(err, &ge) {
		if tiers, _ := ge.Metadata["tiers"].([]string); len(tiers) != 1 || tiers[0] != "b" {
			t.Errorf("expected tier b to be reported, got %v", ge.Metadata["tiers"])
		}
	}
	if a.Len() != 0 {
		t.Error("expected capable tier to be evicted anyway")
	}
	if b.Len() != 1 {
		t.Error("expected unsupported tier to keep its keys")
	}
}

func TestReadFailure(t *testing.T) {
	cause := errors.New("timeout")
	err := ReadFailure("shared", "users::1", cause)

	if !errors.Is(err, ErrTierRead) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrTierRead and cause, got %v", err)
	}

	var ge *goerrors.Error
	if !errors.As(err, &ge) {
		t.Fatalf("expected *goerrors.Error, got %T", err)
	}
	if ge.Metadata["tier"] != "shared" || ge.Metadata["key"] != "users::1" {
		t.Errorf("unexpected metadata %v", ge.Metadata)
	}
}
