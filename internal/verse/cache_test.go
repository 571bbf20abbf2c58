package verse

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"sermonscribe/api/internal/docctx"
)

type countingLookup struct {
	result docctx.LookupResult
	calls  int
}

func (c *countingLookup) Lookup(_ context.Context, reference string) (docctx.LookupResult, error) {
	c.calls++
	return c.result, nil
}

func setupTestCache(t *testing.T) (*Cache, *countingLookup, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	backing := &countingLookup{result: docctx.LookupResult{
		Found:               true,
		VerseText:           "For God so loved the world...",
		NormalizedReference: "John 3:16",
		Translation:         "KJV",
	}}
	cache, err := NewCache("redis://"+s.Addr(), backing)
	if err != nil {
		t.Fatalf("failed to create verse cache: %v", err)
	}
	return cache, backing, s
}

func TestCacheLookupReadThrough(t *testing.T) {
	cache, backing, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()

	first, err := cache.Lookup(ctx, "John 3:16")
	if err != nil {
		t.Fatalf("first lookup failed: %v", err)
	}
	if !first.Found || first.VerseText != backing.result.VerseText {
		t.Fatalf("first lookup = %+v", first)
	}

	second, err := cache.Lookup(ctx, "John 3:16")
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
	if second != first {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}
	if backing.calls != 1 {
		t.Errorf("backing lookup called %d times, want 1", backing.calls)
	}
}

func TestCacheKeyNormalizesWhitespace(t *testing.T) {
	cache, backing, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := cache.Lookup(ctx, "John 3:16"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Lookup(ctx, "  john   3:16 "); err != nil {
		t.Fatal(err)
	}
	if backing.calls != 1 {
		t.Errorf("backing lookup called %d times for equivalent references, want 1", backing.calls)
	}
}

func TestCacheCachesNegativeResults(t *testing.T) {
	cache, backing, s := setupTestCache(t)
	defer cache.Close()
	defer s.Close()

	backing.result = docctx.LookupResult{Found: false}

	ctx := context.Background()
	if _, err := cache.Lookup(ctx, "Obadiah 1:99"); err != nil {
		t.Fatal(err)
	}
	res, err := cache.Lookup(ctx, "Obadiah 1:99")
	if err != nil {
		t.Fatal(err)
	}
	if res.Found {
		t.Error("negative result came back Found")
	}
	if backing.calls != 1 {
		t.Errorf("backing lookup called %d times, want 1", backing.calls)
	}
}

func TestCacheFallsBackWhenRedisDown(t *testing.T) {
	cache, backing, s := setupTestCache(t)
	defer cache.Close()

	s.Close()

	res, err := cache.Lookup(context.Background(), "John 3:16")
	if err != nil {
		t.Fatalf("lookup with dead redis failed: %v", err)
	}
	if !res.Found {
		t.Errorf("result = %+v", res)
	}
	if backing.calls != 1 {
		t.Errorf("backing lookup called %d times, want 1", backing.calls)
	}
}
