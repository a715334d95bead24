package property

import (
	"context"
	"testing"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/kv"
	"github.com/suPer8Hu/estate-chat/internal/query"
)

func TestCachedFinder_HitsCacheOnRepeat(t *testing.T) {
	inner := &fakeFinder{list: []Property{{ID: 7, Title: "Sea Breeze"}}}
	f := NewCachedFinder(inner, kv.NewMemoryStore(nil), time.Minute, nil)
	c := query.Interpret("2 bhk mumbai")

	for i := 0; i < 3; i++ {
		got, err := f.Find(context.Background(), c, 5, 0)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != 1 || got[0].ID != 7 {
			t.Fatalf("unexpected result: %+v", got)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected one store query, got %d", inner.calls)
	}

	if _, err := f.Find(context.Background(), c, 5, 5); err != nil {
		t.Fatalf("find: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("different page should miss the cache, calls=%d", inner.calls)
	}
}

func TestCacheKey_IgnoresAmenities(t *testing.T) {
	a := CacheKey(query.Interpret("2 bhk in pune with gym"), 5, 0)
	b := CacheKey(query.Interpret("2 bhk in pune"), 5, 0)
	if a != b {
		t.Fatalf("amenities changed the key: %s vs %s", a, b)
	}
	if c := CacheKey(query.Interpret("3 bhk in pune"), 5, 0); c == a {
		t.Fatalf("bedrooms did not change the key")
	}
}

func TestPatchOverview_InvalidatesCachedSearches(t *testing.T) {
	db := openTestDB(t)
	store := NewGormStore(db)
	seed(t, store)
	repo := NewRepository(store, nil, WithFinder(NewCachedFinder(store, kv.NewMemoryStore(nil), time.Hour, nil)))
	ctx := context.Background()

	first, err := repo.Search(ctx, "1 bhk", 0, 0)
	if err != nil || len(first) != 1 || first[0].Overview != "" {
		t.Fatalf("unexpected first search: %+v %v", first, err)
	}

	// a direct write is not seen while the cached page lives
	if err := db.Model(&Property{}).Where("id = ?", first[0].ID).Update("title", "Palm Court II").Error; err != nil {
		t.Fatalf("update: %v", err)
	}
	if got, _ := repo.Search(ctx, "1 bhk", 0, 0); got[0].Title != "Palm Court" {
		t.Fatalf("expected cached page, got %q", got[0].Title)
	}

	if err := repo.PatchOverview(ctx, first[0].ID, "Compact homes near the metro."); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, err := repo.Search(ctx, "1 bhk", 0, 0)
	if err != nil || len(got) != 1 {
		t.Fatalf("search after patch: %+v %v", got, err)
	}
	if got[0].Overview != "Compact homes near the metro." || got[0].Title != "Palm Court II" {
		t.Fatalf("stale result after patch: %+v", got[0])
	}
}
