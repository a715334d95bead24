package property

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/suPer8Hu/estate-chat/internal/query"
)

func seed(t *testing.T, s *GormStore) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Property{
		{Title: "Sea Breeze", Location: "Bandra, Mumbai", BedroomsMin: 2, BedroomsMax: 3, PriceMin: 9_000_000, PriceMax: 14_000_000, Description: "Sea facing towers", Amenities: []string{"gym", "pool"}, CreatedAt: base.Add(1 * time.Hour)},
		{Title: "Palm Court", Location: "Andheri, Mumbai", BedroomsMin: 1, BedroomsMax: 1, PriceMin: 6_500_000, PriceMax: 7_000_000, CreatedAt: base.Add(2 * time.Hour)},
		{Title: "Green Acres", Location: "Baner, Pune", BedroomsMin: 2, BedroomsMax: 2, PriceMin: 7_500_000, PriceMax: 8_000_000, Amenities: []string{"garden"}, CreatedAt: base.Add(3 * time.Hour)},
		{Title: "Skyline Heights", Location: "Worli, Mumbai", BedroomsMin: 3, BedroomsMax: 4, PriceMin: 35_000_000, PriceMax: 60_000_000, CreatedAt: base.Add(4 * time.Hour)},
	}
	for i := range rows {
		if err := s.Create(context.Background(), &rows[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func titles(list []Property) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.Title)
	}
	return out
}

func TestSearch_BedroomsPriceAndLocation(t *testing.T) {
	store := NewGormStore(openTestDB(t))
	seed(t, store)
	repo := NewRepository(store, nil)

	got, err := repo.Search(context.Background(), "2 BHK in Mumbai under 1 crore", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Sea Breeze" {
		t.Fatalf("unexpected results: %v", titles(got))
	}
}

func TestSearch_BedroomRangeContainsN(t *testing.T) {
	store := NewGormStore(openTestDB(t))
	seed(t, store)
	repo := NewRepository(store, nil)

	got, err := repo.Search(context.Background(), "3bhk", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// newest first
	want := []string{"Skyline Heights", "Sea Breeze"}
	if len(got) != 2 || got[0].Title != want[0] || got[1].Title != want[1] {
		t.Fatalf("got %v, want %v", titles(got), want)
	}
}

func TestSearch_NoSignalsReturnsAllNewestFirst(t *testing.T) {
	store := NewGormStore(openTestDB(t))
	seed(t, store)
	repo := NewRepository(store, nil)

	got, err := repo.Search(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 4 || got[0].Title != "Skyline Heights" || got[3].Title != "Sea Breeze" {
		t.Fatalf("unexpected order: %v", titles(got))
	}

	page, err := repo.Search(context.Background(), "", 2, 1)
	if err != nil {
		t.Fatalf("search page: %v", err)
	}
	if len(page) != 2 || page[0].Title != "Green Acres" || page[1].Title != "Palm Court" {
		t.Fatalf("unexpected page: %v", titles(page))
	}
}

func TestSearch_AmenitiesDoNotFilter(t *testing.T) {
	store := NewGormStore(openTestDB(t))
	seed(t, store)
	repo := NewRepository(store, nil)

	got, err := repo.Search(context.Background(), "2 bhk with gym", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("amenity narrowed results: %v", titles(got))
	}
}

func TestSearch_PriceCeilingOnMinPrice(t *testing.T) {
	store := NewGormStore(openTestDB(t))
	seed(t, store)
	repo := NewRepository(store, nil)

	got, err := repo.Search(context.Background(), "under 70 lakh", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Palm Court" {
		t.Fatalf("unexpected results: %v", titles(got))
	}
}

func TestSearch_PluralPriceUnit(t *testing.T) {
	store := NewGormStore(openTestDB(t))
	seed(t, store)
	repo := NewRepository(store, nil)

	got, err := repo.Search(context.Background(), "1 BHK under 70 lakhs in Mumbai", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Palm Court" {
		t.Fatalf("unexpected results: %v", titles(got))
	}
}

func TestSearch_ChattyQueryKeepsPriceMatches(t *testing.T) {
	store := NewGormStore(openTestDB(t))
	seed(t, store)
	repo := NewRepository(store, nil)

	got, err := repo.Search(context.Background(), "what do you have under 1 crore", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []string{"Green Acres", "Palm Court", "Sea Breeze"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", titles(got), want)
	}
	for i, p := range got {
		if p.Title != want[i] {
			t.Fatalf("got %v, want %v", titles(got), want)
		}
	}
}

func TestSearch_ClampsLimit(t *testing.T) {
	f := &fakeFinder{}
	repo := NewRepository(&fakeStore{fakeFinder: f}, nil, WithLimits(5, 10))

	_, _ = repo.Search(context.Background(), "x", 0, -3)
	if f.limit != 5 || f.offset != 0 {
		t.Fatalf("defaults not applied: limit=%d offset=%d", f.limit, f.offset)
	}
	_, _ = repo.Search(context.Background(), "x", 500, 0)
	if f.limit != 10 {
		t.Fatalf("max not applied: %d", f.limit)
	}
}

func TestSearch_WrapsStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	repo := NewRepository(&fakeStore{fakeFinder: &fakeFinder{err: boom}}, nil)

	_, err := repo.Search(context.Background(), "2 bhk", 0, 0)
	var fe *FetchError
	if !errors.As(err, &fe) || !errors.Is(err, boom) {
		t.Fatalf("expected FetchError wrapping cause, got %v", err)
	}
}

func TestGetAndPatchOverview(t *testing.T) {
	store := NewGormStore(openTestDB(t))
	seed(t, store)
	repo := NewRepository(store, nil)
	ctx := context.Background()

	if _, err := repo.Get(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.PatchOverview(ctx, 999, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on patch, got %v", err)
	}

	if err := repo.PatchOverview(ctx, 1, "Calm sea-facing homes."); err != nil {
		t.Fatalf("patch: %v", err)
	}
	p, err := repo.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Overview != "Calm sea-facing homes." || len(p.Amenities) != 2 {
		t.Fatalf("unexpected row: %+v", p)
	}
}

type fakeFinder struct {
	calls  int
	limit  int
	offset int
	list   []Property
	err    error
}

func (f *fakeFinder) Find(_ context.Context, _ query.Criteria, limit, offset int) ([]Property, error) {
	f.calls++
	f.limit, f.offset = limit, offset
	return f.list, f.err
}

type fakeStore struct {
	*fakeFinder
	byID map[uint64]*Property
}

func (s *fakeStore) Get(_ context.Context, id uint64) (*Property, error) {
	if p, ok := s.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *fakeStore) PatchOverview(_ context.Context, id uint64, overview string) error {
	p, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	p.Overview = overview
	return nil
}
