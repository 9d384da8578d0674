package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/nextlevelbuilder/codebot/internal/store"
)

func newTestStore(t *testing.T) *MediaStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "media.db"), time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestMediaStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, "MOV1", 10, "Movie MOV1"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	e, err := s.Get(ctx, "MOV1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.SourceMessageID != 10 || e.Caption != "Movie MOV1" {
		t.Errorf("entry = %+v", e)
	}
	if e.IndexedAt.IsZero() {
		t.Error("IndexedAt not set")
	}

	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	if _, err := s.Get(ctx, "MOV2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get missing: err = %v, want ErrNotFound", err)
	}
}

func TestMediaStore_PutIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	if err := s.Put(ctx, "MOV1", 10, "x"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	first, _ := s.Get(ctx, "MOV1")
	if err := s.Put(ctx, "MOV1", 10, "x"); err != nil {
		t.Fatalf("Put again: %v", err)
	}
	second, _ := s.Get(ctx, "MOV1")

	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	if !second.IndexedAt.After(first.IndexedAt) {
		t.Errorf("IndexedAt not refreshed: first=%v second=%v", first.IndexedAt, second.IndexedAt)
	}
}

func TestMediaStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Put(ctx, "MOV1", 10, "old")
	s.Put(ctx, "MOV1", 99, "new")

	e, err := s.Get(ctx, "MOV1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.SourceMessageID != 99 {
		t.Errorf("SourceMessageID = %d, want 99", e.SourceMessageID)
	}
	if e.Caption != "new" {
		t.Errorf("Caption = %q, want %q", e.Caption, "new")
	}
}

func TestMediaStore_PutRejectsInvalidCode(t *testing.T) {
	s := newTestStore(t)
	if err := s.Put(context.Background(), "mov1", 1, ""); err == nil {
		t.Fatal("expected error for lowercase code")
	}
}

func TestMediaStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.Put(ctx, "MOV1", 10, "")

	ok, err := s.Delete(ctx, "MOV2")
	if err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
	if ok {
		t.Error("Delete absent returned true")
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count after absent delete = %d, want 1", n)
	}

	ok, err = s.Delete(ctx, "MOV1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !ok {
		t.Error("Delete present returned false")
	}
	if _, err := s.Get(ctx, "MOV1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestMediaStore_ListRecent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 1; i <= 5; i++ {
		if err := s.Put(ctx, fmt.Sprintf("MOV%d", i), i, ""); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	// Re-indexing moves MOV2 to the front.
	s.Put(ctx, "MOV2", 2, "")

	got, err := s.ListRecent(ctx, 3, 0)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	want := []string{"MOV2", "MOV5", "MOV4"}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Code != want[i] {
			t.Errorf("entry %d = %s, want %s", i, got[i].Code, want[i])
		}
	}

	page2, err := s.ListRecent(ctx, 3, 3)
	if err != nil {
		t.Fatalf("ListRecent offset: %v", err)
	}
	if len(page2) != 2 || page2[0].Code != "MOV3" || page2[1].Code != "MOV1" {
		t.Errorf("page 2 = %+v", page2)
	}
}

func TestMediaStore_ListAfter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 1; i <= 5; i++ {
		s.Put(ctx, fmt.Sprintf("MOV%d", i), i, "")
	}

	first, err := s.ListAfter(ctx, nil, 2)
	if err != nil {
		t.Fatalf("ListAfter: %v", err)
	}
	if len(first) != 2 || first[0].Code != "MOV5" || first[1].Code != "MOV4" {
		t.Fatalf("first page = %+v", first)
	}

	// Deleting a listed entry does not shift the next page.
	s.Delete(ctx, "MOV5")
	next, err := s.ListAfter(ctx, &first[1], 2)
	if err != nil {
		t.Fatalf("ListAfter: %v", err)
	}
	if len(next) != 2 || next[0].Code != "MOV3" || next[1].Code != "MOV2" {
		t.Errorf("next page = %+v", next)
	}
}

func TestMediaStore_ListAfterTiedTimestamps(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	for _, code := range []string{"B1", "A1", "C1"} {
		s.Put(ctx, code, 1, "")
	}

	var got []string
	var after *store.MediaEntry
	for {
		page, err := s.ListAfter(ctx, after, 1)
		if err != nil {
			t.Fatalf("ListAfter: %v", err)
		}
		if len(page) == 0 {
			break
		}
		got = append(got, page[0].Code)
		after = &page[0]
	}
	if fmt.Sprint(got) != "[A1 B1 C1]" {
		t.Errorf("walk = %v, want [A1 B1 C1]", got)
	}
}

func TestMediaStore_SearchByCode(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 25; i >= 1; i-- {
		s.Put(ctx, fmt.Sprintf("MOV%02d", i), i, "")
	}
	s.Put(ctx, "SER1", 100, "")
	s.Put(ctx, "XMOVX1", 101, "")

	got, err := s.SearchByCode(ctx, "MOV", 0)
	if err != nil {
		t.Fatalf("SearchByCode: %v", err)
	}
	if len(got) != store.DefaultSearchLimit {
		t.Fatalf("got %d results, want %d", len(got), store.DefaultSearchLimit)
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i].Code < got[j].Code }) {
		t.Error("results not sorted by code")
	}
	for _, e := range got {
		if e.Code == "SER1" {
			t.Error("SER1 should not match MOV")
		}
	}
	if got[0].Code != "MOV01" {
		t.Errorf("first = %s, want MOV01", got[0].Code)
	}
}

func TestMediaStore_SearchIsLiteral(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	s.Put(ctx, "MOV1", 1, "")

	for _, pattern := range []string{"%", "_", "mov"} {
		got, err := s.SearchByCode(ctx, pattern, 0)
		if err != nil {
			t.Fatalf("SearchByCode(%q): %v", pattern, err)
		}
		if len(got) != 0 {
			t.Errorf("SearchByCode(%q) = %v, want no results", pattern, got)
		}
	}
}

func TestMediaStore_ClosedIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "media.db"), time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()

	if err := s.Put(ctx, "MOV1", 1, ""); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Put: err = %v, want ErrUnavailable", err)
	}
	if _, err := s.Get(ctx, "MOV1"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Get: err = %v, want ErrUnavailable", err)
	}
	if _, err := s.Count(ctx); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("Count: err = %v, want ErrUnavailable", err)
	}
}
