package pg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/codebot/internal/store"
)

// openTestStore connects to CODEBOT_TEST_POSTGRES_DSN or skips.
func openTestStore(t *testing.T) *PGMediaStore {
	t.Helper()
	dsn := os.Getenv("CODEBOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CODEBOT_TEST_POSTGRES_DSN not set")
	}
	s, err := Open(dsn, 5*time.Second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.db.Exec("TRUNCATE media_entries"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql://localhost/db", "pgx5://localhost/db"},
		{"pgx5://localhost/db", "pgx5://localhost/db"},
	}
	for _, tt := range tests {
		if got := migrateURL(tt.in); got != tt.want {
			t.Errorf("migrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPGMediaStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Put(ctx, "MOV1", 10, "x"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "MOV1", 99, "y"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	e, err := s.Get(ctx, "MOV1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.SourceMessageID != 99 || e.Caption != "y" {
		t.Errorf("entry = %+v", e)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	ok, err := s.Delete(ctx, "MOV1")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if _, err := s.Get(ctx, "MOV1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: err = %v", err)
	}
}

func TestPGMediaStore_SearchByCode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 1; i <= 25; i++ {
		s.Put(ctx, fmt.Sprintf("MOV%02d", i), i, "")
	}
	s.Put(ctx, "SER1", 100, "")

	got, err := s.SearchByCode(ctx, "MOV", 0)
	if err != nil {
		t.Fatalf("SearchByCode: %v", err)
	}
	if len(got) != store.DefaultSearchLimit {
		t.Fatalf("got %d, want %d", len(got), store.DefaultSearchLimit)
	}
	if got[0].Code != "MOV01" || got[19].Code != "MOV20" {
		t.Errorf("unexpected order: first=%s last=%s", got[0].Code, got[19].Code)
	}
}

func TestPGMediaStore_ListAfterWalksEveryEntry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	for i := 1; i <= 5; i++ {
		s.Put(ctx, fmt.Sprintf("MOV%d", i), i, "")
	}

	seen := map[string]int{}
	var after *store.MediaEntry
	for {
		page, err := s.ListAfter(ctx, after, 2)
		if err != nil {
			t.Fatalf("ListAfter: %v", err)
		}
		for _, e := range page {
			seen[e.Code]++
		}
		if len(page) < 2 {
			break
		}
		// Removing an already listed row must not shift the walk.
		s.Delete(ctx, page[0].Code)
		after = &page[len(page)-1]
	}
	if len(seen) != 5 {
		t.Errorf("walk saw %d codes, want 5: %v", len(seen), seen)
	}
	for code, n := range seen {
		if n != 1 {
			t.Errorf("%s listed %d times", code, n)
		}
	}
}

func TestPGMediaStore_LongCode(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	code := strings.Repeat("A", 100) + "1"
	if err := s.Put(ctx, code, 1, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(ctx, code); err != nil {
		t.Errorf("Get: %v", err)
	}
}
