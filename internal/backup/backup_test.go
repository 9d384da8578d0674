package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/codebot/internal/store"
	"github.com/nextlevelbuilder/codebot/internal/store/sqlite"
)

func openStore(t *testing.T) *sqlite.MediaStore {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "media.db"), time.Second)
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func codesOf(entries []store.MediaEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Code
	}
	return out
}

func TestExportImport_PreservesEntriesAndOrder(t *testing.T) {
	ctx := context.Background()
	src := openStore(t)
	for i := 1; i <= 5; i++ {
		if err := src.Put(ctx, fmt.Sprintf("MOV%d", i), 100+i, fmt.Sprintf("caption %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 5 || strings.Count(buf.String(), "\n") != 5 {
		t.Fatalf("exported %d entries, %d lines", n, strings.Count(buf.String(), "\n"))
	}

	dst := openStore(t)
	n, err = Import(ctx, dst, &buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 5 {
		t.Errorf("imported %d, want 5", n)
	}

	want, _ := src.ListRecent(ctx, 10, 0)
	got, _ := dst.ListRecent(ctx, 10, 0)
	if strings.Join(codesOf(got), ",") != strings.Join(codesOf(want), ",") {
		t.Errorf("order = %v, want %v", codesOf(got), codesOf(want))
	}
	e, err := dst.Get(ctx, "MOV3")
	if err != nil || e.SourceMessageID != 103 || e.Caption != "caption 3" {
		t.Errorf("MOV3 = %+v, %v", e, err)
	}
}

// writingStore runs onPage after each ListAfter call, standing in for live
// ingestion while an export pages through the store.
type writingStore struct {
	*sqlite.MediaStore
	onPage func(page []store.MediaEntry)
}

func (w *writingStore) ListAfter(ctx context.Context, after *store.MediaEntry, limit int) ([]store.MediaEntry, error) {
	page, err := w.MediaStore.ListAfter(ctx, after, limit)
	if err == nil && w.onPage != nil {
		w.onPage(page)
		w.onPage = nil
	}
	return page, err
}

func TestExport_ConcurrentWrites(t *testing.T) {
	old := exportPageSize
	exportPageSize = 2
	t.Cleanup(func() { exportPageSize = old })

	tests := []struct {
		name   string
		onPage func(s *sqlite.MediaStore) func([]store.MediaEntry)
		want   []string
	}{
		{
			name: "delete_exported_entry",
			onPage: func(s *sqlite.MediaStore) func([]store.MediaEntry) {
				return func(page []store.MediaEntry) { s.Delete(context.Background(), page[0].Code) }
			},
			want: []string{"MOV6", "MOV5", "MOV4", "MOV3", "MOV2", "MOV1"},
		},
		{
			name: "insert_new_entry",
			onPage: func(s *sqlite.MediaStore) func([]store.MediaEntry) {
				return func([]store.MediaEntry) { s.Put(context.Background(), "NEW1", 1, "") }
			},
			want: []string{"MOV6", "MOV5", "MOV4", "MOV3", "MOV2", "MOV1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := openStore(t)
			for i := 1; i <= 6; i++ {
				base.Put(ctx, fmt.Sprintf("MOV%d", i), i, "")
				time.Sleep(time.Millisecond)
			}
			src := &writingStore{MediaStore: base, onPage: tt.onPage(base)}

			var buf bytes.Buffer
			if _, err := Export(ctx, src, &buf); err != nil {
				t.Fatalf("Export: %v", err)
			}
			got, err := decode(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if strings.Join(codesOf(got), ",") != strings.Join(tt.want, ",") {
				t.Errorf("exported %v, want %v", codesOf(got), tt.want)
			}
		})
	}
}

func TestImport_MalformedLineWritesNothing(t *testing.T) {
	ctx := context.Background()
	dst := openStore(t)

	input := `{"code":"MOV1","source_message_id":1}

{"code":"MOV2","source_message_id":
`
	if _, err := Import(ctx, dst, strings.NewReader(input)); err == nil {
		t.Fatal("expected error")
	}
	if n, _ := dst.Count(ctx); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestImport_RejectsInvalidCode(t *testing.T) {
	dst := openStore(t)
	_, err := Import(context.Background(), dst, strings.NewReader(`{"code":"mov1","source_message_id":1}`))
	if err == nil {
		t.Fatal("expected error for lowercase code")
	}
}

func TestExportToImportFrom_File(t *testing.T) {
	ctx := context.Background()
	src := openStore(t)
	src.Put(ctx, "SER10", 10, "")

	path := filepath.Join(t.TempDir(), "nested", "codebot.jsonl")
	if n, err := ExportTo(ctx, src, path); err != nil || n != 1 {
		t.Fatalf("ExportTo = %d, %v", n, err)
	}

	dst := openStore(t)
	if n, err := ImportFrom(ctx, dst, path); err != nil || n != 1 {
		t.Fatalf("ImportFrom = %d, %v", n, err)
	}
	if _, err := dst.Get(ctx, "SER10"); err != nil {
		t.Errorf("Get: %v", err)
	}
}

func TestParseS3(t *testing.T) {
	tests := []struct {
		target  string
		isS3    bool
		wantErr bool
		want    s3Location
	}{
		{"backups/codebot.jsonl", false, false, s3Location{}},
		{"s3://bucket/codebot.jsonl", true, false, s3Location{Bucket: "bucket", Key: "codebot.jsonl"}},
		{"s3://bucket/daily/codebot.jsonl", true, false, s3Location{Bucket: "bucket", Key: "daily/codebot.jsonl"}},
		{"s3://bucket", true, true, s3Location{}},
		{"s3:///key", true, true, s3Location{}},
	}
	for _, tt := range tests {
		loc, isS3, err := parseS3(tt.target)
		if isS3 != tt.isS3 || (err != nil) != tt.wantErr || loc != tt.want {
			t.Errorf("parseS3(%q) = %+v, %v, %v", tt.target, loc, isS3, err)
		}
		if tt.wantErr && !errors.Is(err, ErrBadTarget) {
			t.Errorf("parseS3(%q) error %v is not ErrBadTarget", tt.target, err)
		}
	}
}
