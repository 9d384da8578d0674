// Package backup exports the code index to JSON lines and imports it back.
// Targets are local file paths or s3://bucket/key URLs.
package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/nextlevelbuilder/codebot/internal/store"
)

// exportPageSize is the number of entries read per ListAfter call.
var exportPageSize = 500

// maxLineBytes bounds one JSON line on import.
const maxLineBytes = 1 << 20

// Export writes every entry as one JSON object per line, newest first.
// Entries re-indexed while the export runs move ahead of the cursor and are
// left for the next export.
func Export(ctx context.Context, s store.MediaStore, w io.Writer) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)

	n := 0
	var after *store.MediaEntry
	for {
		page, err := s.ListAfter(ctx, after, exportPageSize)
		if err != nil {
			return n, fmt.Errorf("list entries after %d: %w", n, err)
		}
		for _, e := range page {
			if err := enc.Encode(e); err != nil {
				return n, fmt.Errorf("encode %s: %w", e.Code, err)
			}
			n++
		}
		if len(page) < exportPageSize {
			break
		}
		after = &page[len(page)-1]
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// Import reads a file written by Export and stores every entry. Entries are
// written oldest first so the recent-first listing keeps its order. Lines
// that are blank are skipped; a malformed line aborts before anything is
// written.
func Import(ctx context.Context, s store.MediaStore, r io.Reader) (int, error) {
	entries, err := decode(r)
	if err != nil {
		return 0, err
	}

	slices.Reverse(entries)
	for i, e := range entries {
		if err := s.Put(ctx, e.Code, e.SourceMessageID, e.Caption); err != nil {
			return i, fmt.Errorf("put %s: %w", e.Code, err)
		}
	}
	slog.Info("backup imported", "entries", len(entries))
	return len(entries), nil
}

func decode(r io.Reader) ([]store.MediaEntry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var entries []store.MediaEntry
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var e store.MediaEntry
		if err := json.Unmarshal([]byte(text), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := store.ValidateCode(e.Code); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	return entries, nil
}
