package store

import (
	"context"
	"strings"

	"github.com/nextlevelbuilder/codebot/internal/codes"
)

// Ingest indexes every code in caption against sourceMessageID.
// The caption is upper-cased before extraction, so "mov45" indexes MOV45.
// Each occurrence is written, duplicates included, and the returned count
// is the number of occurrences written. On failure the count covers the
// writes that succeeded before it.
func Ingest(ctx context.Context, s MediaStore, sourceMessageID int, caption string) (int, error) {
	n := 0
	for _, code := range codes.Extract(strings.ToUpper(caption)) {
		if err := s.Put(ctx, code, sourceMessageID, caption); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
