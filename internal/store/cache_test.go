package store_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nextlevelbuilder/codebot/internal/store"
	"github.com/nextlevelbuilder/codebot/internal/store/sqlite"
)

// pausingStore holds the first Get after it has read the row, until
// release is closed.
type pausingStore struct {
	*sqlite.MediaStore
	pause   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (p *pausingStore) Get(ctx context.Context, code string) (*store.MediaEntry, error) {
	e, err := p.MediaStore.Get(ctx, code)
	if p.pause.CompareAndSwap(true, false) {
		close(p.read)
		<-p.release
	}
	return e, err
}

func TestCached_WriteDuringMissIsNotShadowed(t *testing.T) {
	tests := []struct {
		name  string
		write func(ctx context.Context, s store.MediaStore) error
		check func(t *testing.T, e *store.MediaEntry, err error)
	}{
		{
			name: "put",
			write: func(ctx context.Context, s store.MediaStore) error {
				return s.Put(ctx, "MOV1", 99, "new")
			},
			check: func(t *testing.T, e *store.MediaEntry, err error) {
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if e.SourceMessageID != 99 {
					t.Errorf("stale entry: message id = %d, want 99", e.SourceMessageID)
				}
			},
		},
		{
			name: "delete",
			write: func(ctx context.Context, s store.MediaStore) error {
				_, err := s.Delete(ctx, "MOV1")
				return err
			},
			check: func(t *testing.T, e *store.MediaEntry, err error) {
				if !errors.Is(err, store.ErrNotFound) {
					t.Errorf("Get after delete = %+v, %v; want ErrNotFound", e, err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backing := &pausingStore{
				MediaStore: openSQLite(t),
				read:       make(chan struct{}),
				release:    make(chan struct{}),
			}
			if err := backing.MediaStore.Put(ctx, "MOV1", 10, "old"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			backing.pause.Store(true)
			s := store.Cached(backing, 16, time.Minute)

			done := make(chan struct{})
			go func() {
				defer close(done)
				s.Get(ctx, "MOV1")
			}()

			<-backing.read
			if err := tt.write(ctx, s); err != nil {
				t.Fatalf("write: %v", err)
			}
			close(backing.release)
			<-done

			e, err := s.Get(ctx, "MOV1")
			tt.check(t, e, err)
		})
	}
}

func TestCached_InvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	backing := openSQLite(t)
	s := store.Cached(backing, 16, time.Minute)

	if err := s.Put(ctx, "MOV1", 10, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if e, err := s.Get(ctx, "MOV1"); err != nil || e.SourceMessageID != 10 {
		t.Fatalf("Get = %+v, %v", e, err)
	}

	if err := s.Put(ctx, "MOV1", 99, ""); err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, err := s.Get(ctx, "MOV1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if e.SourceMessageID != 99 {
		t.Errorf("cached stale entry: message id = %d, want 99", e.SourceMessageID)
	}

	if ok, _ := s.Delete(ctx, "MOV1"); !ok {
		t.Fatal("Delete returned false")
	}
	if _, err := s.Get(ctx, "MOV1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
}

func TestCached_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	backing := openSQLite(t)
	s := store.Cached(backing, 16, time.Minute)

	backing.Put(ctx, "MOV1", 10, "")
	if _, err := s.Get(ctx, "MOV1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	cs := s.(*store.CachedStore)
	if cs.Len() != 1 {
		t.Errorf("Len = %d, want 1", cs.Len())
	}

	// A miss is not cached.
	s.Get(ctx, "MOV2")
	if cs.Len() != 1 {
		t.Errorf("Len after miss = %d, want 1", cs.Len())
	}
}

func TestCached_DisabledReturnsBacking(t *testing.T) {
	backing := openSQLite(t)
	if s := store.Cached(backing, 0, time.Minute); s != store.MediaStore(backing) {
		t.Error("Cached with size 0 should return the backing store")
	}
}
