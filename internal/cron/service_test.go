package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestNew_InvalidExpression(t *testing.T) {
	if _, err := New("backup", "every night", nil); err == nil {
		t.Fatal("expected error for invalid expression")
	}
}

func TestNext(t *testing.T) {
	s, err := New("backup", "0 3 * * *", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ref := time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC)
	next, err := s.Next(ref)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	want := time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("Next = %v, want %v", next, want)
	}
}

func TestRunOnce_Retries(t *testing.T) {
	calls := 0
	s, _ := New("backup", "@daily", func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		return nil
	})
	s.SetRetryConfig(RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ran := make(chan struct{}, 1)
	s, _ := New("backup", "0 3 * * *", func(context.Context) error {
		ran <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if len(ran) != 0 {
		t.Error("job ran before its first tick")
	}
}
