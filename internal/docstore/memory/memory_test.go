package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ahorro/internal/docstore"
	"ahorro/internal/docstore/storetest"
)

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store { return New() })
}

func TestConcurrentCreateOnlyOneWins(t *testing.T) {
	s := New()
	ctx := context.Background()
	ref := docstore.Doc("usernames", "ana")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		taken   int
		workers = 16
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
				return tx.Create(ctx, ref, map[string]any{"uid": i})
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, docstore.ErrAlreadyExists):
				taken++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || taken != workers-1 {
		t.Fatalf("wins=%d taken=%d", wins, taken)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	ref := docstore.Doc("users", "u1")
	if err := s.Set(ctx, ref, map[string]any{"displayName": "Ana"}); err != nil {
		t.Fatal(err)
	}
	snap, _ := s.Get(ctx, ref)
	snap.Data["displayName"] = "changed"

	again, _ := s.Get(ctx, ref)
	if again.Data["displayName"] != "Ana" {
		t.Fatalf("store mutated through snapshot: %v", again.Data)
	}
}

func TestCancelledContextSkipsTransaction(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Fatalf("fn should not run with a cancelled context")
	}
}
