package services

import (
	"context"
	"testing"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/docstore/memory"
	"ahorro/internal/events"
	"ahorro/internal/identity"
	"ahorro/internal/repo"
)

var march = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return march }

func as(uid string) context.Context {
	return identity.WithUID(context.Background(), uid)
}

type fixture struct {
	store  *memory.Store
	broker *events.MemoryBroker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), broker: events.NewMemoryBroker(8)}
	t.Cleanup(func() { f.broker.Close() })
	return f
}

func (f *fixture) addUser(t *testing.T, p core.Profile) {
	t.Helper()
	if err := repo.For(f.store).Users.Create(context.Background(), p); err != nil {
		t.Fatalf("create user %s: %v", p.UID, err)
	}
}

func (f *fixture) befriend(t *testing.T, a, b string) {
	t.Helper()
	for _, fr := range core.FriendshipPair(a, b, march) {
		if err := repo.For(f.store).Friends.Add(context.Background(), fr); err != nil {
			t.Fatal(err)
		}
	}
}

// recordingPublisher captures events and can be told to fail.
type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func waitUpdate(t *testing.T, sub *IncomingSubscription) []IncomingRequest {
	t.Helper()
	select {
	case u, ok := <-sub.Updates():
		if !ok {
			t.Fatal("updates closed")
		}
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	return nil
}
