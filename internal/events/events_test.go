package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func recv(t *testing.T, s *Subscription) Event {
	t.Helper()
	select {
	case e, ok := <-s.Events():
		if !ok {
			t.Fatal("subscription closed")
		}
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestEventJSON(t *testing.T) {
	at := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	e := New(SummaryUpdated, "u1", "u1", at)
	raw, err := e.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := FromJSON(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got != e {
		t.Fatalf("got %+v, want %+v", got, e)
	}

	for _, bad := range []string{`{"type":"summary_updated"}`, `{"userId":"u1"}`, `not json`, `{"type":"x","userId":"*"}`} {
		if _, err := FromJSON([]byte(bad)); err == nil {
			t.Errorf("FromJSON(%s) should fail", bad)
		}
	}
}

func TestMemoryBrokerRoutesByUser(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker(4)
	defer b.Close()

	me, _ := b.Subscribe(ctx, "me")
	other, _ := b.Subscribe(ctx, "other")
	all, _ := b.Subscribe(ctx, AllUsers)

	if err := b.Publish(ctx, New(FriendRequestCreated, "me", "x_me", time.Now())); err != nil {
		t.Fatal(err)
	}
	if e := recv(t, me); e.RefID != "x_me" {
		t.Fatalf("got %+v", e)
	}
	if e := recv(t, all); e.UserID != "me" {
		t.Fatalf("wildcard got %+v", e)
	}
	select {
	case e := <-other.Events():
		t.Fatalf("other user received %+v", e)
	default:
	}
}

func TestMemoryBrokerDropsWhenFull(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker(1)
	sub, _ := b.Subscribe(ctx, "me")

	for i := 0; i < 3; i++ {
		if err := b.Publish(ctx, New(SummaryUpdated, "me", "", time.Now())); err != nil {
			t.Fatal(err)
		}
	}
	if len(sub.Events()) != 1 {
		t.Fatalf("buffer holds %d events", len(sub.Events()))
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	b := NewMemoryBroker(1)
	sub, _ := b.Subscribe(context.Background(), "me")
	sub.Close()
	sub.Close()

	if _, ok := <-sub.Events(); ok {
		t.Fatal("events channel should be closed")
	}
	if n := b.Subscribers("me"); n != 0 {
		t.Fatalf("subscribers = %d after close", n)
	}
	if sub.Deliver(Event{Type: SummaryUpdated, UserID: "me"}) {
		t.Fatal("closed subscription accepted an event")
	}
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	b := NewMemoryBroker(1)
	ctx, cancel := context.WithCancel(context.Background())
	sub, _ := b.Subscribe(ctx, "me")
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	if _, ok := <-sub.Events(); ok {
		t.Fatal("events channel should be closed")
	}
}

func TestPublishRejectsInvalidEvents(t *testing.T) {
	b := NewMemoryBroker(1)
	err := b.Publish(context.Background(), Event{Type: SummaryUpdated})
	if !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("got %v", err)
	}
}
