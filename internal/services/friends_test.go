package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ahorro/internal/cache"
	"ahorro/internal/core"
	"ahorro/internal/docstore"
	"ahorro/internal/repo"
)

func newFriendService(f *fixture) *FriendService {
	return NewFriendService(f.store, f.broker, cache.NewLRUCache[core.Profile](16, time.Minute)).WithClock(fixedClock)
}

func TestSearchByUsernamePrefix(t *testing.T) {
	f := newFixture(t)
	svc := newFriendService(f)
	for _, p := range []core.Profile{
		{UID: "me", Username: "anita"},
		{UID: "u1", Username: "Ana01"},
		{UID: "u2", Username: "anab"},
		{UID: "u3", Username: "bob"},
		{UID: "u4", Username: "an"},
		{UID: "u5", Username: "ana_x"},
	} {
		f.addUser(t, p)
	}

	tests := []struct {
		name   string
		caller string
		text   string
		want   []string
	}{
		{"prefix is case insensitive and trimmed", "other", "  ANA ", []string{"u1", "u5", "u2"}},
		{"caller excluded from own prefix", "u1", "ana", []string{"u5", "u2"}},
		{"caller left out", "me", "anit", []string{}},
		{"no match", "other", "zzz", []string{}},
		{"blank", "other", "   ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SearchByUsernamePrefix(as(tt.caller), tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results: %+v", len(got), got)
			}
			for i, p := range got {
				if p.UID != tt.want[i] {
					t.Errorf("result %d = %s, want %s", i, p.UID, tt.want[i])
				}
			}
		})
	}
}

func TestSearchIsCappedAtTwenty(t *testing.T) {
	f := newFixture(t)
	svc := newFriendService(f)
	for i := 0; i < 25; i++ {
		uid := string(rune('a'+i)) + "uid"
		f.addUser(t, core.Profile{UID: uid, Username: "user" + string(rune('a'+i))})
	}
	got, err := svc.SearchByUsernamePrefix(as("nobody"), "user")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != core.SearchLimit {
		t.Fatalf("got %d results", len(got))
	}
}

func TestSendRequestRules(t *testing.T) {
	f := newFixture(t)
	svc := newFriendService(f)
	for _, uid := range []string{"a", "b", "c"} {
		f.addUser(t, core.Profile{UID: uid, Username: "user_" + uid})
	}
	f.befriend(t, "a", "c")

	if _, err := svc.SendRequest(as("a"), "b"); err != nil {
		t.Fatalf("first request: %v", err)
	}

	tests := []struct {
		name    string
		from    string
		to      string
		wantErr error
	}{
		{"self", "a", "a", core.ErrSelfRequest},
		{"unknown recipient", "a", "ghost", core.ErrNotFound},
		{"duplicate", "a", "b", core.ErrRequestExists},
		{"reverse while pending", "b", "a", core.ErrRequestExists},
		{"already friends", "a", "c", core.ErrAlreadyFriends},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendRequest(as(tt.from), tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	pending, err := repo.For(f.store).FriendRequests.Pending(context.Background(), "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != "a_b" || pending[0].Status != core.RequestPending {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestAcceptRequest(t *testing.T) {
	f := newFixture(t)
	svc := newFriendService(f)
	f.addUser(t, core.Profile{UID: "a", Username: "ana"})
	f.addUser(t, core.Profile{UID: "b", Username: "beto"})

	req, err := svc.SendRequest(as("a"), "b")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AcceptRequest(as("a"), req.ID); !errors.Is(err, core.ErrNotRecipient) {
		t.Fatalf("sender accepting: %v", err)
	}
	if err := svc.AcceptRequest(as("b"), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing request: %v", err)
	}
	if err := svc.AcceptRequest(as("b"), req.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	r := repo.For(f.store)
	ctx := context.Background()
	ab, _ := r.Friends.Exists(ctx, "a", "b")
	ba, _ := r.Friends.Exists(ctx, "b", "a")
	if !ab || !ba {
		t.Fatalf("friendship not symmetric: a->b=%v b->a=%v", ab, ba)
	}
	if _, err := r.FriendRequests.Get(ctx, req.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("request should be deleted: %v", err)
	}

	friends, err := svc.MyFriends(as("a"))
	if err != nil || len(friends) != 1 || friends[0] != "b" {
		t.Fatalf("MyFriends = %v, %v", friends, err)
	}
	profiles, err := svc.FriendProfiles(as("b"))
	if err != nil || len(profiles) != 1 || profiles[0].Username != "ana" {
		t.Fatalf("FriendProfiles = %+v, %v", profiles, err)
	}
}

func TestAcceptRequestIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	svc := newFriendService(f)
	ctx := context.Background()
	// A request that is no longer pending must not produce a friendship.
	err := repo.For(f.store).FriendRequests.Create(ctx, core.FriendRequest{
		ID: "a_b", FromUID: "a", ToUID: "b", Status: core.RequestAccepted, CreatedAt: march,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AcceptRequest(as("b"), "a_b"); !errors.Is(err, core.ErrRequestNotPending) {
		t.Fatalf("got %v", err)
	}
	r := repo.For(f.store)
	if ok, _ := r.Friends.Exists(ctx, "a", "b"); ok {
		t.Fatal("friendship written for a non-pending request")
	}
	if _, err := r.FriendRequests.Get(ctx, "a_b"); err != nil {
		t.Fatalf("request should remain: %v", err)
	}
}

func TestIncomingRequestsEnrichedAndCached(t *testing.T) {
	f := newFixture(t)
	svc := newFriendService(f)
	f.addUser(t, core.Profile{UID: "me", Username: "yo"})
	f.addUser(t, core.Profile{UID: "a", Username: "ana", DisplayName: "Ana"})
	// sender without a profile
	if err := repo.For(f.store).FriendRequests.Create(context.Background(), core.FriendRequest{
		ID: "ghost_me", FromUID: "ghost", ToUID: "me", Status: core.RequestPending, CreatedAt: march.Add(-time.Hour),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SendRequest(as("a"), "me"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.IncomingRequests(as("me"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].FromDisplayName != core.UnnamedDisplayName || got[0].FromUsername != core.UnknownUsername {
		t.Errorf("placeholder row = %+v", got[0])
	}
	if got[1].FromDisplayName != "Ana" || got[1].FromUsername != "ana" {
		t.Errorf("enriched row = %+v", got[1])
	}

	// served from cache after the profile changes
	if err := f.store.Merge(context.Background(), docstore.Doc("users", "a"), map[string]any{"displayName": "Changed"}); err != nil {
		t.Fatal(err)
	}
	again, _ := svc.IncomingRequests(as("me"))
	if again[1].FromDisplayName != "Ana" {
		t.Errorf("expected cached display name, got %q", again[1].FromDisplayName)
	}
}

func TestSubscribeIncoming(t *testing.T) {
	f := newFixture(t)
	svc := newFriendService(f)
	f.addUser(t, core.Profile{UID: "me", Username: "yo"})
	f.addUser(t, core.Profile{UID: "a", Username: "ana"})

	ctx, cancel := context.WithCancel(as("me"))
	defer cancel()
	sub, err := svc.SubscribeIncoming(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if initial := waitUpdate(t, sub); len(initial) != 0 {
		t.Fatalf("initial = %+v", initial)
	}

	if _, err := svc.SendRequest(as("a"), "me"); err != nil {
		t.Fatal(err)
	}
	update := waitUpdate(t, sub)
	if len(update) != 1 || update[0].Request.FromUID != "a" {
		t.Fatalf("update = %+v", update)
	}

	sub.Close()
	sub.Close()
	select {
	case _, ok := <-sub.Updates():
		if ok {
			t.Fatal("updates should close after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("updates not closed")
	}
}

func TestSubscribeIncomingEndsWithContext(t *testing.T) {
	f := newFixture(t)
	svc := newFriendService(f)
	ctx, cancel := context.WithCancel(as("me"))
	sub, err := svc.SubscribeIncoming(ctx)
	if err != nil {
		t.Fatal(err)
	}
	waitUpdate(t, sub)
	cancel()

	select {
	case _, ok := <-sub.Updates():
		if ok {
			t.Fatal("unexpected update after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("updates not closed after cancel")
	}
	if n := f.broker.Subscribers("me"); n != 0 {
		t.Fatalf("broker still has %d subscribers", n)
	}
}
