// Package storetest holds behaviour checks shared by every docstore backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ahorro/internal/docstore"
)

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) docstore.Store) {
	t.Helper()
	cases := []struct {
		name string
		fn   func(t *testing.T, s docstore.Store)
	}{
		{"GetMissing", testGetMissing},
		{"SetOverwrites", testSetOverwrites},
		{"MergeIsShallow", testMergeIsShallow},
		{"CreateRejectsExisting", testCreateRejectsExisting},
		{"DeleteMissingIsNoop", testDeleteMissing},
		{"NormalizesValues", testNormalizes},
		{"QueryFiltersAndOrders", testQueryFiltersAndOrders},
		{"QueryPrefixRange", testQueryPrefixRange},
		{"QueryNestedCollection", testQueryNestedCollection},
		{"QueryRejectsBadField", testQueryRejectsBadField},
		{"TransactionCommits", testTransactionCommits},
		{"TransactionRollsBack", testTransactionRollsBack},
		{"TransactionSeesOwnWrites", testTransactionSeesOwnWrites},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func mustSet(t *testing.T, s docstore.Accessor, ref docstore.Ref, data map[string]any) {
	t.Helper()
	if err := s.Set(context.Background(), ref, data); err != nil {
		t.Fatalf("set %s: %v", ref, err)
	}
}

func mustGet(t *testing.T, s docstore.Accessor, ref docstore.Ref) docstore.Snapshot {
	t.Helper()
	snap, err := s.Get(context.Background(), ref)
	if err != nil {
		t.Fatalf("get %s: %v", ref, err)
	}
	return snap
}

func ids(snaps []docstore.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Ref.ID
	}
	return out
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func testGetMissing(t *testing.T, s docstore.Store) {
	snap := mustGet(t, s, docstore.Doc("users", "nobody"))
	if snap.Exists {
		t.Fatalf("expected missing document")
	}
}

func testSetOverwrites(t *testing.T, s docstore.Store) {
	ref := docstore.Doc("summaries", "u1")
	mustSet(t, s, ref, map[string]any{"totalSpent": 10, "goalMet": true})
	mustSet(t, s, ref, map[string]any{"totalSpent": 20})

	snap := mustGet(t, s, ref)
	if !snap.Exists {
		t.Fatalf("expected document")
	}
	if snap.Data["totalSpent"] != float64(20) {
		t.Fatalf("totalSpent = %v", snap.Data["totalSpent"])
	}
	if _, ok := snap.Data["goalMet"]; ok {
		t.Fatalf("set must replace the whole document, got %v", snap.Data)
	}
}

func testMergeIsShallow(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	ref := docstore.Doc("users", "u1")
	mustSet(t, s, ref, map[string]any{
		"displayName":  "Ana",
		"estadisticas": map[string]any{"co2Reducido": 1, "aguaReducida": 2},
	})
	if err := s.Merge(ctx, ref, map[string]any{
		"shareStats":   true,
		"estadisticas": map[string]any{"co2Reducido": 5},
	}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	snap := mustGet(t, s, ref)
	if snap.Data["displayName"] != "Ana" || snap.Data["shareStats"] != true {
		t.Fatalf("merge lost fields: %v", snap.Data)
	}
	stats, _ := snap.Data["estadisticas"].(map[string]any)
	if _, ok := stats["aguaReducida"]; ok {
		t.Fatalf("nested maps are replaced, not merged: %v", stats)
	}

	// merge creates missing documents
	if err := s.Merge(ctx, docstore.Doc("users", "u2"), map[string]any{"shareStats": false}); err != nil {
		t.Fatalf("merge new: %v", err)
	}
	if !mustGet(t, s, docstore.Doc("users", "u2")).Exists {
		t.Fatalf("merge should create the document")
	}
}

func testCreateRejectsExisting(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	ref := docstore.Doc("usernames", "ana01")
	if err := s.Create(ctx, ref, map[string]any{"uid": "u1"}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := s.Create(ctx, ref, map[string]any{"uid": "u2"})
	if !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if got := mustGet(t, s, ref).Data["uid"]; got != "u1" {
		t.Fatalf("owner changed to %v", got)
	}
}

func testDeleteMissing(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	if err := s.Delete(ctx, docstore.Doc("friend_requests", "nope")); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	ref := docstore.Doc("friend_requests", "a_b")
	mustSet(t, s, ref, map[string]any{"status": "pending"})
	if err := s.Delete(ctx, ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mustGet(t, s, ref).Exists {
		t.Fatalf("document still exists")
	}
}

func testNormalizes(t *testing.T, s docstore.Store) {
	ref := docstore.Doc("expenses/u1/transactions", "t1")
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mustSet(t, s, ref, map[string]any{"amount": 12, "createdAt": at, "tags": []string{"a"}})

	data := mustGet(t, s, ref).Data
	if _, ok := data["amount"].(float64); !ok {
		t.Fatalf("numbers should read back as float64, got %T", data["amount"])
	}
	if data["createdAt"] != at.Format(time.RFC3339Nano) {
		t.Fatalf("times should read back as RFC 3339, got %v", data["createdAt"])
	}
	if _, ok := data["tags"].([]any); !ok {
		t.Fatalf("slices should read back as []any, got %T", data["tags"])
	}
}

func testQueryFiltersAndOrders(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	mustSet(t, s, docstore.Doc("friend_requests", "a_me"), map[string]any{"toUid": "me", "status": "pending", "createdAt": "2025-03-02T00:00:00Z"})
	mustSet(t, s, docstore.Doc("friend_requests", "b_me"), map[string]any{"toUid": "me", "status": "pending", "createdAt": "2025-03-01T00:00:00Z"})
	mustSet(t, s, docstore.Doc("friend_requests", "c_me"), map[string]any{"toUid": "me", "status": "accepted", "createdAt": "2025-03-03T00:00:00Z"})
	mustSet(t, s, docstore.Doc("friend_requests", "d_x"), map[string]any{"toUid": "x", "status": "pending", "createdAt": "2025-03-04T00:00:00Z"})
	mustSet(t, s, docstore.Doc("friend_requests", "e_me"), map[string]any{"toUid": "me", "status": "pending"})

	q := docstore.Query{Collection: "friend_requests", OrderBy: "createdAt"}.
		Where("toUid", docstore.OpEqual, "me").
		Where("status", docstore.OpEqual, "pending")
	got, err := s.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	// e_me lacks the order field and is dropped
	if !equalIDs(ids(got), "b_me", "a_me") {
		t.Fatalf("got %v", ids(got))
	}

	q.Desc = true
	q.Limit = 1
	got, err = s.Query(ctx, q)
	if err != nil {
		t.Fatalf("query desc: %v", err)
	}
	if !equalIDs(ids(got), "a_me") {
		t.Fatalf("desc+limit got %v", ids(got))
	}

	// numeric comparison
	mustSet(t, s, docstore.Doc("summaries", "u1"), map[string]any{"savingPercent": 9})
	mustSet(t, s, docstore.Doc("summaries", "u2"), map[string]any{"savingPercent": 80})
	mustSet(t, s, docstore.Doc("summaries", "u3"), map[string]any{"savingPercent": 100})
	got, err = s.Query(ctx, docstore.Query{Collection: "summaries", OrderBy: "savingPercent"}.
		Where("savingPercent", docstore.OpGreaterEqual, 10).
		Where("savingPercent", docstore.OpLess, 100))
	if err != nil {
		t.Fatalf("numeric query: %v", err)
	}
	if !equalIDs(ids(got), "u2") {
		t.Fatalf("numeric range got %v", ids(got))
	}
}

func testQueryPrefixRange(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	for id, name := range map[string]string{"u1": "ana01", "u2": "anab", "u3": "bob", "u4": "an"} {
		mustSet(t, s, docstore.Doc("users", id), map[string]any{"usernameLower": name})
	}
	q := docstore.Query{Collection: "users", OrderBy: "usernameLower", Limit: 20}.
		Where("usernameLower", docstore.OpGreaterEqual, "ana").
		Where("usernameLower", docstore.OpLess, "ana\uf8ff")
	got, err := s.Query(ctx, q)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !equalIDs(ids(got), "u1", "u2") {
		t.Fatalf("got %v", ids(got))
	}
}

func testQueryNestedCollection(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	mustSet(t, s, docstore.Doc("friends/a/list", "b"), map[string]any{"friendUid": "b"})
	mustSet(t, s, docstore.Doc("friends/a/list", "c"), map[string]any{"friendUid": "c"})
	mustSet(t, s, docstore.Doc("friends/b/list", "a"), map[string]any{"friendUid": "a"})

	got, err := s.Query(ctx, docstore.Query{Collection: "friends/a/list"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !equalIDs(ids(got), "b", "c") {
		t.Fatalf("got %v", ids(got))
	}
}

func testQueryRejectsBadField(t *testing.T, s docstore.Store) {
	_, err := s.Query(context.Background(), docstore.Query{Collection: "users"}.
		Where("name') OR 1=1 --", docstore.OpEqual, "x"))
	if !errors.Is(err, docstore.ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}

func testTransactionCommits(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	mustSet(t, s, docstore.Doc("friend_requests", "a_b"), map[string]any{"status": "pending"})

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, docstore.Doc("friends/a/list", "b"), map[string]any{"friendUid": "b"}); err != nil {
			return err
		}
		if err := tx.Set(ctx, docstore.Doc("friends/b/list", "a"), map[string]any{"friendUid": "a"}); err != nil {
			return err
		}
		return tx.Delete(ctx, docstore.Doc("friend_requests", "a_b"))
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if mustGet(t, s, docstore.Doc("friend_requests", "a_b")).Exists {
		t.Fatalf("request should be deleted")
	}
	if !mustGet(t, s, docstore.Doc("friends/a/list", "b")).Exists || !mustGet(t, s, docstore.Doc("friends/b/list", "a")).Exists {
		t.Fatalf("both friendship halves should exist")
	}
}

func testTransactionRollsBack(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	mustSet(t, s, docstore.Doc("usernames", "taken"), map[string]any{"uid": "u0"})

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, docstore.Doc("users", "u1"), map[string]any{"uid": "u1"}); err != nil {
			return err
		}
		return tx.Create(ctx, docstore.Doc("usernames", "taken"), map[string]any{"uid": "u1"})
	})
	if !errors.Is(err, docstore.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if mustGet(t, s, docstore.Doc("users", "u1")).Exists {
		t.Fatalf("profile write should have been rolled back")
	}
}

func testTransactionSeesOwnWrites(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	mustSet(t, s, docstore.Doc("friends/a/list", "old"), map[string]any{"friendUid": "old"})

	err := s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, docstore.Doc("friends/a/list", "new"), map[string]any{"friendUid": "new"}); err != nil {
			return err
		}
		if err := tx.Delete(ctx, docstore.Doc("friends/a/list", "old")); err != nil {
			return err
		}
		snap, err := tx.Get(ctx, docstore.Doc("friends/a/list", "new"))
		if err != nil {
			return err
		}
		if !snap.Exists {
			t.Errorf("transaction should read its own write")
		}
		got, err := tx.Query(ctx, docstore.Query{Collection: "friends/a/list"})
		if err != nil {
			return err
		}
		if !equalIDs(ids(got), "new") {
			t.Errorf("query inside transaction got %v", ids(got))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}
