package core

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestExpenseTypeIsKnown(t *testing.T) {
	for _, tp := range ExpenseTypes() {
		if !tp.IsKnown() {
			t.Fatalf("%q should be known", tp)
		}
	}
	for _, tp := range []ExpenseType{"", "gas", "AGUA", "internet"} {
		if tp.IsKnown() {
			t.Fatalf("%q should not be known", tp)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Amount:    decimal.RequireFromString("12.50"),
		Type:      Luz,
		Note:      "factura",
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		tx   Transaction
		want error
	}{
		{"zero amount", Transaction{Amount: decimal.Zero, Type: Agua}, ErrInvalidAmount},
		{"negative amount", Transaction{Amount: decimal.NewFromInt(-3), Type: Agua}, ErrInvalidAmount},
		{"unknown type", Transaction{Amount: decimal.NewFromInt(3), Type: "gas"}, ErrInvalidExpenseType},
		{"long note", Transaction{Amount: decimal.NewFromInt(3), Type: Agua, Note: strings.Repeat("x", 201)}, ErrNoteTooLong},
	}
	for _, tc := range cases {
		if err := tc.tx.Validate(); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateBudget(t *testing.T) {
	if err := ValidateBudget(decimal.NewFromInt(1000), decimal.NewFromInt(200)); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateBudget(decimal.NewFromInt(0), decimal.NewFromInt(0)); err != nil {
		t.Fatalf("zero budget should be accepted, got %v", err)
	}
	if err := ValidateBudget(decimal.NewFromInt(-1), decimal.Zero); err != ErrInvalidIncome {
		t.Fatalf("expected ErrInvalidIncome, got %v", err)
	}
	if err := ValidateBudget(decimal.NewFromInt(1), decimal.NewFromInt(-1)); err != ErrInvalidGoal {
		t.Fatalf("expected ErrInvalidGoal, got %v", err)
	}
}

func TestFriendRequestLifecycle(t *testing.T) {
	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)

	if _, err := NewFriendRequest("a", "a", now); err != ErrSelfRequest {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}

	req, err := NewFriendRequest("a", "b", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.ID != "a_b" || req.Status != RequestPending {
		t.Fatalf("unexpected request %+v", req)
	}
	if err := req.Accept(); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if req.Status != RequestAccepted {
		t.Fatalf("expected accepted, got %s", req.Status)
	}
	if err := req.Accept(); err != ErrRequestNotPending {
		t.Fatalf("second accept expected ErrRequestNotPending, got %v", err)
	}
}

func TestFriendshipPairIsSymmetric(t *testing.T) {
	since := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	pair := FriendshipPair("a", "b", since)
	if pair[0].OwnerUID != "a" || pair[0].FriendUID != "b" {
		t.Fatalf("first half wrong: %+v", pair[0])
	}
	if pair[1].OwnerUID != "b" || pair[1].FriendUID != "a" {
		t.Fatalf("second half wrong: %+v", pair[1])
	}
	if !pair[0].Since.Equal(since) || !pair[1].Since.Equal(since) {
		t.Fatalf("since not propagated")
	}
}
