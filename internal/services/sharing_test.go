package services

import (
	"errors"
	"testing"

	"ahorro/internal/core"
)

func TestPublicSummaryGate(t *testing.T) {
	f := newFixture(t)
	svc := NewSharingService(f.store).WithClock(fixedClock)
	f.addUser(t, core.Profile{UID: "owner"})
	f.addUser(t, core.Profile{UID: "friend"})
	f.addUser(t, core.Profile{UID: "stranger"})
	f.befriend(t, "owner", "friend")

	saved, err := svc.SavePublicSummary(as("owner"), core.PublicSummary{EnergyScore: 7, WaterScore: 8, SavingsScore: 9}, false)
	if err != nil {
		t.Fatal(err)
	}
	if !saved.UpdatedAt.Equal(march) {
		t.Fatalf("UpdatedAt = %v", saved.UpdatedAt)
	}

	if _, err := svc.PublicSummary(as("friend"), "owner"); !errors.Is(err, core.ErrNotShared) {
		t.Fatalf("not shared yet: %v", err)
	}
	if got, err := svc.PublicSummary(as("owner"), "owner"); err != nil || got.WaterScore != 8 {
		t.Fatalf("owner read = %+v, %v", got, err)
	}

	if _, err := svc.SavePublicSummary(as("owner"), core.PublicSummary{EnergyScore: 1, WaterScore: 2, SavingsScore: 3}, true); err != nil {
		t.Fatal(err)
	}
	got, err := svc.PublicSummary(as("friend"), "owner")
	if err != nil {
		t.Fatalf("friend read: %v", err)
	}
	if got.EnergyScore != 1 || got.SavingsScore != 3 {
		t.Fatalf("got %+v", got)
	}
	if _, err := svc.PublicSummary(as("stranger"), "owner"); !errors.Is(err, core.ErrNotFriends) {
		t.Fatalf("stranger read: %v", err)
	}
}

func TestPublicSummaryMissing(t *testing.T) {
	f := newFixture(t)
	svc := NewSharingService(f.store)
	f.addUser(t, core.Profile{UID: "owner", ShareStats: true})
	f.addUser(t, core.Profile{UID: "friend"})
	f.befriend(t, "owner", "friend")

	if _, err := svc.PublicSummary(as("friend"), "owner"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v", err)
	}
}
