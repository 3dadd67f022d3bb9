package core

import "testing"

func TestNewRankingEntryDefaults(t *testing.T) {
	e := NewRankingEntry(Profile{UID: "u1"})
	if e.DisplayName != UnnamedDisplayName {
		t.Fatalf("display name = %q", e.DisplayName)
	}
	if e.Username != UnknownUsername {
		t.Fatalf("username = %q", e.Username)
	}
	if e.ProgresoAhorro != 0 || e.TotalReduccion != 0 {
		t.Fatalf("expected zero values, got %+v", e)
	}

	e = NewRankingEntry(Profile{
		UID:         "u2",
		DisplayName: "Ana",
		Username:    "ana01",
		Stats:       Statistics{CO2Reducido: 12.5, AguaReducida: 30},
	})
	if e.TotalReduccion != 42.5 {
		t.Fatalf("totalReduccion = %v, want 42.5", e.TotalReduccion)
	}
}

func TestRankIsDescendingAndStable(t *testing.T) {
	in := []RankingEntry{
		{UID: "a", TotalReduccion: 10},
		{UID: "b", TotalReduccion: 30},
		{UID: "c", TotalReduccion: 10},
		{UID: "d", TotalReduccion: 20},
		{UID: "e", TotalReduccion: 10},
	}
	got := Rank(in)
	want := []string{"b", "d", "a", "c", "e"}
	for i, uid := range want {
		if got[i].UID != uid {
			t.Fatalf("position %d = %s, want %s (got %+v)", i, got[i].UID, uid, got)
		}
	}
	// input untouched
	if in[0].UID != "a" || in[1].UID != "b" {
		t.Fatalf("Rank must not reorder its input")
	}
}

func TestCompareIsDescendingAndStable(t *testing.T) {
	in := []ComparisonEntry{
		{UID: "me", SavingPercent: 40, IsSelf: true},
		{UID: "f1", SavingPercent: 55},
		{UID: "f2", SavingPercent: 40},
	}
	got := Compare(in)
	if got[0].UID != "f1" || got[1].UID != "me" || got[2].UID != "f2" {
		t.Fatalf("unexpected order %+v", got)
	}
}
