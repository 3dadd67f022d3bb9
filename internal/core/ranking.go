package core

import "sort"

const (
	UnnamedDisplayName = "(Sin nombre)"
	UnknownUsername    = "—"
)

// RankingEntry is one participant of the social ranking.
type RankingEntry struct {
	UID            string
	DisplayName    string
	Username       string
	ProgresoAhorro float64
	CO2            float64
	Agua           float64
	TotalReduccion float64
}

// ComparisonEntry is one row of the friends savings dashboard.
type ComparisonEntry struct {
	UID           string
	DisplayName   string
	Username      string
	SavingPercent float64
	GoalMet       bool
	IsSelf        bool
}

// NewRankingEntry fills display defaults and derives TotalReduccion.
// CO2 and water are summed as raw numbers even though their units differ.
func NewRankingEntry(p Profile) RankingEntry {
	e := RankingEntry{
		UID:            p.UID,
		DisplayName:    p.DisplayNameOr(UnnamedDisplayName),
		Username:       p.Username,
		ProgresoAhorro: p.ProgresoAhorro,
		CO2:            p.Stats.CO2Reducido,
		Agua:           p.Stats.AguaReducida,
	}
	if e.Username == "" {
		e.Username = UnknownUsername
	}
	e.TotalReduccion = e.CO2 + e.Agua
	return e
}

// Rank orders entries by TotalReduccion, highest first. Ties keep input order.
func Rank(entries []RankingEntry) []RankingEntry {
	out := make([]RankingEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalReduccion > out[j].TotalReduccion
	})
	return out
}

// Compare orders dashboard rows by SavingPercent, highest first. Ties keep input order.
func Compare(entries []ComparisonEntry) []ComparisonEntry {
	out := make([]ComparisonEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SavingPercent > out[j].SavingPercent
	})
	return out
}
