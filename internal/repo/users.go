package repo

import (
	"context"
	"errors"
	"fmt"

	"ahorro/internal/core"
	"ahorro/internal/docstore"

	"github.com/shopspring/decimal"
)

// Both spellings exist in stored profiles.
var statsKeys = []string{"estadisticas", "estadísticas"}

type Users struct {
	db docstore.Accessor
}

func (r *Users) Get(ctx context.Context, uid string) (core.Profile, error) {
	snap, err := r.db.Get(ctx, docstore.Doc(colUsers, uid))
	if err != nil {
		return core.Profile{}, fmt.Errorf("get user %s: %w", uid, err)
	}
	if !snap.Exists {
		return core.Profile{}, fmt.Errorf("user %s: %w", uid, core.ErrNotFound)
	}
	return decodeProfile(uid, snap.Data), nil
}

func (r *Users) Exists(ctx context.Context, uid string) (bool, error) {
	snap, err := r.db.Get(ctx, docstore.Doc(colUsers, uid))
	if err != nil {
		return false, fmt.Errorf("get user %s: %w", uid, err)
	}
	return snap.Exists, nil
}

// Create writes a new profile with zeroed counters.
func (r *Users) Create(ctx context.Context, p core.Profile) error {
	data := map[string]any{
		"uid":            p.UID,
		"email":          p.Email,
		"displayName":    p.DisplayName,
		"username":       p.Username,
		"usernameLower":  core.NormalizeUsername(p.Username),
		"photoURL":       p.PhotoURL,
		"shareStats":     p.ShareStats,
		"progresoAhorro": p.ProgresoAhorro,
		"estadisticas": map[string]any{
			"co2Reducido":  p.Stats.CO2Reducido,
			"aguaReducida": p.Stats.AguaReducida,
		},
		"createdAt": p.CreatedAt,
	}
	if p.MonthlyIncome.Valid {
		data["monthlyIncome"] = decimalNumber(p.MonthlyIncome.Decimal)
	}
	if p.SavingGoal.Valid {
		data["savingGoal"] = decimalNumber(p.SavingGoal.Decimal)
	}
	if err := r.db.Create(ctx, docstore.Doc(colUsers, p.UID), data); err != nil {
		return fmt.Errorf("create user %s: %w", p.UID, err)
	}
	return nil
}

// MergeIncomeGoal updates the budget fields and leaves the rest untouched.
func (r *Users) MergeIncomeGoal(ctx context.Context, uid string, income, goal decimal.Decimal) error {
	err := r.db.Merge(ctx, docstore.Doc(colUsers, uid), map[string]any{
		"monthlyIncome": decimalNumber(income),
		"savingGoal":    decimalNumber(goal),
	})
	if err != nil {
		return fmt.Errorf("merge budget %s: %w", uid, err)
	}
	return nil
}

func (r *Users) MergeShareStats(ctx context.Context, uid string, share bool) error {
	if err := r.db.Merge(ctx, docstore.Doc(colUsers, uid), map[string]any{"shareStats": share}); err != nil {
		return fmt.Errorf("merge shareStats %s: %w", uid, err)
	}
	return nil
}

// SearchByUsernamePrefix returns profiles whose lowercased username starts
// with prefix, ordered by username. prefix must already be normalized.
func (r *Users) SearchByUsernamePrefix(ctx context.Context, prefix string, limit int) ([]core.Profile, error) {
	lo, hi := core.PrefixRange(prefix)
	q := docstore.Query{Collection: colUsers, OrderBy: "usernameLower", Limit: limit}.
		Where("usernameLower", docstore.OpGreaterEqual, lo).
		Where("usernameLower", docstore.OpLess, hi)
	snaps, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search usernames %q: %w", prefix, err)
	}
	out := make([]core.Profile, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, decodeProfile(s.Ref.ID, s.Data))
	}
	return out, nil
}

func decodeProfile(uid string, data map[string]any) core.Profile {
	p := core.Profile{
		UID:            uid,
		Email:          str(data, "email"),
		DisplayName:    str(data, "displayName"),
		Username:       str(data, "username"),
		UsernameLower:  str(data, "usernameLower"),
		PhotoURL:       str(data, "photoURL"),
		MonthlyIncome:  dec(data, "monthlyIncome"),
		SavingGoal:     dec(data, "savingGoal"),
		ShareStats:     boolean(data, "shareStats"),
		ProgresoAhorro: numOr(data, "progresoAhorro", 0),
		CreatedAt:      timestamp(data, "createdAt"),
	}
	if p.UsernameLower == "" && p.Username != "" {
		p.UsernameLower = core.NormalizeUsername(p.Username)
	}

	var stats map[string]any
	for _, key := range statsKeys {
		if m, ok := obj(data, key); ok {
			stats = m
			break
		}
	}
	p.Stats.CO2Reducido = statOr(stats, data, "co2Reducido")
	p.Stats.AguaReducida = statOr(stats, data, "aguaReducida")
	return p
}

// statOr reads a counter from the statistics map, then from the top level.
func statOr(stats, data map[string]any, key string) float64 {
	if f, ok := num(stats, key); ok {
		return f
	}
	return numOr(data, key, 0)
}

type Usernames struct {
	db docstore.Accessor
}

// Reserve claims lower for uid. A second claim fails with core.ErrUsernameTaken.
func (r *Usernames) Reserve(ctx context.Context, lower, uid string) error {
	err := r.db.Create(ctx, docstore.Doc(colUsernames, lower), map[string]any{"uid": uid})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return fmt.Errorf("reserve %q: %w", lower, core.ErrUsernameTaken)
	}
	if err != nil {
		return fmt.Errorf("reserve %q: %w", lower, err)
	}
	return nil
}

// Owner returns the uid holding lower, or core.ErrNotFound.
func (r *Usernames) Owner(ctx context.Context, lower string) (string, error) {
	snap, err := r.db.Get(ctx, docstore.Doc(colUsernames, lower))
	if err != nil {
		return "", fmt.Errorf("get username %q: %w", lower, err)
	}
	if !snap.Exists {
		return "", fmt.Errorf("username %q: %w", lower, core.ErrNotFound)
	}
	return str(snap.Data, "uid"), nil
}
