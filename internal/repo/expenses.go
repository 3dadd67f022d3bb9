package repo

import (
	"context"
	"fmt"

	"ahorro/internal/core"
	"ahorro/internal/docstore"

	"github.com/google/uuid"
)

type Expenses struct {
	db docstore.Accessor
}

// Add stores tx under the user's transactions and returns its id.
func (r *Expenses) Add(ctx context.Context, uid string, tx core.Transaction) (string, error) {
	id := tx.ID
	if id == "" {
		id = uuid.NewString()
	}
	data := map[string]any{
		"amount":    decimalNumber(tx.Amount),
		"type":      string(tx.Type),
		"note":      tx.Note,
		"createdAt": tx.CreatedAt,
	}
	if err := r.db.Create(ctx, docstore.Doc(transactionsCol(uid), id), data); err != nil {
		return "", fmt.Errorf("add expense for %s: %w", uid, err)
	}
	return id, nil
}

// List returns every stored transaction of uid in id order. Rows without a
// createdAt are kept; the aggregator decides how to date them.
func (r *Expenses) List(ctx context.Context, uid string) ([]core.Transaction, error) {
	snaps, err := r.db.Query(ctx, docstore.Query{Collection: transactionsCol(uid)})
	if err != nil {
		return nil, fmt.Errorf("list expenses for %s: %w", uid, err)
	}
	out := make([]core.Transaction, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, decodeTransaction(s.Ref.ID, s.Data))
	}
	return out, nil
}

func decodeTransaction(id string, data map[string]any) core.Transaction {
	amount := dec(data, "amount")
	return core.Transaction{
		ID:        id,
		Amount:    amount.Decimal,
		Type:      core.ExpenseType(str(data, "type")),
		Note:      str(data, "note"),
		CreatedAt: timestamp(data, "createdAt"),
	}
}

type Summaries struct {
	db docstore.Accessor
}

// Put replaces the stored summary wholesale.
func (r *Summaries) Put(ctx context.Context, uid string, s core.MonthlySummary) error {
	data := map[string]any{
		"totalSpent":    decimalNumber(s.TotalSpent),
		"savingPercent": s.SavingPercent,
		"byCategory": map[string]any{
			string(core.Agua):     decimalNumber(s.ByCategory.Agua),
			string(core.Luz):      decimalNumber(s.ByCategory.Luz),
			string(core.Gasolina): decimalNumber(s.ByCategory.Gasolina),
		},
		"goalMet":   s.GoalMet,
		"updatedAt": s.UpdatedAt,
	}
	if err := r.db.Set(ctx, docstore.Doc(colSummaries, uid), data); err != nil {
		return fmt.Errorf("put summary %s: %w", uid, err)
	}
	return nil
}

func (r *Summaries) Get(ctx context.Context, uid string) (core.MonthlySummary, error) {
	snap, err := r.db.Get(ctx, docstore.Doc(colSummaries, uid))
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("get summary %s: %w", uid, err)
	}
	if !snap.Exists {
		return core.MonthlySummary{}, fmt.Errorf("summary %s: %w", uid, core.ErrNotFound)
	}
	data := snap.Data
	s := core.MonthlySummary{
		TotalSpent:    dec(data, "totalSpent").Decimal,
		SavingPercent: numOr(data, "savingPercent", 0),
		GoalMet:       boolean(data, "goalMet"),
		UpdatedAt:     timestamp(data, "updatedAt"),
	}
	if cats, ok := obj(data, "byCategory"); ok {
		for _, t := range core.ExpenseTypes() {
			s.ByCategory.Add(t, dec(cats, string(t)).Decimal)
		}
	}
	return s, nil
}

type PublicSummaries struct {
	db docstore.Accessor
}

func (r *PublicSummaries) Put(ctx context.Context, uid string, s core.PublicSummary) error {
	data := map[string]any{
		"energyScore":  s.EnergyScore,
		"waterScore":   s.WaterScore,
		"savingsScore": s.SavingsScore,
		"updatedAt":    s.UpdatedAt,
	}
	if err := r.db.Set(ctx, docstore.Doc(colPublicSummaries, uid), data); err != nil {
		return fmt.Errorf("put public summary %s: %w", uid, err)
	}
	return nil
}

func (r *PublicSummaries) Get(ctx context.Context, uid string) (core.PublicSummary, error) {
	snap, err := r.db.Get(ctx, docstore.Doc(colPublicSummaries, uid))
	if err != nil {
		return core.PublicSummary{}, fmt.Errorf("get public summary %s: %w", uid, err)
	}
	if !snap.Exists {
		return core.PublicSummary{}, fmt.Errorf("public summary %s: %w", uid, core.ErrNotFound)
	}
	return core.PublicSummary{
		EnergyScore:  numOr(snap.Data, "energyScore", 0),
		WaterScore:   numOr(snap.Data, "waterScore", 0),
		SavingsScore: numOr(snap.Data, "savingsScore", 0),
		UpdatedAt:    timestamp(snap.Data, "updatedAt"),
	}, nil
}
