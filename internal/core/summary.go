package core

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	defaultIncome = decimal.NewFromInt(1)
	hundred       = decimal.NewFromInt(100)
)

// CategoryTotals holds per-bucket spending for the recognized expense types.
type CategoryTotals struct {
	Agua     decimal.Decimal
	Luz      decimal.Decimal
	Gasolina decimal.Decimal
}

// MonthlySummary is derived from transactions and overwritten on every refresh.
type MonthlySummary struct {
	TotalSpent    decimal.Decimal
	SavingPercent float64
	ByCategory    CategoryTotals
	GoalMet       bool
	UpdatedAt     time.Time
}

type AggregateInput struct {
	Income       decimal.NullDecimal
	Goal         decimal.NullDecimal
	Transactions []Transaction
	Now          time.Time
}

// Add puts amount into the bucket for t and reports whether t was recognized.
func (c *CategoryTotals) Add(t ExpenseType, amount decimal.Decimal) bool {
	switch t {
	case Agua:
		c.Agua = c.Agua.Add(amount)
	case Luz:
		c.Luz = c.Luz.Add(amount)
	case Gasolina:
		c.Gasolina = c.Gasolina.Add(amount)
	default:
		return false
	}
	return true
}

func (c CategoryTotals) Get(t ExpenseType) decimal.Decimal {
	switch t {
	case Agua:
		return c.Agua
	case Luz:
		return c.Luz
	case Gasolina:
		return c.Gasolina
	}
	return decimal.Zero
}

func (c CategoryTotals) Sum() decimal.Decimal {
	return c.Agua.Add(c.Luz).Add(c.Gasolina)
}

// InMonth reports whether t falls in the calendar month and year of now,
// evaluated in now's location. A zero time counts as now, matching rows
// whose server timestamp has not been resolved yet.
func InMonth(t, now time.Time) bool {
	if t.IsZero() {
		return true
	}
	t = t.In(now.Location())
	return t.Year() == now.Year() && t.Month() == now.Month()
}

// FilterMonth keeps the transactions that fall in now's calendar month.
func FilterMonth(txs []Transaction, now time.Time) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if InMonth(tx.CreatedAt, now) {
			out = append(out, tx)
		}
	}
	return out
}

// Aggregate computes the monthly summary for the calendar month of in.Now.
//
// Income defaults to 1 and goal to 0 when absent. Unknown types count toward
// TotalSpent but land in no bucket. SavingPercent is floored at 0 and has no
// upper bound; an income explicitly set to 0 yields 0.
func Aggregate(in AggregateInput) MonthlySummary {
	income := defaultIncome
	if in.Income.Valid {
		income = in.Income.Decimal
	}
	goal := decimal.Zero
	if in.Goal.Valid {
		goal = in.Goal.Decimal
	}

	var s MonthlySummary
	s.TotalSpent = decimal.Zero
	for _, tx := range FilterMonth(in.Transactions, in.Now) {
		s.TotalSpent = s.TotalSpent.Add(tx.Amount)
		s.ByCategory.Add(tx.Type, tx.Amount)
	}

	if !income.IsZero() {
		pct := hundred.Sub(s.TotalSpent.Div(income).Mul(hundred))
		if pct.IsNegative() {
			pct = decimal.Zero
		}
		s.SavingPercent = Float(pct)
	}
	s.GoalMet = income.Sub(s.TotalSpent).GreaterThanOrEqual(goal)
	s.UpdatedAt = in.Now
	return s
}
