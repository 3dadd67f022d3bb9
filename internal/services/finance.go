package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/docstore"
	"ahorro/internal/events"

	"github.com/shopspring/decimal"
)

// FinanceService manages budgets, expenses and the monthly summary.
type FinanceService struct {
	base
}

func NewFinanceService(store docstore.Store, publisher events.Publisher) *FinanceService {
	return &FinanceService{base: newBase(store, publisher)}
}

// WithClock replaces the time source, used by tests.
func (s *FinanceService) WithClock(now func() time.Time) *FinanceService {
	s.now = now
	return s
}

// UpdateIncomeGoal stores the caller's monthly income and saving goal.
func (s *FinanceService) UpdateIncomeGoal(ctx context.Context, income, goal decimal.Decimal) error {
	uid, err := s.caller(ctx)
	if err != nil {
		return err
	}
	if err := core.ValidateBudget(income, goal); err != nil {
		return err
	}
	return s.repos().Users.MergeIncomeGoal(ctx, uid, income, goal)
}

// AddExpense validates and stores a new transaction dated now.
func (s *FinanceService) AddExpense(ctx context.Context, amount decimal.Decimal, t core.ExpenseType, note string) (string, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return "", err
	}
	tx := core.Transaction{
		Amount:    amount,
		Type:      t,
		Note:      note,
		CreatedAt: s.now(),
	}
	if err := tx.Validate(); err != nil {
		return "", err
	}
	id, err := s.repos().Expenses.Add(ctx, uid, tx)
	if err != nil {
		return "", fmt.Errorf("add expense: %w", err)
	}
	return id, nil
}

// CurrentMonthExpenses returns the caller's transactions of this calendar month.
func (s *FinanceService) CurrentMonthExpenses(ctx context.Context) ([]core.Transaction, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := s.repos().Expenses.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	return core.FilterMonth(txs, s.now()), nil
}

// UpdateMySummary recomputes the caller's summary from every stored
// transaction and overwrites the stored copy.
func (s *FinanceService) UpdateMySummary(ctx context.Context) (core.MonthlySummary, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	r := s.repos()

	profile, err := r.Users.Get(ctx, uid)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.MonthlySummary{}, fmt.Errorf("load profile: %w", err)
	}
	txs, err := r.Expenses.List(ctx, uid)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("load expenses: %w", err)
	}

	summary := core.Aggregate(core.AggregateInput{
		Income:       profile.MonthlyIncome,
		Goal:         profile.SavingGoal,
		Transactions: txs,
		Now:          s.now(),
	})
	if err := r.Summaries.Put(ctx, uid, summary); err != nil {
		return core.MonthlySummary{}, fmt.Errorf("store summary: %w", err)
	}

	s.publish(ctx, events.SummaryUpdated, uid, uid)
	return summary, nil
}

// AddExpenseAndRefresh adds an expense and then refreshes the summary.
// A refresh failure is returned with the id of the stored expense.
func (s *FinanceService) AddExpenseAndRefresh(ctx context.Context, amount decimal.Decimal, t core.ExpenseType, note string) (string, core.MonthlySummary, error) {
	id, err := s.AddExpense(ctx, amount, t, note)
	if err != nil {
		return "", core.MonthlySummary{}, err
	}
	summary, err := s.UpdateMySummary(ctx)
	if err != nil {
		return id, core.MonthlySummary{}, fmt.Errorf("refresh summary: %w", err)
	}
	return id, summary, nil
}

// MySummary returns the stored summary without recomputing it.
func (s *FinanceService) MySummary(ctx context.Context) (core.MonthlySummary, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return s.repos().Summaries.Get(ctx, uid)
}

// Progress compares this month's savings with the caller's goal. Savings
// are income minus the stored summary's spending; a missing summary
// counts as nothing spent.
func (s *FinanceService) Progress(ctx context.Context) (core.ProgressAdvice, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return core.ProgressAdvice{}, err
	}
	r := s.repos()

	profile, err := r.Users.Get(ctx, uid)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.ProgressAdvice{}, fmt.Errorf("load profile: %w", err)
	}
	summary, err := r.Summaries.Get(ctx, uid)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return core.ProgressAdvice{}, fmt.Errorf("load summary: %w", err)
	}
	spent := summary.TotalSpent
	if !core.InMonth(summary.UpdatedAt, s.now()) {
		spent = decimal.Zero
	}

	return core.AdviseProgress(core.ProgressInput{
		Saved:      profile.MonthlyIncome.Decimal.Sub(spent),
		Goal:       profile.SavingGoal.Decimal,
		CO2Reduced: profile.Stats.CO2Reducido,
		LuzSpent:   summary.ByCategory.Luz,
	}), nil
}
