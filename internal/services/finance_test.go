package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/events"
	"ahorro/internal/repo"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestFinance_RequiresCaller(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, f.broker)
	if _, err := svc.UpdateMySummary(context.Background()); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("got %v", err)
	}
}

func TestFinance_AddExpenseValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, f.broker).WithClock(fixedClock)
	ctx := as("u1")

	tests := []struct {
		name    string
		amount  string
		typ     core.ExpenseType
		note    string
		wantErr error
	}{
		{"valid", "10.50", core.Agua, "", nil},
		{"zero amount", "0", core.Luz, "", core.ErrInvalidAmount},
		{"negative amount", "-3", core.Luz, "", core.ErrInvalidAmount},
		{"unknown type", "3", core.ExpenseType("gas"), "", core.ErrInvalidExpenseType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddExpense(ctx, d(tt.amount), tt.typ, tt.note)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFinance_UpdateMySummary(t *testing.T) {
	f := newFixture(t)
	pub := &recordingPublisher{}
	svc := NewFinanceService(f.store, pub).WithClock(fixedClock)
	ctx := as("u1")
	f.addUser(t, core.Profile{UID: "u1", Username: "ana"})

	if err := svc.UpdateIncomeGoal(ctx, d("1000"), d("500")); err != nil {
		t.Fatal(err)
	}
	for _, e := range []struct {
		amt string
		typ core.ExpenseType
	}{{"30", core.Agua}, {"12.5", core.Luz}} {
		if _, err := svc.AddExpense(ctx, d(e.amt), e.typ, ""); err != nil {
			t.Fatal(err)
		}
	}
	// last month, ignored
	if _, err := repo.For(f.store).Expenses.Add(ctx, "u1", core.Transaction{Amount: d("999"), Type: core.Gasolina, CreatedAt: march.AddDate(0, -1, 0)}); err != nil {
		t.Fatal(err)
	}

	sum, err := svc.UpdateMySummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.TotalSpent.Equal(d("42.5")) || sum.SavingPercent != 95.75 || !sum.GoalMet {
		t.Fatalf("summary = %+v", sum)
	}
	if !sum.ByCategory.Gasolina.IsZero() {
		t.Fatalf("previous month leaked into buckets: %+v", sum.ByCategory)
	}

	stored, err := svc.MySummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !stored.TotalSpent.Equal(sum.TotalSpent) || !stored.UpdatedAt.Equal(march) {
		t.Fatalf("stored = %+v", stored)
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.SummaryUpdated || pub.events[0].UserID != "u1" {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestFinance_SummaryWithoutProfileUsesDefaults(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, nil).WithClock(fixedClock)
	ctx := as("ghost")
	if _, err := svc.AddExpense(ctx, d("0.25"), core.Luz, ""); err != nil {
		t.Fatal(err)
	}
	sum, err := svc.UpdateMySummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// income defaults to 1, goal to 0
	if sum.SavingPercent != 75 || !sum.GoalMet {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestFinance_PublishFailureDoesNotFailRefresh(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, &recordingPublisher{err: errors.New("broker down")}).WithClock(fixedClock)
	if _, err := svc.UpdateMySummary(as("u1")); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
}

func TestFinance_SummaryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, nil).WithClock(fixedClock)
	ctx := as("u1")
	if _, _, err := svc.AddExpenseAndRefresh(ctx, d("20"), core.Gasolina, "viaje"); err != nil {
		t.Fatal(err)
	}
	first, _ := svc.MySummary(ctx)
	if _, err := svc.UpdateMySummary(ctx); err != nil {
		t.Fatal(err)
	}
	second, _ := svc.MySummary(ctx)
	if !first.TotalSpent.Equal(second.TotalSpent) || first.SavingPercent != second.SavingPercent || first.GoalMet != second.GoalMet {
		t.Fatalf("refresh changed the summary: %+v vs %+v", first, second)
	}
}

func TestFinance_CurrentMonthExpenses(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, nil).WithClock(fixedClock)
	ctx := as("u1")
	if _, err := svc.AddExpense(ctx, d("5"), core.Agua, "hoy"); err != nil {
		t.Fatal(err)
	}
	old := core.Transaction{Amount: d("7"), Type: core.Agua, CreatedAt: march.Add(-60 * 24 * time.Hour)}
	if _, err := repo.For(f.store).Expenses.Add(ctx, "u1", old); err != nil {
		t.Fatal(err)
	}
	got, err := svc.CurrentMonthExpenses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Note != "hoy" {
		t.Fatalf("got %+v", got)
	}
}

func TestFinance_UpdateIncomeGoalRejectsNegatives(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, nil)
	if err := svc.UpdateIncomeGoal(as("u1"), d("-1"), d("0")); !errors.Is(err, core.ErrInvalidIncome) {
		t.Fatalf("got %v", err)
	}
	if err := svc.UpdateIncomeGoal(as("u1"), d("1"), d("-1")); !errors.Is(err, core.ErrInvalidGoal) {
		t.Fatalf("got %v", err)
	}
}

func TestFinance_Progress(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, f.broker).WithClock(fixedClock)
	ctx := as("u1")
	f.addUser(t, core.Profile{UID: "u1", Username: "ana"})
	if err := svc.UpdateIncomeGoal(ctx, d("1000"), d("500")); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Progress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 1 || got.Mood != core.MoodHappy {
		t.Fatalf("without spending: %+v", got)
	}

	if _, _, err := svc.AddExpenseAndRefresh(ctx, d("700"), core.Luz, ""); err != nil {
		t.Fatal(err)
	}
	got, err = svc.Progress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 0.6 || got.Mood != core.MoodNeutral {
		t.Fatalf("after spending 700: %+v", got)
	}
}

func TestFinance_ProgressIgnoresLastMonthSummary(t *testing.T) {
	f := newFixture(t)
	svc := NewFinanceService(f.store, f.broker).WithClock(fixedClock)
	ctx := as("u1")
	f.addUser(t, core.Profile{UID: "u1", Username: "ana"})
	if err := svc.UpdateIncomeGoal(ctx, d("1000"), d("500")); err != nil {
		t.Fatal(err)
	}
	stale := core.MonthlySummary{TotalSpent: d("900"), UpdatedAt: march.AddDate(0, -1, 0)}
	if err := repo.For(f.store).Summaries.Put(ctx, "u1", stale); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Progress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 1 {
		t.Fatalf("stale summary counted: %+v", got)
	}
}
