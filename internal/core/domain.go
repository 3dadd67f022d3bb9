package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Agua     ExpenseType = "agua"
	Luz      ExpenseType = "luz"
	Gasolina ExpenseType = "gasolina"
)

const MaxNoteLength = 200

type (
	ExpenseType string

	Transaction struct {
		ID        string
		Amount    decimal.Decimal
		Type      ExpenseType
		Note      string
		CreatedAt time.Time
	}

	// Statistics holds the resource reduction counters shown in the ranking.
	Statistics struct {
		CO2Reducido  float64
		AguaReducida float64
	}

	Profile struct {
		UID            string
		Email          string
		DisplayName    string
		Username       string
		UsernameLower  string
		PhotoURL       string
		MonthlyIncome  decimal.NullDecimal
		SavingGoal     decimal.NullDecimal
		ShareStats     bool
		ProgresoAhorro float64
		Stats          Statistics
		CreatedAt      time.Time
	}

	// PublicSummary is user entered and shown to friends when ShareStats is on.
	PublicSummary struct {
		EnergyScore  float64
		WaterScore   float64
		SavingsScore float64
		UpdatedAt    time.Time
	}
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotFound           = errors.New("not found")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidExpenseType = errors.New("invalid expense type")
	ErrNoteTooLong        = errors.New("note too long (max 200 characters)")
	ErrInvalidIncome      = errors.New("invalid monthly income")
	ErrInvalidGoal        = errors.New("invalid saving goal")
	ErrNotShared          = errors.New("summary not shared")
	ErrNotFriends         = errors.New("not friends")
)

// ExpenseTypes lists the recognized buckets in display order.
func ExpenseTypes() []ExpenseType {
	return []ExpenseType{Agua, Luz, Gasolina}
}

func (t ExpenseType) IsKnown() bool {
	switch t {
	case Agua, Luz, Gasolina:
		return true
	default:
		return false
	}
}

// Validate checks a transaction at creation time. Stored transactions are
// aggregated as found and never re-validated.
func (tx Transaction) Validate() error {
	if !tx.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !tx.Type.IsKnown() {
		return ErrInvalidExpenseType
	}
	if len([]rune(tx.Note)) > MaxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// ValidateBudget checks user-entered income and goal values.
func ValidateBudget(income, goal decimal.Decimal) error {
	if income.IsNegative() {
		return ErrInvalidIncome
	}
	if goal.IsNegative() {
		return ErrInvalidGoal
	}
	return nil
}

// DisplayNameOr returns the display name or a placeholder for empty profiles.
func (p Profile) DisplayNameOr(fallback string) string {
	if p.DisplayName == "" {
		return fallback
	}
	return p.DisplayName
}
