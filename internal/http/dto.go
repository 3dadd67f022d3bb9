package http

import (
	"bytes"
	"encoding/json"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/services"

	"github.com/shopspring/decimal"
)

// Request bodies.
type (
	registerRequest struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
		Username    string `json:"username"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	budgetRequest struct {
		MonthlyIncome decimal.Decimal `json:"monthlyIncome"`
		SavingGoal    decimal.Decimal `json:"savingGoal"`
	}

	expenseRequest struct {
		Amount amountInput `json:"amount"`
		Type   string      `json:"type"`
		Note   string      `json:"note"`
	}

	publicSummaryRequest struct {
		EnergyScore  float64 `json:"energyScore"`
		WaterScore   float64 `json:"waterScore"`
		SavingsScore float64 `json:"savingsScore"`
		ShareStats   bool    `json:"shareStats"`
	}

	friendRequestRequest struct {
		ToUID string `json:"toUid"`
	}

	// simulationRequest takes MXN amounts. Baseline fields left out use
	// the default averages.
	simulationRequest struct {
		GasolinaSaved decimal.Decimal `json:"gasolinaSaved"`
		AguaSaved     decimal.Decimal `json:"aguaSaved"`
		Baseline      *struct {
			Gasolina *decimal.Decimal `json:"gasolina"`
			Luz      *decimal.Decimal `json:"luz"`
			Agua     *decimal.Decimal `json:"agua"`
			CO2PerKm *decimal.Decimal `json:"co2PerKm"`
		} `json:"baseline"`
	}
)

func (req simulationRequest) input() core.SimulationInput {
	b := core.DefaultBaseline
	if o := req.Baseline; o != nil {
		for _, f := range []struct {
			src *decimal.Decimal
			dst *decimal.Decimal
		}{{o.Gasolina, &b.Gasolina}, {o.Luz, &b.Luz}, {o.Agua, &b.Agua}, {o.CO2PerKm, &b.CO2PerKm}} {
			if f.src != nil {
				*f.dst = *f.src
			}
		}
	}
	return core.SimulationInput{GasolinaSaved: req.GasolinaSaved, AguaSaved: req.AguaSaved, Baseline: b}
}

// amountInput accepts "12,50", "12.50" or 12.5 and keeps the text for
// core.ParseAmount.
type amountInput string

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountInput(n.String())
	return nil
}

// Response bodies.
type (
	profileView struct {
		UID            string           `json:"uid"`
		Email          string           `json:"email,omitempty"`
		DisplayName    string           `json:"displayName"`
		Username       string           `json:"username"`
		PhotoURL       string           `json:"photoURL,omitempty"`
		MonthlyIncome  *decimal.Decimal `json:"monthlyIncome,omitempty"`
		SavingGoal     *decimal.Decimal `json:"savingGoal,omitempty"`
		ShareStats     bool             `json:"shareStats"`
		ProgresoAhorro float64          `json:"progresoAhorro"`
		CO2Reducido    float64          `json:"co2Reducido"`
		AguaReducida   float64          `json:"aguaReducida"`
		CreatedAt      *time.Time       `json:"createdAt,omitempty"`
	}

	// publicProfileView is what other users see in search and friend lists.
	publicProfileView struct {
		UID         string `json:"uid"`
		DisplayName string `json:"displayName"`
		Username    string `json:"username"`
		PhotoURL    string `json:"photoURL,omitempty"`
	}

	categoryView struct {
		Agua     decimal.Decimal `json:"agua"`
		Luz      decimal.Decimal `json:"luz"`
		Gasolina decimal.Decimal `json:"gasolina"`
	}

	summaryView struct {
		TotalSpent    decimal.Decimal `json:"totalSpent"`
		SavingPercent float64         `json:"savingPercent"`
		ByCategory    categoryView    `json:"byCategory"`
		GoalMet       bool            `json:"goalMet"`
		UpdatedAt     time.Time       `json:"updatedAt"`
	}

	transactionView struct {
		ID        string          `json:"id"`
		Amount    decimal.Decimal `json:"amount"`
		Type      string          `json:"type"`
		Note      string          `json:"note,omitempty"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	expenseCreatedView struct {
		ID      string      `json:"id"`
		Summary summaryView `json:"summary"`
	}

	publicSummaryView struct {
		EnergyScore  float64   `json:"energyScore"`
		WaterScore   float64   `json:"waterScore"`
		SavingsScore float64   `json:"savingsScore"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}

	friendRequestView struct {
		ID              string    `json:"id"`
		FromUID         string    `json:"fromUid"`
		ToUID           string    `json:"toUid"`
		Status          string    `json:"status"`
		CreatedAt       time.Time `json:"createdAt"`
		FromDisplayName string    `json:"fromDisplayName,omitempty"`
		FromUsername    string    `json:"fromUsername,omitempty"`
	}

	rankingEntryView struct {
		Position       int     `json:"position"`
		UID            string  `json:"uid"`
		DisplayName    string  `json:"displayName"`
		Username       string  `json:"username"`
		ProgresoAhorro float64 `json:"progresoAhorro"`
		CO2            float64 `json:"co2"`
		Agua           float64 `json:"agua"`
		TotalReduccion float64 `json:"totalReduccion"`
		IsSelf         bool    `json:"isSelf"`
	}

	comparisonEntryView struct {
		UID           string  `json:"uid"`
		DisplayName   string  `json:"displayName"`
		Username      string  `json:"username"`
		SavingPercent float64 `json:"savingPercent"`
		GoalMet       bool    `json:"goalMet"`
		IsSelf        bool    `json:"isSelf"`
	}

	simulationView struct {
		GasolinaSaved decimal.Decimal `json:"gasolinaSaved"`
		LuzSaved      decimal.Decimal `json:"luzSaved"`
		AguaSaved     decimal.Decimal `json:"aguaSaved"`
		CO2AvoidedKg  decimal.Decimal `json:"co2AvoidedKg"`
		EnergyKWh     decimal.Decimal `json:"energyKWh"`
		WaterLitres   decimal.Decimal `json:"waterLitres"`
	}

	progressView struct {
		Progress float64 `json:"progress"`
		Mood     string  `json:"mood"`
		Message  string  `json:"message"`
		Tip      string  `json:"tip"`
	}

	dashboardView struct {
		Entries []comparisonEntryView `json:"entries"`
		Leader  bool                  `json:"leader"`
	}
)

func newProfileView(p core.Profile) profileView {
	v := profileView{
		UID:            p.UID,
		Email:          p.Email,
		DisplayName:    p.DisplayName,
		Username:       p.Username,
		PhotoURL:       p.PhotoURL,
		ShareStats:     p.ShareStats,
		ProgresoAhorro: p.ProgresoAhorro,
		CO2Reducido:    p.Stats.CO2Reducido,
		AguaReducida:   p.Stats.AguaReducida,
	}
	if p.MonthlyIncome.Valid {
		v.MonthlyIncome = &p.MonthlyIncome.Decimal
	}
	if p.SavingGoal.Valid {
		v.SavingGoal = &p.SavingGoal.Decimal
	}
	if !p.CreatedAt.IsZero() {
		v.CreatedAt = &p.CreatedAt
	}
	return v
}

func newPublicProfileViews(ps []core.Profile) []publicProfileView {
	out := make([]publicProfileView, 0, len(ps))
	for _, p := range ps {
		out = append(out, publicProfileView{
			UID:         p.UID,
			DisplayName: p.DisplayNameOr(core.UnnamedDisplayName),
			Username:    p.Username,
			PhotoURL:    p.PhotoURL,
		})
	}
	return out
}

func newSummaryView(s core.MonthlySummary) summaryView {
	return summaryView{
		TotalSpent:    s.TotalSpent,
		SavingPercent: s.SavingPercent,
		ByCategory: categoryView{
			Agua:     s.ByCategory.Agua,
			Luz:      s.ByCategory.Luz,
			Gasolina: s.ByCategory.Gasolina,
		},
		GoalMet:   s.GoalMet,
		UpdatedAt: s.UpdatedAt,
	}
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionView{
			ID:        t.ID,
			Amount:    t.Amount,
			Type:      string(t.Type),
			Note:      t.Note,
			CreatedAt: t.CreatedAt,
		})
	}
	return out
}

func newPublicSummaryView(p core.PublicSummary) publicSummaryView {
	return publicSummaryView{
		EnergyScore:  p.EnergyScore,
		WaterScore:   p.WaterScore,
		SavingsScore: p.SavingsScore,
		UpdatedAt:    p.UpdatedAt,
	}
}

func newFriendRequestView(r core.FriendRequest) friendRequestView {
	return friendRequestView{
		ID:        r.ID,
		FromUID:   r.FromUID,
		ToUID:     r.ToUID,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt,
	}
}

func newIncomingViews(in []services.IncomingRequest) []friendRequestView {
	out := make([]friendRequestView, 0, len(in))
	for _, r := range in {
		v := newFriendRequestView(r.Request)
		v.FromDisplayName = r.FromDisplayName
		v.FromUsername = r.FromUsername
		out = append(out, v)
	}
	return out
}

func newRankingViews(entries []core.RankingEntry, self string) []rankingEntryView {
	out := make([]rankingEntryView, 0, len(entries))
	for i, e := range entries {
		out = append(out, rankingEntryView{
			Position:       i + 1,
			UID:            e.UID,
			DisplayName:    e.DisplayName,
			Username:       e.Username,
			ProgresoAhorro: e.ProgresoAhorro,
			CO2:            e.CO2,
			Agua:           e.Agua,
			TotalReduccion: e.TotalReduccion,
			IsSelf:         e.UID == self,
		})
	}
	return out
}

func newDashboardView(d services.Dashboard) dashboardView {
	v := dashboardView{Leader: d.Leader, Entries: make([]comparisonEntryView, 0, len(d.Entries))}
	for _, e := range d.Entries {
		v.Entries = append(v.Entries, comparisonEntryView{
			UID:           e.UID,
			DisplayName:   e.DisplayName,
			Username:      e.Username,
			SavingPercent: e.SavingPercent,
			GoalMet:       e.GoalMet,
			IsSelf:        e.IsSelf,
		})
	}
	return v
}
