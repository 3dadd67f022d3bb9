package core

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Conversion factors for the savings simulator, in MXN.
var (
	PricePerLitreGasoline = decimal.NewFromInt(24)
	CostPerKWh            = decimal.RequireFromString("2.8")
	CostPerCubicMetre     = decimal.NewFromInt(20)
	KgCO2PerLitre         = decimal.RequireFromString("2.31")

	referenceCO2PerKm = decimal.RequireFromString("0.2")
	litresPerM3       = decimal.NewFromInt(1000)
	two               = decimal.NewFromInt(2)
)

var ErrInvalidSimulation = errors.New("invalid simulation input")

// SimulationBaseline is the user's accumulated monthly average per resource.
type SimulationBaseline struct {
	Gasolina decimal.Decimal
	Luz      decimal.Decimal
	Agua     decimal.Decimal
	CO2PerKm decimal.Decimal
}

// DefaultBaseline is used when the caller supplies none.
var DefaultBaseline = SimulationBaseline{
	Gasolina: decimal.RequireFromString("507.22"),
	Luz:      decimal.RequireFromString("305.02"),
	Agua:     decimal.RequireFromString("20.49"),
	CO2PerKm: decimal.RequireFromString("0.18"),
}

func (b SimulationBaseline) Validate() error {
	if !b.Gasolina.IsPositive() || !b.Luz.IsPositive() || !b.Agua.IsPositive() {
		return fmt.Errorf("%w: baseline averages must be positive", ErrInvalidSimulation)
	}
	if b.CO2PerKm.IsNegative() {
		return fmt.Errorf("%w: emission factor cannot be negative", ErrInvalidSimulation)
	}
	return nil
}

// SimulationInput holds the MXN the user plans to save on gasoline and water.
type SimulationInput struct {
	GasolinaSaved decimal.Decimal
	AguaSaved     decimal.Decimal
	Baseline      SimulationBaseline
}

// SimulationResult is rounded to cents.
type SimulationResult struct {
	GasolinaSaved decimal.Decimal
	LuzSaved      decimal.Decimal
	AguaSaved     decimal.Decimal
	CO2AvoidedKg  decimal.Decimal
	EnergyKWh     decimal.Decimal
	WaterLitres   decimal.Decimal
}

// Simulate estimates the resources avoided by the planned savings.
//
// Electricity savings are blended from the other two: the baseline light
// bill shrinks by the average share saved on gasoline and water, floored
// at 0. Amounts above the baseline are allowed.
func Simulate(in SimulationInput) (SimulationResult, error) {
	if err := in.Baseline.Validate(); err != nil {
		return SimulationResult{}, err
	}
	if in.GasolinaSaved.IsNegative() || in.AguaSaved.IsNegative() {
		return SimulationResult{}, fmt.Errorf("%w: savings cannot be negative", ErrInvalidSimulation)
	}
	b := in.Baseline

	share := in.GasolinaSaved.Div(b.Gasolina).Add(in.AguaSaved.Div(b.Agua)).Div(two)
	luz := b.Luz.Sub(share.Mul(b.Luz))
	if luz.IsNegative() {
		luz = decimal.Zero
	}

	co2 := in.GasolinaSaved.Mul(KgCO2PerLitre).Mul(b.CO2PerKm.Div(referenceCO2PerKm)).Div(PricePerLitreGasoline)

	return SimulationResult{
		GasolinaSaved: in.GasolinaSaved.Round(2),
		LuzSaved:      luz.Round(2),
		AguaSaved:     in.AguaSaved.Round(2),
		CO2AvoidedKg:  co2.Round(2),
		EnergyKWh:     luz.Div(CostPerKWh).Round(2),
		WaterLitres:   in.AguaSaved.Mul(litresPerM3).Div(CostPerCubicMetre).Round(2),
	}, nil
}

type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
)

var (
	incentiveShare = decimal.RequireFromString("0.9")
	highLuzBill    = decimal.NewFromInt(1000)
)

// ProgressInput describes the month so far against the saving goal.
type ProgressInput struct {
	Saved      decimal.Decimal
	Goal       decimal.Decimal
	CO2Reduced float64
	LuzSpent   decimal.Decimal
}

type ProgressAdvice struct {
	Progress float64
	Mood     Mood
	Message  string
	Tip      string
}

var progressTiers = []struct {
	min  float64
	mood Mood
	msg  string
}{
	{0.95, MoodHappy, "¡Estás por lograr tu meta de ahorro!"},
	{0.75, MoodHappy, "Vas muy bien, sigue así."},
	{0.5, MoodNeutral, "Buen avance, puedes ahorrar un poco más."},
	{0.25, MoodNeutral, "Puedes mejorar, intenta optimizar tus gastos."},
}

// SavingProgress is Saved/Goal clamped to [0, 1]. A goal of 0 or less
// counts as reached.
func SavingProgress(saved, goal decimal.Decimal) float64 {
	if !goal.IsPositive() {
		return 1
	}
	p := Float(saved.Div(goal))
	switch {
	case p > 1:
		return 1
	case p < 0:
		return 0
	}
	return p
}

// AdviseProgress picks the mood, message and tip shown with the progress bar.
func AdviseProgress(in ProgressInput) ProgressAdvice {
	a := ProgressAdvice{
		Progress: SavingProgress(in.Saved, in.Goal),
		Mood:     MoodSad,
		Message:  "¡Ánimo! Revisa tus gastos para alcanzar tu meta.",
	}
	for _, t := range progressTiers {
		if a.Progress >= t.min {
			a.Mood, a.Message = t.mood, t.msg
			break
		}
	}

	switch {
	case in.CO2Reduced > 0:
		a.Tip = "Has reducido " + strconv.FormatFloat(in.CO2Reduced, 'f', -1, 64) +
			" kg de CO₂ este mes respecto al promedio en tu zona"
	case in.Saved.GreaterThanOrEqual(in.Goal.Mul(incentiveShare)):
		a.Tip = "¡Estás a punto de conseguir un incentivo!"
	case in.LuzSpent.GreaterThan(highLuzBill):
		a.Tip = "Has aumentado tu pago de luz este mes, ¡sigue esforzándote!"
	default:
		a.Tip = "Recuerda optimizar tus gastos de agua, luz y gasolina"
	}
	return a
}
