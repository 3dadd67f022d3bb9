package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSimulate(t *testing.T) {
	tests := []struct {
		name                  string
		gas, agua             string
		luz, kwh, co2, litres string
	}{
		{"nothing saved keeps the whole light bill", "0", "0", "305.02", "108.94", "0", "0"},
		{"half the gasoline", "253.61", "0", "228.77", "81.7", "21.97", "0"},
		{"full baseline on both", "507.22", "20.49", "0", "0", "43.94", "1024.5"},
		{"above baseline is floored at zero", "1014.44", "20.49", "0", "0", "87.88", "1024.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Simulate(SimulationInput{GasolinaSaved: d(tt.gas), AguaSaved: d(tt.agua), Baseline: DefaultBaseline})
			if err != nil {
				t.Fatal(err)
			}
			checks := []struct {
				field string
				got   decimal.Decimal
				want  string
			}{
				{"LuzSaved", got.LuzSaved, tt.luz},
				{"EnergyKWh", got.EnergyKWh, tt.kwh},
				{"CO2AvoidedKg", got.CO2AvoidedKg, tt.co2},
				{"WaterLitres", got.WaterLitres, tt.litres},
			}
			for _, c := range checks {
				if !c.got.Equal(d(c.want)) {
					t.Errorf("%s = %s, want %s", c.field, c.got, c.want)
				}
			}
			if !got.GasolinaSaved.Equal(d(tt.gas)) || !got.AguaSaved.Equal(d(tt.agua)) {
				t.Errorf("inputs not echoed: %+v", got)
			}
		})
	}
}

func TestSimulateRejectsBadInput(t *testing.T) {
	zeroLuz := DefaultBaseline
	zeroLuz.Luz = decimal.Zero
	negativeFactor := DefaultBaseline
	negativeFactor.CO2PerKm = d("-0.1")

	tests := []struct {
		name string
		in   SimulationInput
	}{
		{"negative gasoline", SimulationInput{GasolinaSaved: d("-1"), Baseline: DefaultBaseline}},
		{"negative water", SimulationInput{AguaSaved: d("-0.5"), Baseline: DefaultBaseline}},
		{"zero baseline", SimulationInput{Baseline: zeroLuz}},
		{"negative emission factor", SimulationInput{Baseline: negativeFactor}},
		{"missing baseline", SimulationInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Simulate(tt.in); !errors.Is(err, ErrInvalidSimulation) {
				t.Fatalf("err = %v, want ErrInvalidSimulation", err)
			}
		})
	}
}

func TestSavingProgress(t *testing.T) {
	tests := []struct {
		saved, goal string
		want        float64
	}{
		{"500", "500", 1},
		{"1000", "500", 1},
		{"400", "500", 0.8},
		{"-50", "500", 0},
		{"10", "0", 1},
	}
	for _, tt := range tests {
		if got := SavingProgress(d(tt.saved), d(tt.goal)); got != tt.want {
			t.Errorf("SavingProgress(%s, %s) = %v, want %v", tt.saved, tt.goal, got, tt.want)
		}
	}
}

func TestAdviseProgress(t *testing.T) {
	tests := []struct {
		name     string
		in       ProgressInput
		mood     Mood
		message  string
		tipStart string
	}{
		{"goal reached", ProgressInput{Saved: d("500"), Goal: d("500")}, MoodHappy, "¡Estás por lograr", "¡Estás a punto de conseguir un incentivo"},
		{"three quarters", ProgressInput{Saved: d("400"), Goal: d("500")}, MoodHappy, "Vas muy bien", "Recuerda optimizar"},
		{"half way", ProgressInput{Saved: d("250"), Goal: d("500")}, MoodNeutral, "Buen avance", "Recuerda optimizar"},
		{"a quarter", ProgressInput{Saved: d("125"), Goal: d("500")}, MoodNeutral, "Puedes mejorar", "Recuerda optimizar"},
		{"overspent", ProgressInput{Saved: d("-50"), Goal: d("500"), LuzSpent: d("1200")}, MoodSad, "¡Ánimo!", "Has aumentado tu pago de luz"},
		{"co2 reduction wins", ProgressInput{Saved: d("500"), Goal: d("500"), CO2Reduced: 12.5}, MoodHappy, "¡Estás por lograr", "Has reducido 12.5 kg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdviseProgress(tt.in)
			if got.Mood != tt.mood {
				t.Errorf("mood = %s, want %s", got.Mood, tt.mood)
			}
			if !strings.HasPrefix(got.Message, tt.message) {
				t.Errorf("message = %q, want prefix %q", got.Message, tt.message)
			}
			if !strings.HasPrefix(got.Tip, tt.tipStart) {
				t.Errorf("tip = %q, want prefix %q", got.Tip, tt.tipStart)
			}
		})
	}
}
