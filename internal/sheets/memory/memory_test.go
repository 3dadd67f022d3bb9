package memory

import (
	"context"
	"testing"

	"ahorro/internal/core"

	"github.com/shopspring/decimal"
)

func TestExporterRecordsRows(t *testing.T) {
	e := New()
	ref, err := e.ExportSummary(context.Background(), "u1", core.MonthlySummary{TotalSpent: decimal.NewFromInt(5)})
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}
	ref, _ = e.ExportSummary(context.Background(), "u2", core.MonthlySummary{})
	if ref != "mem:2" {
		t.Fatalf("ref = %q", ref)
	}

	got := e.Exports()
	if len(got) != 2 || got[0].UID != "u1" || !got[0].Summary.TotalSpent.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("exports = %+v", got)
	}
	got[0].UID = "changed"
	if e.Exports()[0].UID != "u1" {
		t.Fatal("Exports must return a copy")
	}
}

func TestExporterRejectsMissingUID(t *testing.T) {
	if _, err := New().ExportSummary(context.Background(), "", core.MonthlySummary{}); err == nil {
		t.Fatal("expected error")
	}
}
