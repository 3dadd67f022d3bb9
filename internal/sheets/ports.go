package sheets

import (
	"context"

	"ahorro/internal/core"
)

// Ports for outbound adapters.
type (
	// SummaryExporter copies a recomputed monthly summary to an external
	// spreadsheet. The returned ref identifies the written row.
	SummaryExporter interface {
		ExportSummary(ctx context.Context, uid string, s core.MonthlySummary) (ref string, err error)
	}
)

