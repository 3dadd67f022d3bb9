package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ahorro/internal/core"
	ports "ahorro/internal/sheets"
)

// Export is one row recorded by the in-memory exporter.
type Export struct {
	UID     string
	Summary core.MonthlySummary
}

// Exporter keeps exported summaries in memory. Used in development and tests.
type Exporter struct {
	mu    sync.Mutex
	items []Export
}

var _ ports.SummaryExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// ExportSummary records the summary and returns a synthetic row reference.
func (e *Exporter) ExportSummary(_ context.Context, uid string, s core.MonthlySummary) (string, error) {
	if uid == "" {
		return "", errors.New("missing uid")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, Export{UID: uid, Summary: s})
	return fmt.Sprintf("mem:%d", len(e.items)), nil
}

// Exports returns a copy of everything exported so far.
func (e *Exporter) Exports() []Export {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Export(nil), e.items...)
}
