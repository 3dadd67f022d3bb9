package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ahorro/internal/core"
	"ahorro/internal/docstore"
	"ahorro/internal/events"
	"ahorro/internal/repo"
	"ahorro/internal/sheets"
)

// SummaryExportWorker copies recomputed monthly summaries to a spreadsheet.
type SummaryExportWorker struct {
	store    docstore.Store
	exporter sheets.SummaryExporter
}

func NewSummaryExportWorker(store docstore.Store, exporter sheets.SummaryExporter) *SummaryExportWorker {
	return &SummaryExportWorker{store: store, exporter: exporter}
}

// HandleSummaryUpdated exports the current summary of e.UserID. Events of
// other types and users without a summary are skipped. A returned error
// asks the caller to retry.
func (w *SummaryExportWorker) HandleSummaryUpdated(ctx context.Context, e events.Event) error {
	if e.Type != events.SummaryUpdated {
		return nil
	}
	slog.InfoContext(ctx, "Processing summary update", "user_id", e.UserID, "timestamp", e.Timestamp)

	summary, err := repo.For(w.store).Summaries.Get(ctx, e.UserID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Summary not found, skipping export", "user_id", e.UserID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get summary: %w", err)
	}

	ref, err := w.exporter.ExportSummary(ctx, e.UserID, summary)
	if err != nil {
		return fmt.Errorf("export summary: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported summary",
		"user_id", e.UserID,
		"sheets_ref", ref,
		"total_spent", summary.TotalSpent.String(),
		"goal_met", summary.GoalMet)
	return nil
}

// RunSubscription feeds every user's events from an in-process subscriber
// to HandleSummaryUpdated until ctx ends. Export failures are logged and
// the event is dropped, since an in-process feed cannot redeliver.
func (w *SummaryExportWorker) RunSubscription(ctx context.Context, sub events.Subscriber) error {
	s, err := sub.Subscribe(ctx, events.AllUsers)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.Done():
			return nil
		case e, ok := <-s.Events():
			if !ok {
				return nil
			}
			if err := w.HandleSummaryUpdated(ctx, e); err != nil {
				slog.ErrorContext(ctx, "Failed to export summary", "user_id", e.UserID, "error", err)
			}
		}
	}
}
