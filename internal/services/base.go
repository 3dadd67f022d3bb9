// Package services holds the app operations. Every operation acts on behalf
// of the caller found in the context.
package services

import (
	"context"
	"log/slog"
	"time"

	"ahorro/internal/docstore"
	"ahorro/internal/events"
	"ahorro/internal/identity"
	"ahorro/internal/repo"
)

// base carries the dependencies shared by every service.
type base struct {
	store     docstore.Store
	publisher events.Publisher
	now       func() time.Time
}

func newBase(store docstore.Store, publisher events.Publisher) base {
	return base{store: store, publisher: publisher, now: time.Now}
}

func (b *base) repos() repo.Set {
	return repo.For(b.store)
}

func (b *base) caller(ctx context.Context) (string, error) {
	return identity.UIDFromContext(ctx)
}

// publish is best effort: the write it announces has already succeeded.
func (b *base) publish(ctx context.Context, t events.Type, userID, refID string) {
	if b.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping event", "type", t)
		return
	}
	e := events.New(t, userID, refID, b.now())
	if err := b.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"type", t,
			"user_id", userID,
			"error", err)
	}
}
