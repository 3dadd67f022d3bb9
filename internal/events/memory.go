package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const defaultBuffer = 16

// MemoryBroker fans events out to in-process subscribers.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*Subscription
	buffer int
}

var _ Broker = (*MemoryBroker)(nil)

func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &MemoryBroker{
		subs:   make(map[string]map[string]*Subscription),
		buffer: buffer,
	}
}

func (b *MemoryBroker) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	sub := NewSubscription(id, userID, b.buffer, func() { b.remove(userID, id) })

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[string]*Subscription)
	}
	b.subs[userID][id] = sub
	b.mu.Unlock()

	CloseOnDone(ctx, sub)
	return sub, nil
}

func (b *MemoryBroker) remove(userID, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs[userID], id)
	if len(b.subs[userID]) == 0 {
		delete(b.subs, userID)
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, e Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs[e.UserID])+len(b.subs[AllUsers]))
	for _, s := range b.subs[e.UserID] {
		targets = append(targets, s)
	}
	for _, s := range b.subs[AllUsers] {
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		if !s.Deliver(e) {
			slog.WarnContext(ctx, "Dropped event for slow subscriber",
				"type", e.Type,
				"user_id", e.UserID,
				"subscription", s.ID)
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions for userID.
func (b *MemoryBroker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	var all []*Subscription
	for _, m := range b.subs {
		for _, s := range m {
			all = append(all, s)
		}
	}
	b.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
	return nil
}
