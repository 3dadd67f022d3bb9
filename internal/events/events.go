// Package events carries per-user notifications between services, the live
// request stream and the export worker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

type Type string

const (
	FriendRequestCreated  Type = "friend_request_created"
	FriendRequestAccepted Type = "friend_request_accepted"
	SummaryUpdated        Type = "summary_updated"
)

// AllUsers subscribes to every user's events.
const AllUsers = "*"

// Event is addressed to UserID. RefID points at the document that changed.
type Event struct {
	Type      Type      `json:"type"`
	UserID    string    `json:"userId"`
	RefID     string    `json:"refId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var ErrInvalidEvent = errors.New("invalid event")

func New(t Type, userID, refID string, now time.Time) Event {
	return Event{Type: t, UserID: userID, RefID: refID, Timestamp: now}
}

func (e Event) Validate() error {
	if e.Type == "" || e.UserID == "" || e.UserID == AllUsers {
		return fmt.Errorf("%w: type=%q user=%q", ErrInvalidEvent, e.Type, e.UserID)
	}
	return nil
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	// Subscribe delivers events addressed to userID until ctx ends or the
	// subscription is closed.
	Subscribe(ctx context.Context, userID string) (*Subscription, error)
}

// Broker is both ends of the event flow.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Subscription is a buffered event feed. Events that do not fit the buffer
// are dropped.
type Subscription struct {
	ID     string
	UserID string

	mu      sync.Mutex
	ch      chan Event
	done    chan struct{}
	closed  bool
	release func()
}

// NewSubscription is used by broker implementations. release runs once on Close.
func NewSubscription(id, userID string, buffer int, release func()) *Subscription {
	return &Subscription{
		ID:      id,
		UserID:  userID,
		ch:      make(chan Event, buffer),
		done:    make(chan struct{}),
		release: release,
	}
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Done is closed together with the events channel.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Deliver queues e without blocking and reports whether it was accepted.
func (s *Subscription) Deliver(e Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- e:
		return true
	default:
		return false
	}
}

// Close is idempotent.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	// Deliver checks closed under the lock, so no send can race these closes.
	if s.release != nil {
		s.release()
	}
	close(s.ch)
	close(s.done)
}

// CloseOnDone closes s when ctx ends.
func CloseOnDone(ctx context.Context, s *Subscription) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}
