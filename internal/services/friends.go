package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ahorro/internal/cache"
	"ahorro/internal/core"
	"ahorro/internal/docstore"
	"ahorro/internal/events"
	"ahorro/internal/repo"
)

// IncomingRequest is a pending request with the sender's display data.
type IncomingRequest struct {
	Request         core.FriendRequest
	FromDisplayName string
	FromUsername    string
}

type FriendService struct {
	base
	subscriber events.Subscriber
	profiles   cache.Cache[core.Profile]
}

func NewFriendService(store docstore.Store, broker events.Broker, profiles cache.Cache[core.Profile]) *FriendService {
	return &FriendService{
		base:       newBase(store, broker),
		subscriber: broker,
		profiles:   profiles,
	}
}

// WithClock replaces the time source, used by tests.
func (s *FriendService) WithClock(now func() time.Time) *FriendService {
	s.now = now
	return s
}

// SearchByUsernamePrefix finds users whose username starts with text,
// case-insensitively, leaving out the caller. Blank text finds nothing.
func (s *FriendService) SearchByUsernamePrefix(ctx context.Context, text string) ([]core.Profile, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	prefix := core.NormalizeUsername(text)
	if prefix == "" {
		return []core.Profile{}, nil
	}
	found, err := s.repos().Users.SearchByUsernamePrefix(ctx, prefix, core.SearchLimit)
	if err != nil {
		return nil, err
	}
	out := found[:0]
	for _, p := range found {
		if p.UID != uid {
			out = append(out, p)
		}
	}
	return out, nil
}

// SendRequest creates a pending request from the caller to toUID.
func (s *FriendService) SendRequest(ctx context.Context, toUID string) (core.FriendRequest, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return core.FriendRequest{}, err
	}
	req, err := core.NewFriendRequest(uid, toUID, s.now())
	if err != nil {
		return core.FriendRequest{}, err
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		r := repo.For(tx)
		exists, err := r.Users.Exists(ctx, toUID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("user %s: %w", toUID, core.ErrNotFound)
		}
		friends, err := r.Friends.Exists(ctx, uid, toUID)
		if err != nil {
			return err
		}
		if friends {
			return core.ErrAlreadyFriends
		}
		pending, err := r.FriendRequests.PendingBetween(ctx, uid, toUID)
		if err != nil {
			return err
		}
		if pending {
			return core.ErrRequestExists
		}
		return r.FriendRequests.Create(ctx, req)
	})
	if err != nil {
		return core.FriendRequest{}, err
	}

	s.publish(ctx, events.FriendRequestCreated, toUID, req.ID)
	return req, nil
}

// AcceptRequest turns a pending request addressed to the caller into a
// friendship. Both halves are written and the request deleted together.
func (s *FriendService) AcceptRequest(ctx context.Context, requestID string) error {
	uid, err := s.caller(ctx)
	if err != nil {
		return err
	}

	var req core.FriendRequest
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		r := repo.For(tx)
		req, err = r.FriendRequests.Get(ctx, requestID)
		if err != nil {
			return err
		}
		if req.ToUID != uid {
			return core.ErrNotRecipient
		}
		if err := req.Accept(); err != nil {
			return err
		}
		for _, f := range core.FriendshipPair(req.FromUID, req.ToUID, s.now()) {
			if err := r.Friends.Add(ctx, f); err != nil {
				return err
			}
		}
		return r.FriendRequests.Delete(ctx, req.ID)
	})
	if err != nil {
		return fmt.Errorf("accept request %s: %w", requestID, err)
	}

	s.publish(ctx, events.FriendRequestAccepted, req.FromUID, req.ID)
	s.publish(ctx, events.FriendRequestAccepted, req.ToUID, req.ID)
	return nil
}

// IncomingRequests lists pending requests addressed to the caller, oldest first.
func (s *FriendService) IncomingRequests(ctx context.Context) ([]IncomingRequest, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.incoming(ctx, uid)
}

func (s *FriendService) incoming(ctx context.Context, uid string) ([]IncomingRequest, error) {
	reqs, err := s.repos().FriendRequests.Pending(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]IncomingRequest, 0, len(reqs))
	for _, req := range reqs {
		sender, err := s.senderProfile(ctx, req.FromUID)
		if err != nil {
			return nil, err
		}
		username := sender.Username
		if username == "" {
			username = core.UnknownUsername
		}
		out = append(out, IncomingRequest{
			Request:         req,
			FromDisplayName: sender.DisplayNameOr(core.UnnamedDisplayName),
			FromUsername:    username,
		})
	}
	return out, nil
}

// senderProfile reads through the profile cache. Missing senders render
// with placeholders.
func (s *FriendService) senderProfile(ctx context.Context, uid string) (core.Profile, error) {
	if s.profiles != nil {
		if p, ok := s.profiles.Get(uid); ok {
			return p, nil
		}
	}
	p, err := s.repos().Users.Get(ctx, uid)
	if errors.Is(err, core.ErrNotFound) {
		return core.Profile{UID: uid}, nil
	}
	if err != nil {
		return core.Profile{}, err
	}
	if s.profiles != nil {
		s.profiles.Set(uid, p)
	}
	return p, nil
}

// MyFriends returns the uids of the caller's friends.
func (s *FriendService) MyFriends(ctx context.Context) ([]string, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return s.friendUIDs(ctx, uid)
}

func (s *FriendService) friendUIDs(ctx context.Context, uid string) ([]string, error) {
	list, err := s.repos().Friends.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(list))
	for i, f := range list {
		out[i] = f.FriendUID
	}
	return out, nil
}

// FriendProfiles returns the profiles of the caller's friends. Friends
// without a profile are skipped.
func (s *FriendService) FriendProfiles(ctx context.Context) ([]core.Profile, error) {
	uids, err := s.MyFriends(ctx)
	if err != nil {
		return nil, err
	}
	users := s.repos().Users
	out := make([]core.Profile, 0, len(uids))
	for _, id := range uids {
		p, err := users.Get(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// IncomingSubscription streams snapshots of the caller's pending requests.
type IncomingSubscription struct {
	updates chan []IncomingRequest
	sub     *events.Subscription
	once    sync.Once
}

func (s *IncomingSubscription) Updates() <-chan []IncomingRequest {
	return s.updates
}

// Close stops the stream. It is safe to call more than once.
func (s *IncomingSubscription) Close() {
	s.once.Do(s.sub.Close)
}

// SubscribeIncoming sends the current pending requests, then a fresh list
// after every friend request event for the caller. The updates channel is
// closed when ctx ends or Close is called.
func (s *FriendService) SubscribeIncoming(ctx context.Context) (*IncomingSubscription, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if s.subscriber == nil {
		return nil, errors.New("live updates not available")
	}
	sub, err := s.subscriber.Subscribe(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	initial, err := s.incoming(ctx, uid)
	if err != nil {
		sub.Close()
		return nil, err
	}

	is := &IncomingSubscription{updates: make(chan []IncomingRequest, 1), sub: sub}
	is.updates <- initial

	go func() {
		defer close(is.updates)
		for e := range sub.Events() {
			if e.Type != events.FriendRequestCreated && e.Type != events.FriendRequestAccepted {
				continue
			}
			snap, err := s.incoming(ctx, uid)
			if err != nil {
				slog.WarnContext(ctx, "Failed to refresh incoming requests", "uid", uid, "error", err)
				continue
			}
			select {
			case is.updates <- snap:
			case <-sub.Done():
				return
			}
		}
	}()
	return is, nil
}
