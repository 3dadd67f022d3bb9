package services

import (
	"context"
	"fmt"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/docstore"
	"ahorro/internal/repo"
)

// SharingService guards the public summary shown to friends.
type SharingService struct {
	base
}

func NewSharingService(store docstore.Store) *SharingService {
	return &SharingService{base: newBase(store, nil)}
}

// WithClock replaces the time source, used by tests.
func (s *SharingService) WithClock(now func() time.Time) *SharingService {
	s.now = now
	return s
}

// SavePublicSummary writes the caller's scores and the shareStats flag together.
func (s *SharingService) SavePublicSummary(ctx context.Context, scores core.PublicSummary, share bool) (core.PublicSummary, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return core.PublicSummary{}, err
	}
	scores.UpdatedAt = s.now()
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		r := repo.For(tx)
		if err := r.PublicSummaries.Put(ctx, uid, scores); err != nil {
			return err
		}
		return r.Users.MergeShareStats(ctx, uid, share)
	})
	if err != nil {
		return core.PublicSummary{}, fmt.Errorf("save public summary: %w", err)
	}
	return scores, nil
}

// PublicSummary returns ownerUID's public summary. Other users must be
// friends of the owner and the owner must have shareStats on.
func (s *SharingService) PublicSummary(ctx context.Context, ownerUID string) (core.PublicSummary, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return core.PublicSummary{}, err
	}
	r := s.repos()
	if ownerUID != uid {
		friends, err := r.Friends.Exists(ctx, uid, ownerUID)
		if err != nil {
			return core.PublicSummary{}, err
		}
		if !friends {
			return core.PublicSummary{}, core.ErrNotFriends
		}
		owner, err := r.Users.Get(ctx, ownerUID)
		if err != nil {
			return core.PublicSummary{}, err
		}
		if !owner.ShareStats {
			return core.PublicSummary{}, core.ErrNotShared
		}
	}
	return r.PublicSummaries.Get(ctx, ownerUID)
}
