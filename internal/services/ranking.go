package services

import (
	"context"
	"errors"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/docstore"
	"ahorro/internal/repo"

	"golang.org/x/sync/errgroup"
)

const fetchConcurrency = 8

// Dashboard compares the caller's savings with friends who share theirs.
type Dashboard struct {
	Entries []core.ComparisonEntry
	Leader  bool
}

// RankingService builds the social views. Nothing is cached; each call
// reads the current documents.
type RankingService struct {
	base
}

func NewRankingService(store docstore.Store) *RankingService {
	return &RankingService{base: newBase(store, nil)}
}

// WithClock replaces the time source, used by tests.
func (s *RankingService) WithClock(now func() time.Time) *RankingService {
	s.now = now
	return s
}

// Ranking orders the caller and their friends by total reduction.
// Participants without a profile are left out.
func (s *RankingService) Ranking(ctx context.Context) ([]core.RankingEntry, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	r := s.repos()
	friends, err := r.Friends.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(friends)+1)
	uids = append(uids, uid)
	for _, f := range friends {
		uids = append(uids, f.FriendUID)
	}

	profiles, err := fetchProfiles(ctx, r, uids)
	if err != nil {
		return nil, err
	}
	entries := make([]core.RankingEntry, 0, len(profiles))
	for _, p := range profiles {
		if p != nil {
			entries = append(entries, core.NewRankingEntry(*p))
		}
	}
	return core.Rank(entries), nil
}

// FriendsDashboard lists the caller's summary next to those of friends
// with shareStats on, highest saving percentage first.
func (s *RankingService) FriendsDashboard(ctx context.Context) (Dashboard, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	r := s.repos()
	friends, err := r.Friends.List(ctx, uid)
	if err != nil {
		return Dashboard{}, err
	}

	rows := make([]*core.ComparisonEntry, len(friends)+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	g.Go(func() error {
		row, err := comparisonRow(gctx, r, uid, true)
		rows[0] = row
		return err
	})
	for i, f := range friends {
		g.Go(func() error {
			row, err := comparisonRow(gctx, r, f.FriendUID, false)
			rows[i+1] = row
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	entries := make([]core.ComparisonEntry, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			entries = append(entries, *row)
		}
	}
	entries = core.Compare(entries)
	return Dashboard{
		Entries: entries,
		Leader:  len(entries) > 1 && entries[0].IsSelf,
	}, nil
}

// comparisonRow returns nil for friends who do not share or have no summary.
// The caller always gets a row, zeroed when no summary exists yet.
func comparisonRow(ctx context.Context, r repo.Set, uid string, self bool) (*core.ComparisonEntry, error) {
	profile, err := r.Users.Get(ctx, uid)
	switch {
	case errors.Is(err, core.ErrNotFound):
		if !self {
			return nil, nil
		}
		profile = core.Profile{UID: uid}
	case err != nil:
		return nil, err
	}
	if !self && !profile.ShareStats {
		return nil, nil
	}

	summary, err := r.Summaries.Get(ctx, uid)
	switch {
	case errors.Is(err, core.ErrNotFound):
		if !self {
			return nil, nil
		}
	case err != nil:
		return nil, err
	}

	username := profile.Username
	if username == "" {
		username = core.UnknownUsername
	}
	return &core.ComparisonEntry{
		UID:           uid,
		DisplayName:   profile.DisplayNameOr(core.UnnamedDisplayName),
		Username:      username,
		SavingPercent: summary.SavingPercent,
		GoalMet:       summary.GoalMet,
		IsSelf:        self,
	}, nil
}

// fetchProfiles loads profiles concurrently, keeping input order. Missing
// profiles are nil.
func fetchProfiles(ctx context.Context, r repo.Set, uids []string) ([]*core.Profile, error) {
	out := make([]*core.Profile, len(uids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range uids {
		g.Go(func() error {
			p, err := r.Users.Get(gctx, id)
			if errors.Is(err, core.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			out[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
