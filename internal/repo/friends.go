package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"ahorro/internal/core"
	"ahorro/internal/docstore"
)

type FriendRequests struct {
	db docstore.Accessor
}

// Create stores req under its deterministic id. An existing document with
// that id is reported as core.ErrRequestExists.
func (r *FriendRequests) Create(ctx context.Context, req core.FriendRequest) error {
	data := map[string]any{
		"fromUid":   req.FromUID,
		"toUid":     req.ToUID,
		"status":    string(req.Status),
		"createdAt": req.CreatedAt,
	}
	err := r.db.Create(ctx, docstore.Doc(colFriendRequests, req.ID), data)
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return fmt.Errorf("friend request %s: %w", req.ID, core.ErrRequestExists)
	}
	if err != nil {
		return fmt.Errorf("create friend request %s: %w", req.ID, err)
	}
	return nil
}

func (r *FriendRequests) Get(ctx context.Context, id string) (core.FriendRequest, error) {
	snap, err := r.db.Get(ctx, docstore.Doc(colFriendRequests, id))
	if err != nil {
		return core.FriendRequest{}, fmt.Errorf("get friend request %s: %w", id, err)
	}
	if !snap.Exists {
		return core.FriendRequest{}, fmt.Errorf("friend request %s: %w", id, core.ErrNotFound)
	}
	return decodeRequest(id, snap.Data), nil
}

func (r *FriendRequests) Delete(ctx context.Context, id string) error {
	if err := r.db.Delete(ctx, docstore.Doc(colFriendRequests, id)); err != nil {
		return fmt.Errorf("delete friend request %s: %w", id, err)
	}
	return nil
}

// Pending returns the requests waiting for toUID, oldest first.
func (r *FriendRequests) Pending(ctx context.Context, toUID string) ([]core.FriendRequest, error) {
	q := docstore.Query{Collection: colFriendRequests}.
		Where("toUid", docstore.OpEqual, toUID).
		Where("status", docstore.OpEqual, string(core.RequestPending))
	snaps, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("pending requests for %s: %w", toUID, err)
	}
	out := make([]core.FriendRequest, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, decodeRequest(s.Ref.ID, s.Data))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// PendingBetween reports whether a pending request exists in either direction.
func (r *FriendRequests) PendingBetween(ctx context.Context, a, b string) (bool, error) {
	for _, id := range []string{core.RequestID(a, b), core.RequestID(b, a)} {
		req, err := r.Get(ctx, id)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if req.Status == core.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func decodeRequest(id string, data map[string]any) core.FriendRequest {
	return core.FriendRequest{
		ID:        id,
		FromUID:   str(data, "fromUid"),
		ToUID:     str(data, "toUid"),
		Status:    core.RequestStatus(str(data, "status")),
		CreatedAt: timestamp(data, "createdAt"),
	}
}

type Friends struct {
	db docstore.Accessor
}

// Add writes one half of a friendship.
func (r *Friends) Add(ctx context.Context, f core.Friendship) error {
	data := map[string]any{
		"friendUid": f.FriendUID,
		"since":     f.Since,
	}
	if err := r.db.Set(ctx, docstore.Doc(friendsCol(f.OwnerUID), f.FriendUID), data); err != nil {
		return fmt.Errorf("add friend %s -> %s: %w", f.OwnerUID, f.FriendUID, err)
	}
	return nil
}

func (r *Friends) List(ctx context.Context, uid string) ([]core.Friendship, error) {
	snaps, err := r.db.Query(ctx, docstore.Query{Collection: friendsCol(uid)})
	if err != nil {
		return nil, fmt.Errorf("list friends of %s: %w", uid, err)
	}
	out := make([]core.Friendship, 0, len(snaps))
	for _, s := range snaps {
		friend := str(s.Data, "friendUid")
		if friend == "" {
			friend = s.Ref.ID
		}
		out = append(out, core.Friendship{
			OwnerUID:  uid,
			FriendUID: friend,
			Since:     timestamp(s.Data, "since"),
		})
	}
	return out, nil
}

func (r *Friends) Exists(ctx context.Context, uid, friendUID string) (bool, error) {
	snap, err := r.db.Get(ctx, docstore.Doc(friendsCol(uid), friendUID))
	if err != nil {
		return false, fmt.Errorf("get friend %s -> %s: %w", uid, friendUID, err)
	}
	return snap.Exists, nil
}
