package core

import (
	"errors"
	"time"
)

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
)

type (
	RequestStatus string

	// FriendRequest moves pending -> accepted and is deleted right after.
	FriendRequest struct {
		ID        string
		FromUID   string
		ToUID     string
		Status    RequestStatus
		CreatedAt time.Time
	}

	// Friendship is one half of the symmetric relation, stored under OwnerUID.
	Friendship struct {
		OwnerUID  string
		FriendUID string
		Since     time.Time
	}
)

var (
	ErrSelfRequest       = errors.New("cannot send a friend request to yourself")
	ErrRequestExists     = errors.New("friend request already pending")
	ErrAlreadyFriends    = errors.New("already friends")
	ErrRequestNotPending = errors.New("friend request is not pending")
	ErrNotRecipient      = errors.New("friend request addressed to another user")
)

// RequestID is the deterministic document id for a request from one user to another.
func RequestID(fromUID, toUID string) string {
	return fromUID + "_" + toUID
}

// NewFriendRequest builds a pending request after rejecting self requests.
func NewFriendRequest(fromUID, toUID string, now time.Time) (FriendRequest, error) {
	if fromUID == toUID {
		return FriendRequest{}, ErrSelfRequest
	}
	return FriendRequest{
		ID:        RequestID(fromUID, toUID),
		FromUID:   fromUID,
		ToUID:     toUID,
		Status:    RequestPending,
		CreatedAt: now,
	}, nil
}

// Accept performs the pending -> accepted transition.
func (r *FriendRequest) Accept() error {
	if r.Status != RequestPending {
		return ErrRequestNotPending
	}
	r.Status = RequestAccepted
	return nil
}

// FriendshipPair returns both halves of the relation between a and b.
func FriendshipPair(a, b string, since time.Time) [2]Friendship {
	return [2]Friendship{
		{OwnerUID: a, FriendUID: b, Since: since},
		{OwnerUID: b, FriendUID: a, Since: since},
	}
}
