package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/docstore"
	"ahorro/internal/identity"
	"ahorro/internal/repo"
)

// IdentityProvider is the part of the identity provider the account flow uses.
type IdentityProvider interface {
	Register(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (identity.Session, error)
	Delete(ctx context.Context, email string) error
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Username    string
}

type AccountService struct {
	base
	identity IdentityProvider
}

func NewAccountService(store docstore.Store, idp IdentityProvider) *AccountService {
	return &AccountService{base: newBase(store, nil), identity: idp}
}

// WithClock replaces the time source, used by tests.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// Register creates the identity, reserves the username and writes the
// profile, then signs the new user in. When the username reservation or the
// profile write fails, the identity is deleted again.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (identity.Session, error) {
	lower := core.NormalizeUsername(in.Username)
	if err := core.ValidateUsername(lower); err != nil {
		return identity.Session{}, err
	}

	// Cheap early answer; the reservation below is what actually guards it.
	_, err := s.repos().Usernames.Owner(ctx, lower)
	switch {
	case err == nil:
		return identity.Session{}, core.ErrUsernameTaken
	case !errors.Is(err, core.ErrNotFound):
		return identity.Session{}, fmt.Errorf("check username: %w", err)
	}

	uid, err := s.identity.Register(ctx, in.Email, in.Password)
	if err != nil {
		return identity.Session{}, err
	}

	profile := core.Profile{
		UID:         uid,
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Username:    strings.TrimSpace(in.Username),
		CreatedAt:   s.now(),
	}
	err = s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		r := repo.For(tx)
		if err := r.Usernames.Reserve(ctx, lower, uid); err != nil {
			return err
		}
		return r.Users.Create(ctx, profile)
	})
	if err != nil {
		if delErr := s.identity.Delete(ctx, in.Email); delErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back identity after registration error",
				"uid", uid,
				"error", delErr)
		}
		return identity.Session{}, err
	}

	slog.InfoContext(ctx, "User registered", "uid", uid, "username", lower)
	return s.identity.SignIn(ctx, in.Email, in.Password)
}

func (s *AccountService) SignIn(ctx context.Context, email, password string) (identity.Session, error) {
	return s.identity.SignIn(ctx, email, password)
}

// Profile returns any user's profile.
func (s *AccountService) Profile(ctx context.Context, uid string) (core.Profile, error) {
	if _, err := s.caller(ctx); err != nil {
		return core.Profile{}, err
	}
	return s.repos().Users.Get(ctx, uid)
}

func (s *AccountService) Me(ctx context.Context) (core.Profile, error) {
	uid, err := s.caller(ctx)
	if err != nil {
		return core.Profile{}, err
	}
	return s.repos().Users.Get(ctx, uid)
}
