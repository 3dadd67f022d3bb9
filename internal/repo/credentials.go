package repo

import (
	"context"
	"fmt"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/docstore"
)

// Credential is the local identity record, keyed by lowercased email.
type Credential struct {
	Email        string
	UID          string
	PasswordHash string
	CreatedAt    time.Time
}

type Credentials struct {
	db docstore.Accessor
}

func (r *Credentials) Get(ctx context.Context, emailLower string) (Credential, error) {
	snap, err := r.db.Get(ctx, docstore.Doc(colCredentials, emailLower))
	if err != nil {
		return Credential{}, fmt.Errorf("get credential: %w", err)
	}
	if !snap.Exists {
		return Credential{}, fmt.Errorf("credential: %w", core.ErrNotFound)
	}
	return Credential{
		Email:        emailLower,
		UID:          str(snap.Data, "uid"),
		PasswordHash: str(snap.Data, "passwordHash"),
		CreatedAt:    timestamp(snap.Data, "createdAt"),
	}, nil
}

// Create fails with docstore.ErrAlreadyExists when the email is registered.
func (r *Credentials) Create(ctx context.Context, c Credential) error {
	err := r.db.Create(ctx, docstore.Doc(colCredentials, c.Email), map[string]any{
		"uid":          c.UID,
		"passwordHash": c.PasswordHash,
		"createdAt":    c.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (r *Credentials) Delete(ctx context.Context, emailLower string) error {
	if err := r.db.Delete(ctx, docstore.Doc(colCredentials, emailLower)); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
