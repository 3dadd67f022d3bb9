package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/docstore/memory"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123"

func newTestProvider(now *time.Time) *Provider {
	p := NewProvider(memory.New(), Config{Secret: testSecret, TokenTTL: time.Hour, BcryptCost: bcrypt.MinCost})
	if now != nil {
		p.WithClock(func() time.Time { return *now })
	}
	return p
}

func TestRegisterErrors(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(nil)
	if _, err := p.Register(ctx, "Ana@Example.com", "secret1"); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantCode string
	}{
		{"duplicate email ignores case", "ana@example.com", "secret1", CodeEmailAlreadyInUse},
		{"invalid email", "not-an-email", "secret1", CodeInvalidEmail},
		{"display name form rejected", "Ana <ana@example.com>", "secret1", CodeInvalidEmail},
		{"weak password", "bob@example.com", "12345", CodeWeakPassword},
		{"password over bcrypt limit", "bob@example.com", strings.Repeat("a", MaxPasswordBytes+1), CodePasswordTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Register(ctx, tt.email, tt.password)
			if got := CodeOf(err); got != tt.wantCode {
				t.Fatalf("code = %q (%v), want %q", got, err, tt.wantCode)
			}
		})
	}
}

func TestSignInAndVerify(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	p := newTestProvider(&now)

	uid, err := p.Register(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.SignIn(ctx, "ghost@example.com", "secret1"); CodeOf(err) != CodeUserNotFound {
		t.Fatalf("unknown user: %v", err)
	}
	if _, err := p.SignIn(ctx, "ana@example.com", "wrong!"); CodeOf(err) != CodeWrongPassword {
		t.Fatalf("wrong password: %v", err)
	}

	sess, err := p.SignIn(ctx, " ANA@example.com ", "secret1")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if sess.UID != uid || !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("session = %+v", sess)
	}

	claims, err := p.Verify(sess.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UID != uid || claims.Email != "ana@example.com" {
		t.Fatalf("claims = %+v", claims)
	}

	now = now.Add(2 * time.Hour)
	if _, err := p.Verify(sess.Token); CodeOf(err) != CodeInvalidToken {
		t.Fatalf("expired token: %v", err)
	}
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(nil)
	if _, err := p.Register(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	sess, err := p.SignIn(ctx, "ana@example.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}

	other := NewProvider(memory.New(), Config{Secret: "another-secret-value", BcryptCost: bcrypt.MinCost})
	if _, err := other.Verify(sess.Token); CodeOf(err) != CodeInvalidToken {
		t.Fatalf("foreign secret: %v", err)
	}
	if _, err := p.Verify("garbage"); CodeOf(err) != CodeInvalidToken {
		t.Fatalf("garbage token: %v", err)
	}
}

func TestDeleteAllowsReRegistration(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(nil)
	if _, err := p.Register(ctx, "ana@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(ctx, "ana@example.com"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Register(ctx, "ana@example.com", "secret2"); err != nil {
		t.Fatalf("register after delete: %v", err)
	}
}

func TestUIDFromContext(t *testing.T) {
	if _, err := UIDFromContext(context.Background()); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("empty context: %v", err)
	}
	uid, err := UIDFromContext(WithUID(context.Background(), "u1"))
	if err != nil || uid != "u1" {
		t.Fatalf("uid = %q, %v", uid, err)
	}
}
