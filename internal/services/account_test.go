package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ahorro/internal/core"
	"ahorro/internal/identity"
	"ahorro/internal/repo"

	"golang.org/x/crypto/bcrypt"
)

func newAccountService(f *fixture) (*AccountService, *identity.Provider) {
	idp := identity.NewProvider(f.store, identity.Config{Secret: "test-secret-0123456789", BcryptCost: bcrypt.MinCost})
	return NewAccountService(f.store, idp).WithClock(fixedClock), idp
}

func TestRegisterCreatesProfileAndSession(t *testing.T) {
	f := newFixture(t)
	svc, idp := newAccountService(f)

	sess, err := svc.Register(context.Background(), RegisterInput{
		Email: "Ana@Example.com", Password: "secret1", DisplayName: " Ana ", Username: " Ana_01 ",
	})
	if err != nil {
		t.Fatal(err)
	}
	claims, err := idp.Verify(sess.Token)
	if err != nil || claims.UID != sess.UID {
		t.Fatalf("token claims = %+v, %v", claims, err)
	}

	me, err := svc.Me(as(sess.UID))
	if err != nil {
		t.Fatal(err)
	}
	if me.DisplayName != "Ana" || me.Username != "Ana_01" || me.UsernameLower != "ana_01" || me.Email != "ana@example.com" {
		t.Fatalf("profile = %+v", me)
	}
	owner, err := repo.For(f.store).Usernames.Owner(context.Background(), "ana_01")
	if err != nil || owner != sess.UID {
		t.Fatalf("username owner = %q, %v", owner, err)
	}
}

func TestRegisterRejections(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAccountService(f)
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "secret1", Username: "ana"}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		in       RegisterInput
		wantErr  error
		wantCode string
	}{
		{"username taken ignoring case", RegisterInput{Email: "b@example.com", Password: "secret1", Username: "ANA"}, core.ErrUsernameTaken, ""},
		{"invalid username", RegisterInput{Email: "b@example.com", Password: "secret1", Username: "a b"}, core.ErrInvalidUsername, ""},
		{"email in use", RegisterInput{Email: "ana@example.com", Password: "secret1", Username: "other"}, nil, identity.CodeEmailAlreadyInUse},
		{"weak password", RegisterInput{Email: "c@example.com", Password: "123", Username: "third"}, nil, identity.CodeWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantCode != "" && identity.CodeOf(err) != tt.wantCode {
				t.Fatalf("code = %q (%v), want %q", identity.CodeOf(err), err, tt.wantCode)
			}
		})
	}
}

func TestConcurrentRegistrationReservesUsernameOnce(t *testing.T) {
	f := newFixture(t)
	svc, idp := newAccountService(f)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	emails := make([]string, workers)
	for i := 0; i < workers; i++ {
		emails[i] = "user" + string(rune('a'+i)) + "@example.com"
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, RegisterInput{Email: emails[i], Password: "secret1", Username: "popular"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, core.ErrUsernameTaken):
			// the losing identity was rolled back
			if _, signErr := idp.SignIn(ctx, emails[i], "secret1"); identity.CodeOf(signErr) != identity.CodeUserNotFound {
				t.Errorf("identity for %s not rolled back: %v", emails[i], signErr)
			}
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d registrations won the username", wins)
	}
}

type failingIdentity struct {
	deleted []string
}

func (f *failingIdentity) Register(context.Context, string, string) (string, error) {
	return "fixed-uid", nil
}

func (f *failingIdentity) SignIn(context.Context, string, string) (identity.Session, error) {
	return identity.Session{UID: "fixed-uid"}, nil
}

func (f *failingIdentity) Delete(_ context.Context, email string) error {
	f.deleted = append(f.deleted, email)
	return nil
}

func TestRegisterCompensatesWhenProfileWriteFails(t *testing.T) {
	f := newFixture(t)
	idp := &failingIdentity{}
	svc := NewAccountService(f.store, idp).WithClock(fixedClock)
	// a profile already exists for the uid the provider hands out
	f.addUser(t, core.Profile{UID: "fixed-uid"})

	_, err := svc.Register(context.Background(), RegisterInput{Email: "x@example.com", Password: "secret1", Username: "fresh"})
	if err == nil {
		t.Fatal("expected failure")
	}
	if len(idp.deleted) != 1 || idp.deleted[0] != "x@example.com" {
		t.Fatalf("deleted = %v", idp.deleted)
	}
	if _, err := repo.For(f.store).Usernames.Owner(context.Background(), "fresh"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("username reservation should be rolled back: %v", err)
	}
}
