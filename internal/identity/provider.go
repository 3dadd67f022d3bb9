// Package identity is a small email/password provider issuing HS256 bearer
// tokens. Credentials live in the document store next to the app data.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/docstore"
	"ahorro/internal/repo"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// MaxPasswordBytes is the most bcrypt will hash.
	MaxPasswordBytes = 72
	issuer           = "ahorro"
)

type Config struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

type Provider struct {
	store  docstore.Accessor
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// Session is returned by SignIn.
type Session struct {
	UID       string    `json:"uid"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims are the verified contents of a bearer token.
type Claims struct {
	UID       string
	Email     string
	ExpiresAt time.Time
}

func NewProvider(store docstore.Accessor, cfg Config) *Provider {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Provider{
		store:  store,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		cost:   cost,
		now:    time.Now,
	}
}

// WithClock replaces the time source, used by tests.
func (p *Provider) WithClock(now func() time.Time) *Provider {
	p.now = now
	return p
}

// NormalizeEmail trims and lowercases an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e || strings.Contains(e, "/") {
		return "", newError(CodeInvalidEmail, err)
	}
	return e, nil
}

// Register creates a credential and returns the new uid.
func (p *Provider) Register(ctx context.Context, email, password string) (string, error) {
	e, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	if len(password) < MinPasswordLength {
		return "", newError(CodeWeakPassword, nil)
	}
	if len(password) > MaxPasswordBytes {
		return "", newError(CodePasswordTooLong, nil)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", newError(CodeInternal, fmt.Errorf("hash password: %w", err))
	}

	uid := uuid.NewString()
	err = repo.For(p.store).Credentials.Create(ctx, repo.Credential{
		Email:        e,
		UID:          uid,
		PasswordHash: string(hash),
		CreatedAt:    p.now(),
	})
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return "", newError(CodeEmailAlreadyInUse, nil)
	}
	if err != nil {
		return "", newError(CodeInternal, err)
	}
	return uid, nil
}

// SignIn checks the password and issues a token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	e, err := NormalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	cred, err := repo.For(p.store).Credentials.Get(ctx, e)
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, newError(CodeUserNotFound, nil)
	}
	if err != nil {
		return Session{}, newError(CodeInternal, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return Session{}, newError(CodeWrongPassword, nil)
	}
	return p.issue(cred.UID, e)
}

func (p *Provider) issue(uid, email string) (Session, error) {
	now := p.now()
	exp := now.Add(p.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":   uid,
		"email": email,
		"iss":   issuer,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return Session{}, newError(CodeInternal, fmt.Errorf("sign token: %w", err))
	}
	return Session{UID: uid, Token: signed, ExpiresAt: time.Unix(exp.Unix(), 0).UTC()}, nil
}

// Verify parses a bearer token and returns its claims.
func (p *Provider) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Claims{}, newError(CodeInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, newError(CodeInvalidToken, errors.New("invalid claims"))
	}
	uid, _ := claims["uid"].(string)
	if uid == "" {
		return Claims{}, newError(CodeInvalidToken, errors.New("uid missing"))
	}
	email, _ := claims["email"].(string)
	out := Claims{UID: uid, Email: email}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// Delete removes a credential. Missing credentials are not an error.
func (p *Provider) Delete(ctx context.Context, email string) error {
	e, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	return repo.For(p.store).Credentials.Delete(ctx, e)
}
