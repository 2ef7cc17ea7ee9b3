// Package auth issues and verifies bearer tokens and answers the
// administrator capability check. Errors come from the apperr taxonomy.
package auth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/models"
)

const (
	minPasswordLen = 6
	maxPasswordLen = 72
	maxEmailLen    = 254
	maxNameLen     = 100
)

// Identity is the authenticated principal attached to a request.
type Identity struct {
	ID    string
	Email string
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFromContext returns nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(ctxKey{}).(*Identity)
	return id
}

// Result is what a successful register or login hands back to the client.
type Result struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type Issuer interface {
	Register(ctx context.Context, email, password, name string) (*Result, error)
	Login(ctx context.Context, email, password string) (*Result, error)
	IssueToken(u *models.User) (string, time.Time, error)
}

// IdentityStore is the slice of the user repository the auth core needs.
// Implementations report misses as apperr.ErrNotFound and email collisions as
// apperr.ErrDuplicateIdentity.
type IdentityStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrInvalidInput}, args...)...)
}

type registration struct {
	email    string
	password string
	name     string
}

func validateRegistration(email, password, name string) (registration, error) {
	r := registration{
		email:    NormalizeEmail(email),
		password: password,
		name:     strings.TrimSpace(name),
	}

	if r.email == "" {
		return r, invalid("email is required")
	}
	if len(r.email) > maxEmailLen {
		return r, invalid("email is too long")
	}
	addr, err := mail.ParseAddress(r.email)
	if err != nil || addr.Address != r.email || !strings.Contains(r.email[strings.LastIndex(r.email, "@"):], ".") {
		return r, invalid("email is malformed")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return r, invalid("password must be at least %d characters", minPasswordLen)
	}
	if len(password) > maxPasswordLen {
		return r, invalid("password must be at most %d bytes", maxPasswordLen)
	}
	if utf8.RuneCountInString(r.name) > maxNameLen {
		return r, invalid("name must be at most %d characters", maxNameLen)
	}
	return r, nil
}

func validateLogin(email, password string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", invalid("email and password are required")
	}
	return email, nil
}
