package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/hash"
	"github.com/Skotchmaster/deen_api/internal/models"
	"github.com/Skotchmaster/deen_api/pkg/tokens"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

// LocalIssuer keeps bcrypt hashes in the identity store and signs HS256
// tokens with the server secret.
type LocalIssuer struct {
	Store       IdentityStore
	Secret      []byte
	TTL         time.Duration
	TokenIssuer string
	Now         func() time.Time
}

func NewLocalIssuer(store IdentityStore, secret []byte, ttl time.Duration, tokenIssuer string) *LocalIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &LocalIssuer{Store: store, Secret: secret, TTL: ttl, TokenIssuer: tokenIssuer, Now: time.Now}
}

func (s *LocalIssuer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *LocalIssuer) Register(ctx context.Context, email, password, name string) (*Result, error) {
	in, err := validateRegistration(email, password, name)
	if err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(in.password)
	if err != nil {
		if errors.Is(err, hash.ErrPasswordTooLong) {
			return nil, invalid("password must be at most %d bytes", maxPasswordLen)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        in.email,
		Name:         in.name,
		PasswordHash: pwHash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	return s.result(user)
}

func (s *LocalIssuer) Login(ctx context.Context, email, password string) (*Result, error) {
	email, err := validateLogin(email, password)
	if err != nil {
		return nil, err
	}

	user, err := s.Store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			hash.CheckPassword("", password)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}

	return s.result(user)
}

func (s *LocalIssuer) IssueToken(u *models.User) (string, time.Time, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	claims := tokens.NewClaims(u.ID, u.Email, s.TokenIssuer, s.now(), ttl)
	signed, err := tokens.Sign(claims, s.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (s *LocalIssuer) result(u *models.User) (*Result, error) {
	tok, exp, err := s.IssueToken(u)
	if err != nil {
		return nil, err
	}
	return &Result{User: *u, Token: tok, ExpiresAt: exp}, nil
}

// LocalVerifier checks HS256 tokens minted by LocalIssuer.
type LocalVerifier struct {
	Secret      []byte
	TokenIssuer string
	Now         func() time.Time
}

func NewLocalVerifier(secret []byte, tokenIssuer string) *LocalVerifier {
	return &LocalVerifier{Secret: secret, TokenIssuer: tokenIssuer, Now: time.Now}
}

func (v *LocalVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	var opts []jwt.ParserOption
	if v.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(v.Now))
	}
	if v.TokenIssuer != "" {
		opts = append(opts, jwt.WithIssuer(v.TokenIssuer))
	}

	claims, err := tokens.ClaimsFromToken(token, v.Secret, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidToken, err)
	}
	return &Identity{ID: claims.Subject, Email: claims.Email}, nil
}
