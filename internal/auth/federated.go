package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/deen_api/internal/apperr"
	"github.com/Skotchmaster/deen_api/internal/models"
	"github.com/Skotchmaster/deen_api/pkg/authclient"
	"github.com/Skotchmaster/deen_api/pkg/logging"
)

const (
	maxProviderTimeout = 5 * time.Second
	defaultJWKSTTL     = 10 * time.Minute
	jwksMinRefresh     = 10 * time.Second
)

type FederatedConfig struct {
	JWKSURL    string
	Issuer     string
	Audience   string
	Timeout    time.Duration
	CacheTTL   time.Duration
	HTTPClient *http.Client
	Now        func() time.Time
}

type federatedClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// FederatedVerifier accepts RS256 ID tokens signed by the identity provider.
type FederatedVerifier struct {
	issuer   string
	audience string
	now      func() time.Time
	jwks     *jwksCache
}

func NewFederatedVerifier(cfg FederatedConfig) (*FederatedVerifier, error) {
	if cfg.JWKSURL == "" {
		return nil, errors.New("jwks url is required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, errors.New("issuer and audience are required")
	}
	if cfg.Timeout <= 0 || cfg.Timeout > maxProviderTimeout {
		cfg.Timeout = maxProviderTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultJWKSTTL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &FederatedVerifier{
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      cfg.Now,
		jwks: &jwksCache{
			url:        cfg.JWKSURL,
			ttl:        cfg.CacheTTL,
			timeout:    cfg.Timeout,
			httpClient: cfg.HTTPClient,
			minRefresh: jwksMinRefresh,
		},
	}, nil
}

// Verify fails with apperr.ErrServiceUnavailable when the key set cannot be
// fetched and apperr.ErrInvalidToken for everything else.
func (v *FederatedVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	var claims federatedClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, err := v.jwks.key(ctx, kid)
		if err != nil && !errors.Is(err, errKeyNotFound) {
			return nil, fmt.Errorf("%w: %w", apperr.ErrServiceUnavailable, err)
		}
		return key, err
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, apperr.ErrServiceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", apperr.ErrInvalidToken)
	}
	return &Identity{ID: claims.Subject, Email: NormalizeEmail(claims.Email)}, nil
}

// IdentityProvider is the password API of the external provider.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (*authclient.Account, error)
	SignInWithPassword(ctx context.Context, email, password string) (*authclient.Account, error)
}

// FederatedIssuer delegates credential checks to the identity provider and
// mirrors each identity into the local store under the provider uid.
type FederatedIssuer struct {
	Provider IdentityProvider
	Store    IdentityStore
	Now      func() time.Time
}

func NewFederatedIssuer(provider IdentityProvider, store IdentityStore) *FederatedIssuer {
	return &FederatedIssuer{Provider: provider, Store: store, Now: time.Now}
}

func (s *FederatedIssuer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *FederatedIssuer) Register(ctx context.Context, email, password, name string) (*Result, error) {
	in, err := validateRegistration(email, password, name)
	if err != nil {
		return nil, err
	}

	acct, err := s.Provider.SignUp(ctx, in.email, in.password, in.name)
	if err != nil {
		return nil, providerErr(err)
	}

	user := &models.User{
		ID:        acct.LocalID,
		Email:     NormalizeEmail(acct.Email),
		Name:      in.name,
		CreatedAt: s.now().UTC(),
	}
	if user.Email == "" {
		user.Email = in.email
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		logging.FromContext(ctx).Error("federated_mirror_failed", "uid", acct.LocalID, "error", err)
		return nil, err
	}

	return &Result{User: *user, Token: acct.IDToken, ExpiresAt: s.now().Add(acct.TTL())}, nil
}

func (s *FederatedIssuer) Login(ctx context.Context, email, password string) (*Result, error) {
	email, err := validateLogin(email, password)
	if err != nil {
		return nil, err
	}

	acct, err := s.Provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, providerErr(err)
	}

	user, err := s.Store.GetUserByID(ctx, acct.LocalID)
	if errors.Is(err, apperr.ErrNotFound) {
		// the mirror is missing when a sign-up was interrupted after the provider call
		user = &models.User{
			ID:        acct.LocalID,
			Email:     NormalizeEmail(acct.Email),
			Name:      strings.TrimSpace(acct.DisplayName),
			CreatedAt: s.now().UTC(),
		}
		if user.Email == "" {
			user.Email = email
		}
		err = s.Store.CreateUser(ctx, user)
	}
	if err != nil {
		return nil, err
	}

	return &Result{User: *user, Token: acct.IDToken, ExpiresAt: s.now().Add(acct.TTL())}, nil
}

// IssueToken is unsupported: ID tokens only come from the provider.
func (s *FederatedIssuer) IssueToken(*models.User) (string, time.Time, error) {
	return "", time.Time{}, fmt.Errorf("federated issue token: %w", apperr.ErrUnsupported)
}

func providerErr(err error) error {
	var apiErr *authclient.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", apperr.ErrServiceUnavailable, err)
	}

	switch apiErr.Code {
	case "EMAIL_EXISTS":
		return fmt.Errorf("%w: %w", apperr.ErrDuplicateIdentity, err)
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return fmt.Errorf("%w: %w", apperr.ErrInvalidCredentials, err)
	case "INVALID_EMAIL":
		return invalid("email is malformed")
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		return invalid("password is too weak")
	default:
		slog.Warn("identity_provider_rejected", "status", apiErr.Status, "code", apiErr.Code)
		return fmt.Errorf("%w: %w", apperr.ErrServiceUnavailable, err)
	}
}
