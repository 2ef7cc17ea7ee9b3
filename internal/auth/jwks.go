package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var errKeyNotFound = errors.New("signing key not found")

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// jwksCache holds the provider's RSA signing keys by kid. The lock only
// guards the map and timestamps; fetches run outside it, one at a time, and
// callers stop waiting when their own context ends.
type jwksCache struct {
	url        string
	ttl        time.Duration
	timeout    time.Duration
	httpClient *http.Client
	// minRefresh spaces fetches after a failure or for an unknown kid.
	minRefresh time.Duration

	fetches singleflight.Group

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastFetch   time.Time
	lastAttempt time.Time
	lastErr     error
}

func (c *jwksCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := time.Since(c.lastFetch) <= c.ttl
	backoff := time.Since(c.lastAttempt) < c.minRefresh
	lastErr := c.lastErr
	c.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}
	if backoff {
		switch {
		case ok:
			return key, nil
		case lastErr != nil:
			return nil, lastErr
		default:
			return nil, fmt.Errorf("%w: kid %q", errKeyNotFound, kid)
		}
	}

	if err := c.refresh(ctx); err != nil {
		if ok {
			slog.Warn("jwks_refresh_failed", "reason", "using cached key", "error", err)
			return key, nil
		}
		return nil, err
	}

	c.mu.RLock()
	key, ok = c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", errKeyNotFound, kid)
	}
	return key, nil
}

// refresh joins the in-flight fetch or starts one. The fetch is bounded by
// c.timeout and outlives a caller that gives up early.
func (c *jwksCache) refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ch := c.fetches.DoChan("jwks", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		keys, err := c.fetch(fetchCtx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.lastAttempt = time.Now()
		c.lastErr = err
		if err == nil {
			c.keys = keys
			c.lastFetch = c.lastAttempt
		}
		return nil, err
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *jwksCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			slog.Warn("jwks_key_skipped", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("fetch jwks: no usable signing keys")
	}
	return keys, nil
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("decode n: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("decode e: %w", err)
	}
	e := new(big.Int).SetBytes(eBytes)
	if len(nBytes) == 0 || !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return nil, errors.New("bad rsa parameters")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}
