// Package authclient talks to an Identity Toolkit style identity provider:
// password sign-up and sign-in over REST, keyed by a project API key.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const MaxTimeout = 5 * time.Second

// ErrUnavailable marks transport failures and 5xx answers.
var ErrUnavailable = errors.New("identity provider unavailable")

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a client; timeout is clamped to MaxTimeout.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type Account struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
	ExpiresIn   string `json:"expiresIn"`
}

// TTL parses ExpiresIn, which the provider sends as a decimal string of seconds.
func (a *Account) TTL() time.Duration {
	secs, err := strconv.ParseInt(a.ExpiresIn, 10, 64)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}

// APIError is a 4xx answer. Code is the provider's reason such as
// EMAIL_EXISTS or INVALID_PASSWORD.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("identity provider: %d %s", e.Status, e.Message)
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	DisplayName       string `json:"displayName,omitempty"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*Account, error) {
	return c.post(ctx, "accounts:signUp", passwordRequest{
		Email: email, Password: password, DisplayName: displayName, ReturnSecureToken: true,
	})
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	return c.post(ctx, "accounts:signInWithPassword", passwordRequest{
		Email: email, Password: password, ReturnSecureToken: true,
	})
}

func (c *Client) post(ctx context.Context, method string, body any) (*Account, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.baseURL + "/" + method + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var acct Account
	if err := json.NewDecoder(resp.Body).Decode(&acct); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}
	if acct.LocalID == "" || acct.IDToken == "" {
		return nil, fmt.Errorf("%w: incomplete account response", ErrUnavailable)
	}
	return &acct, nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
		// "WEAK_PASSWORD : Password should be at least 6 characters"
		apiErr.Code = strings.TrimSpace(strings.SplitN(body.Error.Message, ":", 2)[0])
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
