package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUp_SendsPasswordRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts:signUp", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body passwordRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@x.com", body.Email)
		assert.Equal(t, "Aisha", body.DisplayName)
		assert.True(t, body.ReturnSecureToken)

		_ = json.NewEncoder(w).Encode(Account{LocalID: "uid-1", Email: "a@x.com", DisplayName: "Aisha", IDToken: "tok", ExpiresIn: "3600"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/v1/", "test-key", time.Second)
	acct, err := c.SignUp(context.Background(), "a@x.com", "secret1", "Aisha")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", acct.LocalID)
	assert.Equal(t, time.Hour, acct.TTL())
}

func TestSignIn_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts:signInWithPassword", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", time.Second).SignInWithPassword(context.Background(), "a@x.com", "bad")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "INVALID_PASSWORD", apiErr.Code)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestSignUp_WeakPasswordCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"WEAK_PASSWORD : Password should be at least 6 characters"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", time.Second).SignUp(context.Background(), "a@x.com", "123", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "WEAK_PASSWORD", apiErr.Code)
}

func TestProviderFailuresAreUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", time.Second).SignInWithPassword(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, ErrUnavailable)

	srv.Close()
	_, err = NewClient(srv.URL, "k", time.Second).SignInWithPassword(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTimeoutIsBounded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 50*time.Millisecond)
	start := time.Now()
	_, err := c.SignInWithPassword(context.Background(), "a@x.com", "pw")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, MaxTimeout, NewClient(srv.URL, "k", time.Minute).httpClient.Timeout)
}
