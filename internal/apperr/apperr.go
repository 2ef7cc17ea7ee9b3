// Package apperr holds the error taxonomy shared by the auth core, the content
// services and the HTTP boundary, plus its mapping onto HTTP statuses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateIdentity  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrMissingToken       = errors.New("missing token")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrServiceUnavailable = errors.New("upstream service unavailable")
	ErrUnsupported        = errors.New("operation not supported")
)

var statuses = []struct {
	err    error
	status int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrDuplicateIdentity, http.StatusBadRequest},
	{ErrInvalidCredentials, http.StatusUnauthorized},
	{ErrMissingToken, http.StatusUnauthorized},
	{ErrInvalidToken, http.StatusForbidden},
	{ErrForbidden, http.StatusForbidden},
	{ErrNotFound, http.StatusNotFound},
	{ErrStoreUnavailable, http.StatusInternalServerError},
	{ErrServiceUnavailable, http.StatusBadGateway},
	{ErrUnsupported, http.StatusNotImplemented},
}

// StatusCode maps err onto an HTTP status; anything outside the taxonomy is a 500.
func StatusCode(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage is the text that may reach a client. Only input errors carry
// their detail; everything else collapses to the sentinel text.
func PublicMessage(err error) string {
	if errors.Is(err, ErrInvalidInput) {
		return err.Error()
	}
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.err.Error()
		}
	}
	return "internal error"
}

// HTTPError converts err into an echo error keeping err as the internal cause.
func HTTPError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return echo.NewHTTPError(StatusCode(err), PublicMessage(err)).SetInternal(err)
}
