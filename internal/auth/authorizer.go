package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/deen_api/internal/apperr"
)

type Authorizer struct {
	Store IdentityStore
}

func NewAuthorizer(store IdentityStore) *Authorizer {
	return &Authorizer{Store: store}
}

// RequireAdmin passes only when the stored record has is_admin set. The flag
// is read from the store on every call, never from the token.
func (a *Authorizer) RequireAdmin(ctx context.Context, id *Identity) error {
	if id == nil || id.ID == "" {
		return apperr.ErrForbidden
	}

	u, err := a.Store.GetUserByID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("%w: identity not found", apperr.ErrForbidden)
		}
		return err
	}
	if !u.IsAdmin {
		return apperr.ErrForbidden
	}
	return nil
}
