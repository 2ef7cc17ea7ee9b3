package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/deen_api/internal/apperr"
)

func TestAuthorizer_RequireAdmin(t *testing.T) {
	store := newMemStore()
	iss := newTestIssuer(store)
	ctx := context.Background()

	admin, err := iss.Register(ctx, "admin@x.com", "secret1", "")
	require.NoError(t, err)
	store.setAdmin(admin.User.ID, true)
	member, err := iss.Register(ctx, "member@x.com", "secret1", "")
	require.NoError(t, err)

	a := NewAuthorizer(store)
	assert.NoError(t, a.RequireAdmin(ctx, &Identity{ID: admin.User.ID}))
	assert.ErrorIs(t, a.RequireAdmin(ctx, &Identity{ID: member.User.ID}), apperr.ErrForbidden)
	assert.ErrorIs(t, a.RequireAdmin(ctx, &Identity{ID: "deleted-user"}), apperr.ErrForbidden)
	assert.ErrorIs(t, a.RequireAdmin(ctx, nil), apperr.ErrForbidden)

	// revocation of the flag applies on the next request
	store.setAdmin(admin.User.ID, false)
	assert.ErrorIs(t, a.RequireAdmin(ctx, &Identity{ID: admin.User.ID}), apperr.ErrForbidden)

	store.err = fmt.Errorf("%w: timeout", apperr.ErrStoreUnavailable)
	err = a.RequireAdmin(ctx, &Identity{ID: admin.User.ID})
	assert.ErrorIs(t, err, apperr.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, apperr.ErrForbidden)
}
