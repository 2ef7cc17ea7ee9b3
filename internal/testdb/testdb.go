// Package testdb opens a throwaway sqlite database migrated with the
// production migrations.
package testdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/deen_api/internal/migrations"
	"github.com/Skotchmaster/deen_api/pkg/db"
)

func Open(t testing.TB) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	require.NoError(t, db.Migrate(ctx, gdb, migrations.FS))
	return gdb
}
