package migrations_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"debugdiary/internal/repositories/migrations"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	db, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.SetDialect("sqlite3"))
	return db
}

func TestSearchColumnsBackfillExistingRows(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	require.NoError(t, goose.UpToContext(ctx, db, ".", 2))
	_, err := db.ExecContext(ctx, `INSERT INTO bug_entries
		(id, owner_id, title, environment, severity, error_message, bug_details, fix_documentation, created_at, updated_at)
		VALUES ('b1', 'o1', 'ÉCHEC de connexion', 'local', 'low', 'Délai DÉPASSÉ', 'd', 'Vider le CACHE', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	require.NoError(t, goose.UpContext(ctx, db, "."))

	var title, message, docs string
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT search_title, search_error_message, search_fix_documentation FROM bug_entries WHERE id = 'b1'",
	).Scan(&title, &message, &docs))
	assert.Equal(t, "échec de connexion", title)
	assert.Equal(t, "délai dépassé", message)
	assert.Equal(t, "vider le cache", docs)
}

func TestSearchColumnsDown(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)

	require.NoError(t, goose.UpContext(ctx, db, "."))
	require.NoError(t, goose.DownToContext(ctx, db, ".", 2))

	_, err := db.ExecContext(ctx, "SELECT search_title FROM bug_entries")
	assert.Error(t, err)
}
