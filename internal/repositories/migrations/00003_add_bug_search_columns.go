package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"debugdiary/internal/models"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upAddBugSearchColumns, downAddBugSearchColumns)
}

var searchColumns = []string{"search_title", "search_error_message", "search_fix_documentation"}

// upAddBugSearchColumns adds the folded search columns and fills them for
// existing rows. Folding happens in Go so every dialect stores the same text.
func upAddBugSearchColumns(ctx context.Context, tx *sql.Tx) error {
	for _, col := range searchColumns {
		stmt := fmt.Sprintf("ALTER TABLE bug_entries ADD COLUMN %s TEXT NOT NULL DEFAULT ''", col)
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", col, err)
		}
	}

	type row struct {
		id, title, errorMessage, fixDocumentation string
	}
	rows, err := tx.QueryContext(ctx, "SELECT id, title, error_message, fix_documentation FROM bug_entries")
	if err != nil {
		return err
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.title, &r.errorMessage, &r.fixDocumentation); err != nil {
			rows.Close()
			return err
		}
		pending = append(pending, r)
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range pending {
		_, err := tx.ExecContext(ctx,
			"UPDATE bug_entries SET search_title = $1, search_error_message = $2, search_fix_documentation = $3 WHERE id = $4",
			models.FoldSearch(r.title), models.FoldSearch(r.errorMessage), models.FoldSearch(r.fixDocumentation), r.id,
		)
		if err != nil {
			return fmt.Errorf("backfill bug entry %s: %w", r.id, err)
		}
	}
	return nil
}

func downAddBugSearchColumns(ctx context.Context, tx *sql.Tx) error {
	for _, col := range searchColumns {
		if _, err := tx.ExecContext(ctx, "ALTER TABLE bug_entries DROP COLUMN "+col); err != nil {
			return fmt.Errorf("drop column %s: %w", col, err)
		}
	}
	return nil
}
