// ABOUTME: Contract tests for the on-disk ledger formats to detect breaking changes
// ABOUTME: Checks the SQLite tables and indexes and the emails_by_state file layout

package contract

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/state-ledger/internal/ledger"
)

// expectedSchema is the SQLite layout existing databases rely on. Removing
// or renaming any of these breaks reopening an older ledger.db.
var expectedSchema = map[string][]string{
	"ledgers": {
		"state_code", "created_at",
	},
	"ledger_entries": {
		"seq", "entry_id", "state_code", "email", "created_at",
	},
}

var expectedIndexes = []string{
	"idx_ledger_entries_state_seq",
}

// setupTestDB creates a database through the store and opens a second
// connection for inspection.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "contract_test.db")

	store, err := ledger.NewSQLiteStore(dbPath)
	require.NoError(t, err, "failed to create SQLite store")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err, "failed to open database")

	t.Cleanup(func() {
		db.Close()
		store.Close()
	})

	return db
}

// getTableColumns queries SQLite to get column names for a table.
func getTableColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return nil, fmt.Errorf("querying table info: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scanning column info: %w", err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

func sqliteNames(ctx context.Context, t *testing.T, db *sql.DB, kind string) map[string]bool {
	t.Helper()
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%'", kind)
	require.NoError(t, err)
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names[name] = true
	}
	require.NoError(t, rows.Err())
	return names
}

func TestSchemaSurface(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tables := sqliteNames(ctx, t, db, "table")
	for table, expectedCols := range expectedSchema {
		t.Run(table, func(t *testing.T) {
			require.True(t, tables[table], "table %s should exist", table)

			actualCols, err := getTableColumns(ctx, db, table)
			require.NoError(t, err)

			for _, col := range expectedCols {
				assert.True(t, actualCols[col], "column %s.%s should exist", table, col)
			}
			for col := range actualCols {
				if !slices.Contains(expectedCols, col) {
					t.Logf("INFO: extra column %s.%s not in contract (consider adding)", table, col)
				}
			}
		})
	}
}

func TestSchemaHasIndexes(t *testing.T) {
	db := setupTestDB(t)
	indexes := sqliteNames(context.Background(), t, db, "index")

	for _, idx := range expectedIndexes {
		assert.True(t, indexes[idx], "index %s should exist", idx)
	}
}

func TestSchemaRejectsBadStateCode(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Exec("INSERT INTO ledgers (state_code, created_at) VALUES ('ILL', '2025-01-01T00:00:00Z')")
	assert.Error(t, err, "ledgers.state_code must be exactly two characters")
}

// TestFileLayout pins the emails_by_state format shared with existing
// deployments: <CODE>.txt, one address per line, newline-terminated.
func TestFileLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "emails_by_state")
	store, err := ledger.NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "NY", "a@x.com"))
	require.NoError(t, store.Append(ctx, "NY", "b@x.com"))
	require.NoError(t, store.Append(ctx, "IL", "c@x.com"))
	_, _, err = store.PopFront(ctx, "IL")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"IL.txt", "NY.txt"}, names)

	ny, err := os.ReadFile(filepath.Join(dir, "NY.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com\nb@x.com\n", string(ny))

	il, err := os.ReadFile(filepath.Join(dir, "IL.txt"))
	require.NoError(t, err)
	assert.Empty(t, il, "an emptied ledger stays as an empty file")
}
