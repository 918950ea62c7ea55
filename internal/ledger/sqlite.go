// ABOUTME: SQLite implementation of the ledger Store using modernc.org/sqlite
// ABOUTME: Pops are a single DELETE ... RETURNING statement, so they are atomic per state

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps every ledger in one SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at path.
// Parent directories are created if needed; ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "ledger", "backend", "sqlite")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: writes are serialized and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite ledger store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS ledgers (
			state_code TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,

			CHECK (length(state_code) = 2)
		);

		CREATE TABLE IF NOT EXISTS ledger_entries (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id   TEXT NOT NULL UNIQUE,
			state_code TEXT NOT NULL REFERENCES ledgers(state_code),
			email      TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ledger_entries_state_seq
			ON ledger_entries(state_code, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite ledger store")
	return s.db.Close()
}

// Append inserts email at the tail of the ledger for state.
func (s *SQLiteStore) Append(ctx context.Context, state StateCode, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning append: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO ledgers (state_code, created_at) VALUES (?, ?)`,
		string(state), now,
	); err != nil {
		return fmt.Errorf("creating ledger %s: %w", state, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (entry_id, state_code, email, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), string(state), email, now); err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing append: %w", err)
	}

	s.logger.Debug("appended entry", "state", state)
	return nil
}

// PopFront deletes and returns the oldest entry for state.
func (s *SQLiteStore) PopFront(ctx context.Context, state StateCode) (string, bool, error) {
	query := `
		DELETE FROM ledger_entries
		WHERE seq = (
			SELECT seq FROM ledger_entries
			WHERE state_code = ?
			ORDER BY seq
			LIMIT 1
		)
		RETURNING email
	`

	var email string
	err := s.db.QueryRowContext(ctx, query, string(state)).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("popping entry for %s: %w", state, err)
	}

	s.logger.Debug("popped entry", "state", state)
	return email, true, nil
}

// ListStates returns every state that has ever received an entry.
func (s *SQLiteStore) ListStates(ctx context.Context) ([]StateCode, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state_code FROM ledgers ORDER BY state_code`)
	if err != nil {
		return nil, fmt.Errorf("querying ledgers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []StateCode
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning ledger: %w", err)
		}
		states = append(states, StateCode(code))
	}
	return states, rows.Err()
}

// Counts returns the entry count per known state, zero for empty ledgers.
func (s *SQLiteStore) Counts(ctx context.Context) (map[StateCode]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.state_code, COUNT(e.seq)
		FROM ledgers l
		LEFT JOIN ledger_entries e ON e.state_code = l.state_code
		GROUP BY l.state_code
	`)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[StateCode]int)
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[StateCode(code)] = n
	}
	return counts, rows.Err()
}

// Entries returns the entries for state, oldest first.
func (s *SQLiteStore) Entries(ctx context.Context, state StateCode) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email FROM ledger_entries WHERE state_code = ? ORDER BY seq`,
		string(state),
	)
	if err != nil {
		return nil, fmt.Errorf("querying entries for %s: %w", state, err)
	}
	defer func() { _ = rows.Close() }()

	var entries []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, email)
	}
	return entries, rows.Err()
}
