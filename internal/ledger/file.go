// ABOUTME: File-per-state implementation of the ledger Store
// ABOUTME: Each ledger is <dir>/<CODE>.txt with one newline-terminated email per line

package ledger

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)

const ledgerFileExt = ".txt"

// FileStore keeps one text file per state code in a directory.
// Every operation on a state holds that state's lock, which makes PopFront
// atomic within the process. Other processes sharing the directory are not
// coordinated.
type FileStore struct {
	dir    string
	locks  sync.Map // StateCode -> *sync.Mutex
	logger *slog.Logger
}

// NewFileStore opens the ledger directory at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("ledger directory is required")
	}
	dir = filepath.Clean(strings.TrimSpace(dir))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating ledger directory %s: %w", dir, err)
	}

	logger := slog.Default().With("component", "ledger", "backend", "files")
	logger.Info("file ledger store initialized", "dir", dir)

	return &FileStore{
		dir:    dir,
		logger: logger,
	}, nil
}

// Dir returns the directory holding the ledger files.
func (s *FileStore) Dir() string {
	return s.dir
}

// Close is a no-op; files are closed after every operation.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) path(state StateCode) string {
	return filepath.Join(s.dir, string(state)+ledgerFileExt)
}

func (s *FileStore) lock(state StateCode) func() {
	v, _ := s.locks.LoadOrStore(state, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Append writes email as a new line at the end of the state's file.
func (s *FileStore) Append(ctx context.Context, state StateCode, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateEmail(email); err != nil {
		return err
	}

	unlock := s.lock(state)
	defer unlock()

	f, err := os.OpenFile(s.path(state), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening ledger %s: %w", state, err)
	}
	if _, err := f.WriteString(email + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing ledger %s: %w", state, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing ledger %s: %w", state, err)
	}

	s.logger.Debug("appended entry", "state", state)
	return nil
}

// PopFront removes the first line of the state's file and rewrites the rest.
func (s *FileStore) PopFront(ctx context.Context, state StateCode) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	unlock := s.lock(state)
	defer unlock()

	entries, err := s.readLocked(state)
	if err != nil {
		return "", false, err
	}
	if len(entries) == 0 {
		return "", false, nil
	}

	if err := s.writeLocked(state, entries[1:]); err != nil {
		return "", false, err
	}

	s.logger.Debug("popped entry", "state", state)
	return entries[0], true, nil
}

// ListStates returns the codes of every ledger file in the directory.
// Files whose names are not a valid state code are ignored.
func (s *FileStore) ListStates(ctx context.Context) ([]StateCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading ledger directory: %w", err)
	}

	var states []StateCode
	for _, e := range dirEntries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ledgerFileExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ledgerFileExt)
		code, err := ParseStateCode(name)
		if err != nil || string(code) != name {
			continue
		}
		states = append(states, code)
	}
	SortStates(states)
	return states, nil
}

// Counts returns the number of entries in each ledger file.
func (s *FileStore) Counts(ctx context.Context) (map[StateCode]int, error) {
	states, err := s.ListStates(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[StateCode]int, len(states))
	for _, state := range states {
		entries, err := s.Entries(ctx, state)
		if err != nil {
			return nil, err
		}
		counts[state] = len(entries)
	}
	return counts, nil
}

// Entries returns the non-blank lines of the state's file.
func (s *FileStore) Entries(ctx context.Context, state StateCode) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unlock := s.lock(state)
	defer unlock()

	return s.readLocked(state)
}

// readLocked reads the ledger file; a missing file is an empty ledger.
// Must be called with the state's lock held.
func (s *FileStore) readLocked(state StateCode) ([]string, error) {
	data, err := os.ReadFile(s.path(state))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", state, err)
	}

	var entries []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning ledger %s: %w", state, err)
	}
	return entries, nil
}

// writeLocked replaces the ledger file with entries via a temp file and rename.
// Must be called with the state's lock held.
func (s *FileStore) writeLocked(state StateCode, entries []string) error {
	var buf bytes.Buffer
	for _, e := range entries {
		buf.WriteString(e)
		buf.WriteByte('\n')
	}

	target := s.path(state)
	tmp, err := os.CreateTemp(s.dir, "."+string(state)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", state, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file for %s: %w", state, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file for %s: %w", state, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions for %s: %w", state, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing ledger %s: %w", state, err)
	}
	return nil
}
