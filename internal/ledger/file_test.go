// ABOUTME: Tests for the file-per-state store and its on-disk layout
// ABOUTME: Files must stay readable by anything that consumed emails_by_state directly

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "emails_by_state"))
	require.NoError(t, err)
	return s
}

func readLedgerFile(t *testing.T, s *FileStore, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(s.Dir(), name))
	require.NoError(t, err)
	return string(data)
}

func TestFileStore_Layout(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	il := mustState(t, "IL")

	require.NoError(t, s.Append(ctx, il, "a@x.com"))
	require.NoError(t, s.Append(ctx, il, "b@x.com"))
	assert.Equal(t, "a@x.com\nb@x.com\n", readLedgerFile(t, s, "IL.txt"))

	_, _, err := s.PopFront(ctx, il)
	require.NoError(t, err)
	assert.Equal(t, "b@x.com\n", readLedgerFile(t, s, "IL.txt"))

	_, _, err = s.PopFront(ctx, il)
	require.NoError(t, err)
	assert.Equal(t, "", readLedgerFile(t, s, "IL.txt"))
}

func TestFileStore_ReadsExistingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "emails_by_state")
	require.NoError(t, os.MkdirAll(dir, 0755))

	files := map[string]string{
		"NY.txt":    "first@x.com\n\nsecond@x.com\n",
		"CA.txt":    "",
		"notes.txt": "not a ledger\n",
		"ABC.txt":   "x@x.com\n",
		"il.txt":    "lower@x.com\n",
		"TX.csv":    "x@x.com\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	states, err := s.ListStates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []StateCode{"CA", "NY"}, states)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[StateCode]int{"CA": 0, "NY": 2}, counts)

	email, ok, err := s.PopFront(ctx, mustState(t, "NY"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first@x.com", email)
	assert.Equal(t, "second@x.com\n", readLedgerFile(t, s, "NY.txt"))
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	s := newTestFileStore(t)
	ctx := context.Background()
	ga := mustState(t, "GA")

	for _, e := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		require.NoError(t, s.Append(ctx, ga, e))
	}
	for i := 0; i < 3; i++ {
		_, _, err := s.PopFront(ctx, ga)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "GA.txt", entries[0].Name())
}

func TestNewFileStore_RequiresDir(t *testing.T) {
	_, err := NewFileStore("  ")
	assert.Error(t, err)
}
