// ABOUTME: In-memory ledger Store for tests and dry runs
// ABOUTME: Nothing is persisted; a single mutex guards all ledgers

package ledger

import (
	"context"
	"sync"
)

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu      sync.Mutex
	ledgers map[StateCode][]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledgers: make(map[StateCode][]string),
	}
}

// Append adds email to the tail of the ledger for state.
func (m *MemoryStore) Append(ctx context.Context, state StateCode, email string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ledgers[state] = append(m.ledgers[state], email)
	return nil
}

// PopFront removes and returns the oldest entry for state.
func (m *MemoryStore) PopFront(ctx context.Context, state StateCode) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.ledgers[state]
	if len(entries) == 0 {
		return "", false, nil
	}

	email := entries[0]
	// Keep the key so the emptied ledger is still listed.
	m.ledgers[state] = append([]string{}, entries[1:]...)
	return email, true, nil
}

// ListStates returns all known states, sorted.
func (m *MemoryStore) ListStates(ctx context.Context) ([]StateCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]StateCode, 0, len(m.ledgers))
	for state := range m.ledgers {
		states = append(states, state)
	}
	SortStates(states)
	return states, nil
}

// Counts returns the entry count per known state.
func (m *MemoryStore) Counts(ctx context.Context) (map[StateCode]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[StateCode]int, len(m.ledgers))
	for state, entries := range m.ledgers {
		counts[state] = len(entries)
	}
	return counts, nil
}

// Entries returns a copy of the entries for state.
func (m *MemoryStore) Entries(ctx context.Context, state StateCode) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.ledgers[state]
	if len(entries) == 0 {
		return nil, nil
	}
	return append([]string{}, entries...), nil
}

// Close does nothing.
func (m *MemoryStore) Close() error {
	return nil
}
