// ABOUTME: Backend selection and store-to-store copying
// ABOUTME: Copy is how an emails_by_state directory is migrated into SQLite

package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend name
var ErrUnknownBackend = errors.New("unknown ledger backend")

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFiles  = "files"
	BackendMemory = "memory"
)

// Open constructs the Store for backend. path is the database file for
// sqlite and the directory for files; it is ignored for memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite:
		return NewSQLiteStore(path)
	case BackendFiles:
		return NewFileStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}

// CopyReport summarises a Copy.
type CopyReport struct {
	Copied   map[StateCode]int
	Skipped  []StateCode // empty in the source, so not created in the destination
	Rejected []CopyRejection
}

// CopyRejection is a source entry that failed email validation and was not copied.
type CopyRejection struct {
	State    StateCode
	Position int // 1-based position in the source ledger
	Email    string
}

// Total returns the number of entries copied across all states.
func (r CopyReport) Total() int {
	total := 0
	for _, n := range r.Copied {
		total += n
	}
	return total
}

type copyBatch struct {
	state   StateCode
	entries []string
}

// Copy appends every valid entry of src to dst, state by state, in FIFO order.
// The whole source is read and validated before the first Append, so a
// malformed entry is reported in Rejected instead of stopping the copy
// halfway. src is left untouched. Entries already present in dst are not
// deduplicated. On error the report describes what reached dst.
func Copy(ctx context.Context, dst, src Store) (CopyReport, error) {
	report := CopyReport{Copied: make(map[StateCode]int)}

	states, err := src.ListStates(ctx)
	if err != nil {
		return report, fmt.Errorf("listing source states: %w", err)
	}

	var batches []copyBatch
	for _, state := range states {
		entries, err := src.Entries(ctx, state)
		if err != nil {
			return report, fmt.Errorf("reading source ledger %s: %w", state, err)
		}
		if len(entries) == 0 {
			report.Skipped = append(report.Skipped, state)
			continue
		}

		valid := make([]string, 0, len(entries))
		for i, email := range entries {
			if err := ValidateEmail(email); err != nil {
				report.Rejected = append(report.Rejected, CopyRejection{State: state, Position: i + 1, Email: email})
				continue
			}
			valid = append(valid, email)
		}
		if len(valid) > 0 {
			batches = append(batches, copyBatch{state: state, entries: valid})
		}
	}

	for _, b := range batches {
		for _, email := range b.entries {
			if err := dst.Append(ctx, b.state, email); err != nil {
				return report, fmt.Errorf("copying %s entry: %w", b.state, err)
			}
			report.Copied[b.state]++
		}
	}

	return report, nil
}
