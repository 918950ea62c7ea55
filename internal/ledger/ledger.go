// ABOUTME: Ledger types, input validation and the Store interface
// ABOUTME: A ledger is a FIFO list of email addresses keyed by a two-letter state code

package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrInvalidStateCode is returned when a state code is not exactly two letters
var ErrInvalidStateCode = errors.New("invalid state code")

// ErrInvalidEmail is returned when an email address fails the syntax check
var ErrInvalidEmail = errors.New("invalid email")

var (
	stateCodePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)
	emailPattern     = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// StateCode is a normalized (upper-case) two-letter state code.
// Build one with ParseStateCode; the zero value is not a valid code.
type StateCode string

// ParseStateCode trims and validates s and returns it upper-cased.
func ParseStateCode(s string) (StateCode, error) {
	s = strings.TrimSpace(s)
	if !stateCodePattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStateCode, s)
	}
	return StateCode(strings.ToUpper(s)), nil
}

// IsStateCode reports whether s would parse as a state code.
func IsStateCode(s string) bool {
	return stateCodePattern.MatchString(strings.TrimSpace(s))
}

// String returns the code as a plain string.
func (c StateCode) String() string {
	return string(c)
}

// SortStates orders codes alphabetically in place.
func SortStates(states []StateCode) {
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
}

// ValidateEmail checks email against the accepted address syntax.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// Store is the persistence boundary for ledgers.
//
// PopFront reports a missing or empty ledger with ok=false and a nil error;
// errors are reserved for storage failures. Implementations must make
// PopFront atomic per state code so concurrent callers never receive the
// same entry.
type Store interface {
	// Append adds email to the tail of the ledger for state, creating the
	// ledger on first use. Duplicates are allowed.
	Append(ctx context.Context, state StateCode, email string) error

	// PopFront removes and returns the oldest entry for state.
	PopFront(ctx context.Context, state StateCode) (email string, ok bool, err error)

	// ListStates returns every known state code in sorted order,
	// including ledgers that are currently empty.
	ListStates(ctx context.Context) ([]StateCode, error)

	// Counts returns the current number of entries for every known state.
	Counts(ctx context.Context) (map[StateCode]int, error)

	// Entries returns the entries for state in FIFO order without removing them.
	Entries(ctx context.Context, state StateCode) ([]string, error)

	// Close releases any resources held by the store
	Close() error
}
