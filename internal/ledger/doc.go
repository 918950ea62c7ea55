// Package ledger stores FIFO lists of email addresses keyed by state code.
//
// # Model
//
// A ledger is identified by a StateCode (two ASCII letters, upper-cased by
// ParseStateCode) and holds email addresses in arrival order. Ledgers are
// created implicitly by the first Append and are never deleted; an emptied
// ledger is still reported by ListStates and Counts.
//
// # Backends
//
//   - SQLiteStore: modernc.org/sqlite, one database for all ledgers
//   - FileStore: one <CODE>.txt file per ledger, newline-terminated lines
//   - MemoryStore: in-process, for tests
//
// Open selects a backend by name. Copy moves entries between stores, which is
// how an existing emails_by_state directory is imported into SQLite:
//
//	src, _ := ledger.NewFileStore("emails_by_state")
//	dst, _ := ledger.NewSQLiteStore("/var/lib/ledger/ledger.db")
//	report, err := ledger.Copy(ctx, dst, src)
//
// # Withdrawal
//
// PopFront is atomic per state: concurrent callers never receive the same
// entry. A missing or empty ledger is reported with ok=false, not an error.
package ledger
