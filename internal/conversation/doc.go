// Package conversation turns operator chat text into ledger operations.
//
// # Overview
//
// The Handler is stateless: every message is classified and handled on its
// own. Classify checks, in order:
//
//  1. The add keyword: reply with the batch format hint
//  2. The take keyword: offer every known state as a button
//  3. The counts keyword: one "<CODE> : <count>" line per state
//  4. The back keyword or /start: the welcome menu
//  5. Text containing & or |: a batch of email&STATE or email|STATE lines
//  6. Exactly two letters: withdraw the oldest entry for that state
//  7. Anything else: unrecognized
//
// Each intent is its own type implementing Intent, so adding a case means
// adding a type with its handling next to it.
//
// # Batches
//
// Lines are split on newlines and trimmed; blank lines are skipped. A line
// uses '&' when it contains one, otherwise '|', and is split once. Valid lines
// are appended in order; invalid ones are listed in the reply with the field
// that failed:
//
//	Added 1 email(s).
//	line 2: invalid email "bad-email"
//
// # Catalogs
//
// English is the default and Russian is the alternative. Keywords are
// also the button labels the transport shows, so they are matched exactly. A
// catalog whose keyword would parse as a state code is rejected by NewHandler.
//
// # Usage
//
//	h, err := conversation.NewHandler(store, conversation.English, recorder, logger)
//	reply, err := h.Handle(ctx, "user@example.com|IL")
package conversation
