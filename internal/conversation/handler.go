// ABOUTME: Stateless conversation handler that turns operator text into ledger calls
// ABOUTME: Every message is classified, handled to completion and answered with a Reply

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/state-ledger/internal/ledger"
	"github.com/2389/state-ledger/internal/metrics"
)

// Reply is what the transport sends back. HTML is empty for plain-text
// replies. Buttons are quick-reply labels for the next turn; nil leaves the
// previous set in place.
type Reply struct {
	Text    string
	HTML    string
	Buttons []string
}

// Handler interprets messages against one catalog and one store.
type Handler struct {
	store    ledger.Store
	catalog  Catalog
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewHandler creates a handler. A nil recorder records nothing.
func NewHandler(store ledger.Store, catalog Catalog, recorder metrics.Recorder, logger *slog.Logger) (*Handler, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    store,
		catalog:  catalog,
		recorder: recorder,
		logger:   logger.With("component", "conversation"),
	}, nil
}

// Catalog returns the handler's message catalog.
func (h *Handler) Catalog() Catalog {
	return h.catalog
}

// Handle classifies text and runs the matching intent. Storage errors abort
// the request and are returned; the caller decides how to tell the operator.
func (h *Handler) Handle(ctx context.Context, text string) (Reply, error) {
	intent := Classify(h.catalog, text)
	kind := intent.Kind()
	h.recorder.IncIntent(string(kind))
	h.logger.Debug("classified message", "intent", kind)

	reply, err := intent.handle(ctx, h)
	if err != nil {
		return Reply{}, fmt.Errorf("handling %s: %w", kind, err)
	}
	return reply, nil
}

// FailureReply is sent when Handle returns an error.
func (h *Handler) FailureReply() Reply {
	return Reply{Text: h.catalog.Failure, Buttons: h.catalog.MainMenu()}
}

func (h *Handler) welcome() Reply {
	return Reply{Text: h.catalog.Welcome, Buttons: h.catalog.MainMenu()}
}

func (AddHint) handle(_ context.Context, h *Handler) (Reply, error) {
	return Reply{Text: h.catalog.AddHint}, nil
}

func (ListStates) handle(ctx context.Context, h *Handler) (Reply, error) {
	states, err := h.store.ListStates(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("listing states: %w", err)
	}
	if len(states) == 0 {
		return Reply{Text: h.catalog.NoStates, Buttons: h.catalog.MainMenu()}, nil
	}

	buttons := make([]string, 0, len(states)+1)
	for _, s := range states {
		buttons = append(buttons, s.String())
	}
	buttons = append(buttons, h.catalog.BackKeyword)
	return Reply{Text: h.catalog.ChooseState, Buttons: buttons}, nil
}

func (ShowCounts) handle(ctx context.Context, h *Handler) (Reply, error) {
	counts, err := h.store.Counts(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("counting entries: %w", err)
	}
	if len(counts) == 0 {
		return Reply{Text: h.catalog.NoCounts}, nil
	}

	states := make([]ledger.StateCode, 0, len(counts))
	for s := range counts {
		states = append(states, s)
	}
	ledger.SortStates(states)

	lines := make([]string, 0, len(states))
	for _, s := range states {
		lines = append(lines, fmt.Sprintf(h.catalog.CountFormat, s, counts[s]))
	}
	return Reply{Text: strings.Join(lines, "\n")}, nil
}

func (Welcome) handle(_ context.Context, h *Handler) (Reply, error) {
	return h.welcome(), nil
}

// handle appends lines in order. A storage failure stops the batch; lines
// before it stay appended.
func (b AddBatch) handle(ctx context.Context, h *Handler) (Reply, error) {
	added := make(map[ledger.StateCode]int)
	total := 0
	var rejections []string

	for _, line := range b.Lines {
		if !line.Valid() {
			h.recorder.IncRejected(line.RejectedField)
			rejections = append(rejections, h.rejection(line))
			continue
		}
		if err := h.store.Append(ctx, line.State, line.Email); err != nil {
			h.recordAdded(added)
			return Reply{}, fmt.Errorf("appending line %d to %s: %w", line.Number, line.State, err)
		}
		added[line.State]++
		total++
	}
	h.recordAdded(added)

	h.logger.Info("batch processed", "added", total, "rejected", len(rejections))

	var sb strings.Builder
	if total > 0 {
		fmt.Fprintf(&sb, h.catalog.AddedFormat, total)
	} else {
		sb.WriteString(h.catalog.NothingAdded)
	}
	for _, r := range rejections {
		sb.WriteString("\n")
		sb.WriteString(r)
	}
	return Reply{Text: sb.String(), Buttons: h.catalog.MainMenu()}, nil
}

func (h *Handler) rejection(line BatchLine) string {
	format := h.catalog.RejectDelimiterFormat
	switch line.RejectedField {
	case FieldEmail:
		format = h.catalog.RejectEmailFormat
	case FieldState:
		format = h.catalog.RejectStateFormat
	}
	return fmt.Sprintf(format, line.Number, line.Offending)
}

func (h *Handler) recordAdded(added map[ledger.StateCode]int) {
	for state, n := range added {
		h.recorder.AddAppended(state.String(), n)
	}
}

func (w Withdraw) handle(ctx context.Context, h *Handler) (Reply, error) {
	email, ok, err := h.store.PopFront(ctx, w.State)
	if err != nil {
		return Reply{}, fmt.Errorf("withdrawing from %s: %w", w.State, err)
	}
	if !ok {
		h.recorder.IncWithdrawal(w.State.String(), metrics.WithdrawMiss)
		return Reply{
			Text:    fmt.Sprintf(h.catalog.NoEmailsFormat, w.State),
			Buttons: h.catalog.MainMenu(),
		}, nil
	}

	h.recorder.IncWithdrawal(w.State.String(), metrics.WithdrawHit)
	h.logger.Info("entry withdrawn", "state", w.State)

	html, err := mailtoHTML(email)
	if err != nil {
		// The entry is already popped; send it as plain text.
		h.logger.Warn("rendering mailto link failed", "error", err)
		html = ""
	}
	return Reply{Text: email, HTML: html, Buttons: h.catalog.MainMenu()}, nil
}

func (Unknown) handle(_ context.Context, h *Handler) (Reply, error) {
	return Reply{Text: h.catalog.Unknown}, nil
}
