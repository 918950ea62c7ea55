// ABOUTME: Intent classification for inbound operator text
// ABOUTME: Each intent is a variant type that carries its own handling

package conversation

import (
	"context"
	"strings"

	"github.com/2389/state-ledger/internal/ledger"
)

// Kind names an intent. The values are stable and used as metric labels.
type Kind string

const (
	KindAddHint    Kind = "add_hint"
	KindListStates Kind = "list_states"
	KindShowCounts Kind = "show_counts"
	KindWelcome    Kind = "welcome"
	KindAddBatch   Kind = "add_batch"
	KindWithdraw   Kind = "withdraw"
	KindUnknown    Kind = "unknown"
)

const batchDelimiters = "&|"

// Intent is a classified message. The set of implementations is closed: the
// unexported handle method keeps other packages from adding variants.
type Intent interface {
	Kind() Kind
	handle(ctx context.Context, h *Handler) (Reply, error)
}

// AddHint asks for the batch format.
type AddHint struct{}

// ListStates offers every known state as a button.
type ListStates struct{}

// ShowCounts reports the entries waiting per state.
type ShowCounts struct{}

// Welcome shows the main menu.
type Welcome struct{}

// AddBatch appends every valid line and reports the rest.
type AddBatch struct {
	Lines []BatchLine
}

// Withdraw pops the oldest entry for State.
type Withdraw struct {
	State ledger.StateCode
}

// Unknown is anything else.
type Unknown struct {
	Text string
}

func (AddHint) Kind() Kind    { return KindAddHint }
func (ListStates) Kind() Kind { return KindListStates }
func (ShowCounts) Kind() Kind { return KindShowCounts }
func (Welcome) Kind() Kind    { return KindWelcome }
func (AddBatch) Kind() Kind   { return KindAddBatch }
func (Withdraw) Kind() Kind   { return KindWithdraw }
func (Unknown) Kind() Kind    { return KindUnknown }

// Rejection fields, also used as metric labels.
const (
	FieldEmail     = "email"
	FieldState     = "state"
	FieldDelimiter = "delimiter"
)

// BatchLine is one non-blank line of a batch. Exactly one of State or
// RejectedField is set.
type BatchLine struct {
	Number        int // 1-based position in the message
	Raw           string
	Email         string
	State         ledger.StateCode
	RejectedField string
	Offending     string // the text that failed RejectedField
}

// Valid reports whether the line can be appended.
func (l BatchLine) Valid() bool {
	return l.RejectedField == ""
}

// Classify maps text to an intent. Keywords are matched exactly after
// trimming; the first matching rule wins.
func Classify(c Catalog, text string) Intent {
	text = strings.TrimSpace(text)

	switch text {
	case c.AddKeyword:
		return AddHint{}
	case c.TakeKeyword:
		return ListStates{}
	case c.CountsKeyword:
		return ShowCounts{}
	case c.BackKeyword, StartCommand:
		return Welcome{}
	}

	if strings.ContainsAny(text, batchDelimiters) {
		return AddBatch{Lines: parseBatch(text)}
	}

	if state, err := ledger.ParseStateCode(text); err == nil {
		return Withdraw{State: state}
	}

	return Unknown{Text: text}
}

// parseBatch splits text into lines and each line once on its delimiter:
// '&' when present, otherwise '|'. Blank lines are skipped but still counted
// for line numbers.
func parseBatch(text string) []BatchLine {
	var lines []BatchLine
	for i, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		lines = append(lines, parseBatchLine(i+1, raw))
	}
	return lines
}

func parseBatchLine(number int, raw string) BatchLine {
	line := BatchLine{Number: number, Raw: raw}

	sep := "|"
	if strings.Contains(raw, "&") {
		sep = "&"
	}
	email, state, ok := strings.Cut(raw, sep)
	if !ok {
		line.RejectedField = FieldDelimiter
		line.Offending = raw
		return line
	}

	line.Email = strings.TrimSpace(email)
	if err := ledger.ValidateEmail(line.Email); err != nil {
		line.RejectedField = FieldEmail
		line.Offending = line.Email
		return line
	}

	code, err := ledger.ParseStateCode(state)
	if err != nil {
		line.RejectedField = FieldState
		line.Offending = strings.TrimSpace(state)
		return line
	}
	line.State = code
	return line
}
