// ABOUTME: Recorder interface for bot observability and its no-op default
// ABOUTME: The conversation handler and bridge report through this, never Prometheus directly

package metrics

// Outcome labels for withdrawals.
const (
	WithdrawHit  = "hit"
	WithdrawMiss = "miss"
)

// Recorder defines observability hooks for ledger traffic. Implementations may
// forward to Prometheus; NoopRecorder is the default when metrics are off.
type Recorder interface {
	IncIntent(kind string)
	AddAppended(state string, n int)
	IncRejected(field string)
	IncWithdrawal(state string, outcome string)
	SetDepth(state string, n int)
	IncDroppedEvent(reason string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncIntent(string)             {}
func (NoopRecorder) AddAppended(string, int)      {}
func (NoopRecorder) IncRejected(string)           {}
func (NoopRecorder) IncWithdrawal(string, string) {}
func (NoopRecorder) SetDepth(string, int)         {}
func (NoopRecorder) IncDroppedEvent(string)       {}
