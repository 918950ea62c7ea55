// ABOUTME: Prometheus-backed Recorder and the /metrics HTTP handler
// ABOUTME: All series live under the "ledger" namespace

package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ensure PrometheusRecorder implements Recorder.
var _ Recorder = (*PrometheusRecorder)(nil)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	intents     *prom.CounterVec
	appended    *prom.CounterVec
	rejected    *prom.CounterVec
	withdrawals *prom.CounterVec
	depth       *prom.GaugeVec
	dropped     *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}

	pr := &PrometheusRecorder{
		intents: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "ledger",
			Name:      "intents_total",
			Help:      "Inbound messages by classified intent",
		}, []string{"intent"}),
		appended: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "ledger",
			Name:      "appended_total",
			Help:      "Emails appended per state",
		}, []string{"state"}),
		rejected: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "ledger",
			Name:      "rejected_lines_total",
			Help:      "Batch lines rejected by failing field",
		}, []string{"field"}),
		withdrawals: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "ledger",
			Name:      "withdrawals_total",
			Help:      "Withdrawal requests per state by outcome",
		}, []string{"state", "outcome"}),
		depth: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "ledger",
			Name:      "depth",
			Help:      "Entries currently waiting per state",
		}, []string{"state"}),
		dropped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "ledger",
			Name:      "dropped_events_total",
			Help:      "Inbound chat events ignored by the bridge, by reason",
		}, []string{"reason"}),
	}

	reg.MustRegister(pr.intents, pr.appended, pr.rejected, pr.withdrawals, pr.depth, pr.dropped)
	return pr
}

func (p *PrometheusRecorder) IncIntent(kind string) {
	p.intents.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) AddAppended(state string, n int) {
	if n <= 0 {
		return
	}
	p.appended.WithLabelValues(state).Add(float64(n))
}

func (p *PrometheusRecorder) IncRejected(field string) {
	p.rejected.WithLabelValues(field).Inc()
}

func (p *PrometheusRecorder) IncWithdrawal(state string, outcome string) {
	p.withdrawals.WithLabelValues(state, outcome).Inc()
}

func (p *PrometheusRecorder) SetDepth(state string, n int) {
	p.depth.WithLabelValues(state).Set(float64(n))
}

func (p *PrometheusRecorder) IncDroppedEvent(reason string) {
	p.dropped.WithLabelValues(reason).Inc()
}

// HTTPHandler returns an http.Handler that serves the metrics in reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
