// ABOUTME: Periodic refresh of per-state depth gauges from the ledger store
// ABOUTME: Runs as a gocron duration job next to the bot

package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/2389/state-ledger/internal/ledger"
)

// CountSource is what the reporter needs from the store.
type CountSource interface {
	Counts(ctx context.Context) (map[ledger.StateCode]int, error)
}

// DepthReporter copies Store.Counts into Recorder.SetDepth on a schedule.
type DepthReporter struct {
	scheduler gocron.Scheduler
	source    CountSource
	recorder  Recorder
	timeout   time.Duration
	logger    *slog.Logger
}

// NewDepthReporter creates a reporter; call Start to begin refreshing.
func NewDepthReporter(source CountSource, recorder Recorder, logger *slog.Logger) (*DepthReporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating depth scheduler: %w", err)
	}
	return &DepthReporter{
		scheduler: s,
		source:    source,
		recorder:  recorder,
		timeout:   10 * time.Second,
		logger:    logger.With("component", "metrics"),
	}, nil
}

// Start refreshes once immediately and then every interval.
func (r *DepthReporter) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("depth refresh interval must be positive, got %s", interval)
	}

	r.refreshLogged()

	if _, err := r.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.refreshLogged),
		gocron.WithName("ledger-depth"),
	); err != nil {
		return fmt.Errorf("scheduling depth refresh: %w", err)
	}

	r.logger.Info("starting depth reporter", "interval", interval)
	r.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for a running refresh to finish.
func (r *DepthReporter) Stop() error {
	r.logger.Info("stopping depth reporter")
	return r.scheduler.Shutdown()
}

// Refresh reads the current counts and updates every state's gauge.
func (r *DepthReporter) Refresh(ctx context.Context) error {
	counts, err := r.source.Counts(ctx)
	if err != nil {
		return fmt.Errorf("reading ledger counts: %w", err)
	}
	for state, n := range counts {
		r.recorder.SetDepth(state.String(), n)
	}
	return nil
}

func (r *DepthReporter) refreshLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.Refresh(ctx); err != nil {
		r.logger.Error("depth refresh failed", "error", err)
	}
}
