package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionConfig controls scheduled pruning of old turn records.
type RetentionConfig struct {
	// Days is the retention window; records older than this are removed.
	// Zero disables pruning.
	Days int

	// Schedule is a standard cron expression (e.g. "0 3 * * *").
	Schedule string
}

// Retention prunes expired turn records on a cron schedule.
type Retention struct {
	storage Storage
	config  RetentionConfig
	cron    *cron.Cron

	mu      sync.Mutex
	running bool

	logger *slog.Logger
}

// NewRetention creates the pruning scheduler. Call Start to activate it.
func NewRetention(storage Storage, config RetentionConfig) *Retention {
	return &Retention{
		storage: storage,
		config:  config,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "audit.retention"),
	}
}

// Start schedules pruning runs. A zero Days or empty Schedule disables it.
func (r *Retention) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.Days <= 0 || r.config.Schedule == "" {
		r.logger.Info("audit retention disabled")
		return nil
	}

	if _, err := cron.ParseStandard(r.config.Schedule); err != nil {
		return fmt.Errorf("invalid retention schedule %q: %w", r.config.Schedule, err)
	}

	if _, err := r.cron.AddFunc(r.config.Schedule, func() {
		r.runOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule retention: %w", err)
	}

	r.cron.Start()
	r.running = true

	r.logger.Info("audit retention scheduled",
		"schedule", r.config.Schedule,
		"retention_days", r.config.Days,
	)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// Prune removes records older than the retention window immediately.
func (r *Retention) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -r.config.Days)
	return r.storage.DeleteOlderThan(ctx, cutoff)
}

func (r *Retention) runOnce(ctx context.Context) {
	deleted, err := r.Prune(ctx)
	if err != nil {
		r.logger.Error("scheduled audit pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		r.logger.Info("audit records pruned", "deleted", deleted)
	}
}

// Stop halts the scheduler and waits for a running job to finish.
func (r *Retention) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		<-r.cron.Stop().Done()
		r.running = false
		r.logger.Info("audit retention stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (r *Retention) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
