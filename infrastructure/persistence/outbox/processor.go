// Package outbox retries secondary-store writes that failed during a
// submission until they land or run out of attempts.
package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mindtrack/application/ports"
	"mindtrack/domain/journal"

	"go.uber.org/zap"
)

// Mirror outcomes reported to metrics
const (
	OutcomeMirrored = "retry_ok"
	OutcomeRetry    = "retry_failed"
	OutcomeParked   = "parked"
)

// Config tunes the processor
type Config struct {
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
	BackoffBase time.Duration
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		BatchSize:   50,
		Interval:    5 * time.Second,
		MaxAttempts: 5,
		BackoffBase: 10 * time.Second,
	}
}

// Stats summarises one processing pass
type Stats struct {
	Mirrored int `json:"mirrored"`
	Retried  int `json:"retried"`
	Parked   int `json:"parked"`
	Skipped  int `json:"skipped"`
}

// Processor drains the mirror outbox into the secondary store
type Processor struct {
	outbox    ports.MirrorOutbox
	secondary ports.SecondaryEntryStore
	metrics   ports.Metrics
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time

	startOnce   sync.Once
	stopOnce    sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
	started     bool
}

// NewProcessor creates a processor; metrics may be nil
func NewProcessor(
	outbox ports.MirrorOutbox,
	secondary ports.SecondaryEntryStore,
	metrics ports.Metrics,
	cfg Config,
	logger *zap.Logger,
) *Processor {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}

	return &Processor{
		outbox:      outbox,
		secondary:   secondary,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start begins background processing
func (p *Processor) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.started = true
		p.logger.Info("Starting outbox processor",
			zap.Int("batchSize", p.cfg.BatchSize),
			zap.Duration("interval", p.cfg.Interval),
			zap.Int("maxAttempts", p.cfg.MaxAttempts),
		)
		go p.processLoop(ctx)
	})
}

// Stop signals the loop and waits for it to exit. Safe to call without
// Start and more than once.
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		if p.started {
			<-p.stoppedChan
		}
		p.logger.Info("Outbox processor stopped")
	})
}

func (p *Processor) processLoop(ctx context.Context) {
	defer close(p.stoppedChan)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Context cancelled, stopping outbox processor")
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if _, err := p.processBatch(ctx, p.cfg.BatchSize, false); err != nil {
				p.logger.Error("Error processing outbox batch", zap.Error(err))
			}
			p.reportPending(ctx)
		}
	}
}

// pendingGauge is implemented by metrics sinks that track the outbox size
type pendingGauge interface {
	SetOutboxPending(n int)
}

func (p *Processor) reportPending(ctx context.Context) {
	gauge, ok := p.metrics.(pendingGauge)
	if !ok {
		return
	}
	n, err := p.outbox.Len(ctx)
	if err != nil {
		p.logger.Warn("Failed to read outbox length", zap.Error(err))
		return
	}
	gauge.SetOutboxPending(n)
}

// Drain makes one pass over every pending task, ignoring backoff
func (p *Processor) Drain(ctx context.Context) (Stats, error) {
	n, err := p.outbox.Len(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read outbox length: %w", err)
	}
	if n == 0 {
		return Stats{}, nil
	}
	return p.processBatch(ctx, n, true)
}

// RunOnce processes one batch of due tasks
func (p *Processor) RunOnce(ctx context.Context) (Stats, error) {
	return p.processBatch(ctx, p.cfg.BatchSize, false)
}

func (p *Processor) processBatch(ctx context.Context, limit int, force bool) (Stats, error) {
	var stats Stats

	tasks, err := p.outbox.Pending(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("failed to get pending tasks: %w", err)
	}
	if len(tasks) == 0 {
		return stats, nil
	}

	p.logger.Debug("Processing outbox batch", zap.Int("taskCount", len(tasks)))

	for _, task := range tasks {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if !force && !task.Due(p.now()) {
			stats.Skipped++
			continue
		}
		switch p.processTask(ctx, task) {
		case OutcomeMirrored:
			stats.Mirrored++
		case OutcomeParked:
			stats.Parked++
		default:
			stats.Retried++
		}
	}

	p.logger.Debug("Completed outbox batch",
		zap.Int("mirrored", stats.Mirrored),
		zap.Int("retried", stats.Retried),
		zap.Int("parked", stats.Parked),
	)
	return stats, nil
}

func (p *Processor) processTask(ctx context.Context, task journal.MirrorTask) string {
	if err := p.secondary.Mirror(ctx, task.Entry); err != nil {
		return p.markFailed(ctx, task, err)
	}

	if err := p.outbox.MarkDone(ctx, task.ID); err != nil {
		// The mirror is idempotent; a leftover task only costs a rewrite
		p.logger.Error("Failed to remove mirrored task",
			zap.String("taskID", task.ID),
			zap.Error(err),
		)
	}
	p.observe(OutcomeMirrored)
	p.logger.Info("Mirrored entry from outbox",
		zap.String("taskID", task.ID),
		zap.String("entryID", task.Entry.ID),
		zap.Int("attempts", task.Attempts+1),
	)
	return OutcomeMirrored
}

func (p *Processor) markFailed(ctx context.Context, task journal.MirrorTask, cause error) string {
	task = task.Failed(cause, p.now(), p.cfg.BackoffBase)

	if task.Attempts >= p.cfg.MaxAttempts {
		if err := p.outbox.Park(ctx, task); err != nil {
			p.logger.Error("Failed to park mirror task", zap.String("taskID", task.ID), zap.Error(err))
		}
		p.observe(OutcomeParked)
		p.logger.Warn("Mirror task parked after max attempts",
			zap.String("taskID", task.ID),
			zap.String("entryID", task.Entry.ID),
			zap.Int("attempts", task.Attempts),
			zap.String("error", task.LastError),
		)
		return OutcomeParked
	}

	if err := p.outbox.Update(ctx, task); err != nil {
		p.logger.Error("Failed to update mirror task", zap.String("taskID", task.ID), zap.Error(err))
	}
	p.observe(OutcomeRetry)
	p.logger.Debug("Mirror task marked for retry",
		zap.String("taskID", task.ID),
		zap.Int("attempts", task.Attempts),
		zap.Time("nextAttemptAt", task.NextAttemptAt),
	)
	return OutcomeRetry
}

func (p *Processor) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.ObserveMirror(outcome)
	}
}

// GetStats reports the processor settings and queue depth
func (p *Processor) GetStats(ctx context.Context) (map[string]interface{}, error) {
	pending, err := p.outbox.Len(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"pending":     pending,
		"batchSize":   p.cfg.BatchSize,
		"interval":    p.cfg.Interval.String(),
		"maxAttempts": p.cfg.MaxAttempts,
	}, nil
}
