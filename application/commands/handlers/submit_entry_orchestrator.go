// Package handlers executes application commands.
package handlers

import (
	"context"
	"time"

	"mindtrack/application/commands"
	"mindtrack/application/ports"
	"mindtrack/domain/journal"
)

// Submission outcomes reported to metrics
const (
	OutcomeSuccess         = "success"
	OutcomeValidationError = "validation_error"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeStoreError      = "store_error"

	MirrorOK       = "ok"
	MirrorFailed   = "failed"
	MirrorEnqueued = "enqueued"
)

// Timeouts bound each collaborator call of a submission
type Timeouts struct {
	Insight time.Duration
	Store   time.Duration
}

// SubmitEntryOrchestrator validates a submission, generates its insight and
// writes it to the primary then the secondary store
type SubmitEntryOrchestrator struct {
	generator ports.InsightGenerator
	primary   ports.PrimaryEntryStore
	secondary ports.SecondaryEntryStore
	outbox    ports.MirrorOutbox
	metrics   ports.Metrics
	logger    ports.Logger
	timeouts  Timeouts
	now       func() time.Time
}

// NewSubmitEntryOrchestrator creates the orchestrator. metrics may be nil.
func NewSubmitEntryOrchestrator(
	generator ports.InsightGenerator,
	primary ports.PrimaryEntryStore,
	secondary ports.SecondaryEntryStore,
	outbox ports.MirrorOutbox,
	metrics ports.Metrics,
	logger ports.Logger,
	timeouts Timeouts,
) *SubmitEntryOrchestrator {
	return &SubmitEntryOrchestrator{
		generator: generator,
		primary:   primary,
		secondary: secondary,
		outbox:    outbox,
		metrics:   metrics,
		logger:    logger,
		timeouts:  timeouts,
		now:       time.Now,
	}
}

// WithClock replaces the clock; tests use it to pin created_at
func (o *SubmitEntryOrchestrator) WithClock(now func() time.Time) *SubmitEntryOrchestrator {
	o.now = now
	return o
}

// Handle runs a submission. Errors from the generator and the primary
// store are returned unchanged; the secondary store never fails a
// submission.
func (o *SubmitEntryOrchestrator) Handle(ctx context.Context, cmd commands.SubmitEntryCommand) (*commands.SubmitEntryResult, error) {
	// Step 1: validate and apply defaults
	if err := cmd.Validate(); err != nil {
		o.observe(OutcomeValidationError)
		return nil, err
	}
	entry, err := journal.NewEntry(cmd.UserID, cmd.Title, cmd.Content, o.now())
	if err != nil {
		o.observe(OutcomeValidationError)
		return nil, err
	}

	// Step 2: generate the insight
	insights, err := o.generate(ctx, entry.Content)
	if err != nil {
		o.logger.Errorw("Insight generation failed", "userID", entry.UserID, "error", err)
		o.observe(OutcomeUpstreamError)
		return nil, err
	}

	enriched := entry.WithInsights(insights)
	enriched.CreatedAt = o.now().UTC()

	// Step 3: primary store
	saved, err := o.create(ctx, enriched)
	if err != nil {
		o.logger.Errorw("Primary store write failed", "userID", enriched.UserID, "error", err)
		o.observe(OutcomeStoreError)
		return nil, err
	}

	// Step 4: secondary store, only when the primary produced a record
	if len(saved) > 0 {
		o.mirror(ctx, saved[0])
	}

	o.observe(OutcomeSuccess)
	o.logger.Infow("Journal entry submitted", "userID", enriched.UserID, "records", len(saved))

	return &commands.SubmitEntryResult{
		Insights: insights,
		SaveData: saved,
	}, nil
}

func (o *SubmitEntryOrchestrator) generate(ctx context.Context, content string) (string, error) {
	ctx, cancel := withTimeout(ctx, o.timeouts.Insight)
	defer cancel()
	return o.generator.Generate(ctx, content)
}

func (o *SubmitEntryOrchestrator) create(ctx context.Context, entry journal.Entry) ([]journal.Entry, error) {
	ctx, cancel := withTimeout(ctx, o.timeouts.Store)
	defer cancel()
	return o.primary.Create(ctx, entry)
}

// mirror writes record to the secondary store once. The primary write has
// already happened, so a client disconnect must not cancel it.
func (o *SubmitEntryOrchestrator) mirror(ctx context.Context, record journal.Entry) {
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), o.timeouts.Store)
	defer cancel()

	err := o.secondary.Mirror(ctx, record)
	if err == nil {
		o.observeMirror(MirrorOK)
		return
	}

	o.logger.Errorw("Secondary store write failed",
		"entryID", record.ID,
		"userID", record.UserID,
		"error", err,
	)
	o.observeMirror(MirrorFailed)

	if o.outbox == nil {
		return
	}
	task := journal.NewMirrorTask(record, err, o.now())
	if err := o.outbox.Enqueue(ctx, task); err != nil {
		o.logger.Errorw("Failed to enqueue mirror task",
			"entryID", record.ID,
			"taskID", task.ID,
			"error", err,
		)
		return
	}
	o.observeMirror(MirrorEnqueued)
	o.logger.Warnw("Mirror write queued for retry", "entryID", record.ID, "taskID", task.ID)
}

func (o *SubmitEntryOrchestrator) observe(outcome string) {
	if o.metrics != nil {
		o.metrics.ObserveSubmission(outcome)
	}
}

func (o *SubmitEntryOrchestrator) observeMirror(outcome string) {
	if o.metrics != nil {
		o.metrics.ObserveMirror(outcome)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
