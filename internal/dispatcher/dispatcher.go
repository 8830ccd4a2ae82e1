package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classboard/notify-worker/internal/backoff"
	"github.com/classboard/notify-worker/internal/domain"
	"github.com/classboard/notify-worker/internal/featuregate"
	"github.com/classboard/notify-worker/internal/mailer"
	"github.com/classboard/notify-worker/internal/ratelimiter"
	"github.com/classboard/notify-worker/internal/repository"
)

// Summary is the invocation-level result. It is always produced, even when
// zero rows were eligible or the gate was closed.
type Summary struct {
	Processed int  `json:"processed"`
	Sent      int  `json:"sent"`
	Failed    int  `json:"failed"`
	DryRun    bool `json:"dry_run"`

	// Disabled marks a gate-closed no-op so the handler can phrase the
	// response message; it is not part of the counters contract.
	Disabled bool `json:"-"`
}

// MetricHooks carries the metric callback functions injected by main.
// Using a struct keeps the dispatcher metrics-agnostic.
type MetricHooks struct {
	OnSent      func(latency time.Duration)
	OnFailed    func()
	OnClaimLost func()
}

// Dispatcher performs one bounded batch-drain of the email queue per Run call.
// It holds no mutable state between runs; all durable state lives in the
// queue table, so overlapping invocations only contend on the per-row claim.
type Dispatcher struct {
	repo      repository.QueueRepository
	gate      *featuregate.Gate
	mail      mailer.Mailer
	limiter   *ratelimiter.SendLimiter
	batchSize int
	dryRun    bool
	logger    *zap.Logger
	hooks     MetricHooks
}

// New constructs a dispatcher. hooks fields are optional (nil = no-op),
// limiter may be nil to disable rate capping.
func New(
	repo repository.QueueRepository,
	gate *featuregate.Gate,
	mail mailer.Mailer,
	limiter *ratelimiter.SendLimiter,
	batchSize int,
	dryRun bool,
	logger *zap.Logger,
	hooks MetricHooks,
) *Dispatcher {
	if hooks.OnSent == nil {
		hooks.OnSent = func(time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func() {}
	}
	if hooks.OnClaimLost == nil {
		hooks.OnClaimLost = func() {}
	}
	return &Dispatcher{
		repo: repo, gate: gate, mail: mail, limiter: limiter,
		batchSize: batchSize, dryRun: dryRun, logger: logger, hooks: hooks,
	}
}

// Run drains one batch: gate check, eligible fetch, then a strictly
// sequential claim → send → finalize pass over each row. Sequential
// processing keeps provider call volume predictable; a row that fails is
// only revisited on a later run once its retry timestamp has elapsed.
//
// The returned error is non-nil only for the invocation-fatal case: the
// eligible-batch fetch itself failing. Everything else is absorbed into
// the per-item counters.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	summary := Summary{DryRun: d.dryRun}

	if !d.gate.Enabled(ctx) {
		d.logger.Info("email notifications disabled, skipping run")
		summary.Disabled = true
		return summary, nil
	}

	items, err := d.repo.FetchEligibleBatch(ctx, d.batchSize)
	if err != nil {
		return summary, fmt.Errorf("fetch eligible batch: %w", err)
	}

	for _, item := range items {
		d.process(ctx, item, &summary)
	}

	d.logger.Info("dispatch run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Bool("dry_run", summary.DryRun),
	)
	return summary, nil
}

func (d *Dispatcher) process(ctx context.Context, item *domain.QueueItem, summary *Summary) {
	start := time.Now()
	log := d.logger.With(
		zap.String("queue_item_id", item.ID),
		zap.String("recipient", item.RecipientEmail),
	)

	claimed, err := d.repo.Claim(ctx, item.ID)
	if err != nil {
		log.Error("claim failed", zap.Error(err))
		summary.Processed++
		summary.Failed++
		d.hooks.OnFailed()
		return
	}
	if !claimed {
		// A concurrent invocation won the race, or the row was cancelled
		// between fetch and claim. Not an error, not counted.
		log.Debug("claim lost, skipping")
		d.hooks.OnClaimLost()
		return
	}
	summary.Processed++

	// The claim incremented the persisted counter; mirror it locally so the
	// backoff computation sees the post-increment value.
	attempts := item.Attempts + 1

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			// ctx cancelled while waiting — reschedule and stop counting
			// this row as anything but failed for this run.
			d.reschedule(ctx, item.ID, attempts, "cancelled while rate limited", summary, log)
			return
		}
	}

	outcome := d.mail.Send(ctx, item)
	if !outcome.OK {
		log.Warn("send failed",
			zap.String("error", outcome.Err),
			zap.Int("attempts", attempts),
		)
		d.reschedule(ctx, item.ID, attempts, outcome.Err, summary, log)
		return
	}

	if err := d.repo.MarkSent(ctx, item.ID, outcome.ProviderMsgID, time.Now().UTC()); err != nil {
		// Crash-window caveat: the row stays in processing until an operator
		// intervenes; there is no lease/reconciliation sweep.
		log.Error("failed to mark as sent", zap.Error(err))
		summary.Failed++
		d.hooks.OnFailed()
		return
	}

	summary.Sent++
	d.hooks.OnSent(time.Since(start))
	log.Info("notification email sent",
		zap.String("provider_msg_id", outcome.ProviderMsgID),
		zap.Duration("latency", time.Since(start)),
	)
}

// reschedule returns the row to pending with a backoff-computed retry time.
func (d *Dispatcher) reschedule(ctx context.Context, id string, attempts int, sendErr string, summary *Summary, log *zap.Logger) {
	nextRetry := time.Now().UTC().Add(backoff.RetryDelay(attempts))
	if err := d.repo.MarkRetry(ctx, id, nextRetry, sendErr); err != nil {
		log.Error("failed to schedule retry", zap.Error(err))
	}
	summary.Failed++
	d.hooks.OnFailed()
}
