package worker

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/backend"
	"github.com/eprhub/prn-integration/internal/cursor"
	"github.com/eprhub/prn-integration/internal/domain"
	"github.com/eprhub/prn-integration/internal/notify"
	"github.com/eprhub/prn-integration/internal/npwd"
	"github.com/eprhub/prn-integration/internal/retry"
)

// PushHooks carries the metric callbacks for the push stage.
type PushHooks struct {
	OnCycle    func(outcome string)
	OnProducer func()
}

func (h *PushHooks) fill() {
	if h.OnCycle == nil {
		h.OnCycle = func(string) {}
	}
	if h.OnProducer == nil {
		h.OnProducer = func() {}
	}
}

// PushWorker runs the outbound stage: it collects producers changed in
// the backend since the last successful push, maps them into an NPWD
// delta payload and PATCHes it upstream through the retry policy.
//
// Cursor discipline mirrors the fetch stage: advanced on success and on
// an empty delta, left untouched on failure so the window is re-pushed on
// the next schedule. The downstream accepts the same delta twice without
// duplicating effects, so the re-push is safe.
type PushWorker struct {
	prns     backend.PrnService
	pusher   npwd.Pusher
	cursors  cursor.Store
	notifier notify.Dispatcher
	policy   retry.Policy
	context  string
	enabled  bool
	interval time.Duration
	logger   *zap.Logger
	hooks    PushHooks

	now func() time.Time
}

func NewPushWorker(
	prns backend.PrnService,
	pusher npwd.Pusher,
	cursors cursor.Store,
	notifier notify.Dispatcher,
	policy retry.Policy,
	producersContext string,
	enabled bool,
	interval time.Duration,
	logger *zap.Logger,
	hooks PushHooks,
) *PushWorker {
	hooks.fill()
	return &PushWorker{
		prns:     prns,
		pusher:   pusher,
		cursors:  cursors,
		notifier: notifier,
		policy:   policy,
		context:  producersContext,
		enabled:  enabled,
		interval: interval,
		logger:   logger,
		hooks:    hooks,
		now:      time.Now,
	}
}

// Run ticks every interval and performs one push pass.
// Stops cleanly when ctx is cancelled.
func (w *PushWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("push worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("push worker stopping")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("push run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes a single scheduled invocation. A disabled feature flag
// is a no-op: log and return.
func (w *PushWorker) RunOnce(ctx context.Context) error {
	if !w.enabled {
		w.logger.Info("producer push is disabled by feature flag")
		return nil
	}

	cur, err := w.cursors.Get(ctx, cursor.SyncUpdateProducers)
	if err != nil {
		return fmt.Errorf("get push cursor: %w", err)
	}

	from := cur.LastSyncTime
	to := w.now().UTC()
	log := w.logger.With(zap.Timep("from", from), zap.Time("to", to))

	updated, err := w.prns.GetUpdatedProducers(ctx, from, to)
	if err != nil {
		return fmt.Errorf("get updated producers: %w", err)
	}

	if len(updated) == 0 {
		log.Warn("no updated producers for window")
		if err := w.cursors.Advance(ctx, cursor.SyncUpdateProducers, to); err != nil {
			return fmt.Errorf("advance push cursor after empty window: %w", err)
		}
		return nil
	}

	delta := domain.MapProducerDelta(updated, w.context)

	var result npwd.PushResult
	err = w.policy.Do(ctx, func(ctx context.Context) error {
		var perr error
		result, perr = w.pusher.PatchProducers(ctx, delta)
		if perr != nil {
			return perr
		}
		// A completed exchange with a retryable status class (429,
		// timeout, server error) goes back through the policy like a
		// transport fault would.
		if !result.Success() && (result.StatusCode == http.StatusTooManyRequests || result.NeedsAlert()) {
			return domain.Transient("push producers: status %d: %s", result.StatusCode, result.Body)
		}
		return nil
	})
	if err != nil {
		// Hard failure or retries exhausted: leave the cursor so the
		// same window is pushed again next run, and alert if the last
		// response class was server-side or timeout.
		log.Error("failed to push producer delta", zap.Error(err))
		if result.NeedsAlert() {
			w.alert(ctx, fmt.Sprintf(
				"Failed to update producer lists. error code %d and raw response body: %s",
				result.StatusCode, result.Body))
		}
		w.hooks.OnCycle("failed")
		return nil
	}

	if !result.Success() {
		// Non-retryable, non-alerting response class (4xx other than
		// 429): log only, cursor untouched.
		log.Error("producer push rejected",
			zap.Int("status", result.StatusCode),
			zap.String("body", result.Body))
		w.hooks.OnCycle("rejected")
		return nil
	}

	if err := w.cursors.Advance(ctx, cursor.SyncUpdateProducers, to); err != nil {
		return fmt.Errorf("advance push cursor: %w", err)
	}

	log.Info("producer list updated in npwd", zap.Int("count", len(updated)))
	w.audit(updated)
	w.hooks.OnCycle("success")
	return nil
}

// audit emits one event per pushed producer for downstream reconciliation.
func (w *PushWorker) audit(updated []domain.UpdatedProducer) {
	at := w.now().UTC()
	for _, p := range updated {
		ev := newAuditEvent(p, at)
		w.logger.Info("producer pushed",
			zap.String("organisation_name", ev.OrganisationName),
			zap.String("organisation_id", ev.OrganisationID),
			zap.String("address", ev.Address),
			zap.Time("at", ev.At),
		)
		w.hooks.OnProducer()
	}
}

func newAuditEvent(p domain.UpdatedProducer, at time.Time) domain.AuditEvent {
	return domain.AuditEvent{
		OrganisationName: p.ProducerName,
		OrganisationID:   p.ReferenceNumber,
		Address:          fmt.Sprintf("%s %s %s %s", p.Street, p.Town, p.County, p.Postcode),
		At:               at,
	}
}

// alert is best-effort: an alert failure is logged, never propagated.
func (w *PushWorker) alert(ctx context.Context, message string) {
	if err := w.notifier.AlertOperators(ctx, message); err != nil {
		w.logger.Error("failed to alert operators", zap.Error(err))
	}
}
