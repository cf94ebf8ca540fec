package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/cursor"
	"github.com/eprhub/prn-integration/internal/domain"
	"github.com/eprhub/prn-integration/internal/npwd"
	"github.com/eprhub/prn-integration/internal/queue"
	"github.com/eprhub/prn-integration/internal/retry"
)

// FetchWorker runs the delta fetch-and-enqueue stage: it derives the next
// fetch window from the cursor, queries NPWD for issued PRNs changed in
// that window, bulk-enqueues them, and advances the cursor only after the
// batch is durably on the queue.
//
// Cursor discipline: the window is [cursor, now). On any fatal failure
// the cursor is left untouched so the same window is retried on the next
// schedule. An empty fetch result still advances the cursor: the window
// was fully scanned and there was simply nothing in it.
type FetchWorker struct {
	fetcher  npwd.Fetcher
	q        queue.Transport
	cursors  cursor.Store
	policy   retry.Policy
	drain    *DrainWorker
	enabled  bool
	interval time.Duration
	logger   *zap.Logger

	onFetched func(count int)

	// now is injectable so tests control the window's upper bound.
	now func() time.Time
}

func NewFetchWorker(
	fetcher npwd.Fetcher,
	q queue.Transport,
	cursors cursor.Store,
	policy retry.Policy,
	drain *DrainWorker,
	enabled bool,
	interval time.Duration,
	logger *zap.Logger,
	onFetched func(count int),
) *FetchWorker {
	if onFetched == nil {
		onFetched = func(int) {}
	}
	return &FetchWorker{
		fetcher:   fetcher,
		q:         q,
		cursors:   cursors,
		policy:    policy,
		drain:     drain,
		enabled:   enabled,
		interval:  interval,
		logger:    logger,
		onFetched: onFetched,
		now:       time.Now,
	}
}

// Run ticks every interval and performs one fetch-and-enqueue pass.
// Stops cleanly when ctx is cancelled.
func (w *FetchWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("fetch worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("fetch worker stopping")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("fetch run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce executes a single scheduled invocation. A disabled feature flag
// is a no-op: log and return.
func (w *FetchWorker) RunOnce(ctx context.Context) error {
	if !w.enabled {
		w.logger.Info("prn fetch is disabled by feature flag")
		return nil
	}

	cur, err := w.cursors.Get(ctx, cursor.SyncFetchPrns)
	if err != nil {
		return fmt.Errorf("get fetch cursor: %w", err)
	}

	window := domain.FetchWindow{From: cur.LastSyncTime, To: w.now().UTC()}
	if window.From != nil && !window.From.Before(window.To) {
		return domain.ErrMalformedWindow
	}
	filter := npwd.BuildIssuedPrnFilter(window)

	log := w.logger.With(zap.String("filter", filter))

	var prns []domain.Prn
	err = w.policy.Do(ctx, func(ctx context.Context) error {
		var ferr error
		prns, ferr = w.fetcher.GetIssuedPrns(ctx, filter)
		return ferr
	})
	if err != nil {
		// Fatal for this run; the cursor stays put and the same window
		// is re-fetched on the next schedule.
		return fmt.Errorf("fetch issued prns: %w", err)
	}

	if len(prns) == 0 {
		log.Warn("no issued prns found for window")
		if err := w.cursors.Advance(ctx, cursor.SyncFetchPrns, window.To); err != nil {
			return fmt.Errorf("advance cursor after empty fetch: %w", err)
		}
		return nil
	}

	log.Info("fetched issued prns", zap.Int("count", len(prns)))
	w.onFetched(len(prns))

	if err := w.q.EnqueueWork(ctx, prns); err != nil {
		// Queue unreachable: do not advance the cursor.
		return fmt.Errorf("enqueue issued prns: %w", err)
	}
	log.Info("issued prns pushed onto work queue", zap.Int("count", len(prns)))

	if err := w.cursors.Advance(ctx, cursor.SyncFetchPrns, window.To); err != nil {
		return fmt.Errorf("advance fetch cursor: %w", err)
	}

	// Drain in the same invocation so a fetched batch is processed
	// without waiting for the standalone drain schedule.
	if w.drain != nil {
		if err := w.drain.Drain(ctx); err != nil {
			return fmt.Errorf("drain after fetch: %w", err)
		}
	}

	return nil
}
