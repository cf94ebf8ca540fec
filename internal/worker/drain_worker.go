package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/backend"
	"github.com/eprhub/prn-integration/internal/domain"
	"github.com/eprhub/prn-integration/internal/notify"
	"github.com/eprhub/prn-integration/internal/queue"
	"github.com/eprhub/prn-integration/internal/validator"
)

// DrainHooks carries the metric callback functions injected by main.
// Nil hooks are replaced with no-ops so the worker never checks.
type DrainHooks struct {
	OnSaved        func()
	OnDeadLettered func()
	OnRequeued     func()
}

func (h *DrainHooks) fill() {
	if h.OnSaved == nil {
		h.OnSaved = func() {}
	}
	if h.OnDeadLettered == nil {
		h.OnDeadLettered = func() {}
	}
	if h.OnRequeued == nil {
		h.OnRequeued = func() {}
	}
}

// DrainWorker is the queue-drain state machine. Each pass pulls batches
// from the work queue until a receive comes back empty, and routes every
// message to exactly one of: acked (saved), requeued (transient
// processing failure) or dead-lettered (permanently invalid).
//
// Per-record failures never stop the batch. The only fatal path is an
// error from the receive call itself: message iteration breaking, not a
// record misbehaving.
type DrainWorker struct {
	q         queue.Transport
	validate  validator.Validator
	prns      backend.PrnService
	orgs      backend.OrganisationService
	notifier  notify.Dispatcher
	batchSize int
	interval  time.Duration
	logger    *zap.Logger
	hooks     DrainHooks
}

func NewDrainWorker(
	q queue.Transport,
	validate validator.Validator,
	prns backend.PrnService,
	orgs backend.OrganisationService,
	notifier notify.Dispatcher,
	batchSize int,
	interval time.Duration,
	logger *zap.Logger,
	hooks DrainHooks,
) *DrainWorker {
	hooks.fill()
	return &DrainWorker{
		q:         q,
		validate:  validate,
		prns:      prns,
		orgs:      orgs,
		notifier:  notifier,
		batchSize: batchSize,
		interval:  interval,
		logger:    logger,
		hooks:     hooks,
	}
}

// Run ticks every interval and drains whatever is on the queue. The
// standalone schedule catches requeued messages and messages left behind
// by a crashed fetch invocation. Stops cleanly when ctx is cancelled.
func (w *DrainWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("drain worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("drain worker stopping")
			return
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.Error("drain run failed", zap.Error(err))
			}
		}
	}
}

// Drain processes messages until a receive returns none. The empty
// receive is the termination signal: the run ends and is re-entered on
// the next scheduled invocation, never retried in a tight loop.
func (w *DrainWorker) Drain(ctx context.Context) error {
	for {
		messages, err := w.q.ReceiveWork(ctx, w.batchSize)
		if err != nil {
			// Fatal: the queue itself is misbehaving.
			return fmt.Errorf("receive work: %w", err)
		}
		if len(messages) == 0 {
			w.logger.Info("queue drained")
			return nil
		}

		for _, msg := range messages {
			w.process(ctx, msg)
		}
	}
}

// process routes one message. It never returns an error: every outcome is
// resolved against the queue, and a failure to do even that is logged and
// left for the visibility timeout to redeliver.
func (w *DrainWorker) process(ctx context.Context, msg queue.Message) {
	log := w.logger.With(
		zap.String("message_id", msg.ID),
		zap.Int("delivery_count", msg.DeliveryCount),
	)

	var prn domain.Prn
	if err := json.Unmarshal(msg.Body, &prn); err != nil {
		// A payload that cannot be decoded can never become valid:
		// treat like a validation failure rather than crashing the loop.
		log.Warn("message body is malformed, dead-lettering", zap.Error(err))
		w.deadLetter(ctx, msg, fmt.Sprintf("malformed body: %v", err), log)
		return
	}

	log = log.With(zap.String("evidence_no", prn.EvidenceNo))

	outcome := w.validate.Validate(prn)
	if !outcome.Valid {
		log.Warn("validation failed, dead-lettering",
			zap.Strings("reasons", outcome.Reasons))
		w.deadLetter(ctx, msg, fmt.Sprintf("validation failed: %v", outcome.Reasons), log)
		return
	}

	if err := w.prns.SavePrn(ctx, prn.ToSaveRequest()); err != nil {
		log.Error("failed to save prn, requeueing", zap.Error(err))
		w.requeue(ctx, msg, log)
		return
	}
	log.Info("prn saved")

	// Notification fan-out. Recipient lookup failure is a transient
	// processing fault (requeue); dispatch failure after a successful
	// save is best-effort and must not flip the record's outcome.
	emails, err := w.orgs.GetPersonEmails(ctx, prn.IssuedToEPRID)
	if err != nil {
		log.Error("failed to resolve notification recipients, requeueing", zap.Error(err))
		w.requeue(ctx, msg, log)
		return
	}

	notifications := buildNotifications(prn, emails)
	if len(notifications) > 0 {
		if err := w.notifier.SendProducerNotifications(ctx, notifications); err != nil {
			log.Warn("producer notification dispatch failed", zap.Error(err))
		} else {
			log.Info("producer notifications dispatched", zap.Int("count", len(notifications)))
		}
	}

	if err := w.q.Ack(ctx, msg); err != nil {
		// The message will become visible again after the timeout and be
		// re-saved; the backend save is upsert-like so this is safe.
		log.Error("failed to ack message", zap.Error(err))
		return
	}
	w.hooks.OnSaved()
}

func (w *DrainWorker) deadLetter(ctx context.Context, msg queue.Message, reason string, log *zap.Logger) {
	if err := w.q.DeadLetter(ctx, msg, reason); err != nil {
		log.Error("failed to dead-letter message", zap.Error(err))
		return
	}
	w.hooks.OnDeadLettered()
}

func (w *DrainWorker) requeue(ctx context.Context, msg queue.Message, log *zap.Logger) {
	if err := w.q.Requeue(ctx, msg); err != nil {
		log.Error("failed to requeue message", zap.Error(err))
		return
	}
	w.hooks.OnRequeued()
}

// buildNotifications derives one fan-out unit per resolved contact.
func buildNotifications(prn domain.Prn, emails []domain.PersonEmail) []domain.ProducerNotification {
	notifications := make([]domain.ProducerNotification, 0, len(emails))
	for _, e := range emails {
		notifications = append(notifications, domain.ProducerNotification{
			Email:             e.Email,
			FirstName:         e.FirstName,
			LastName:          e.LastName,
			PrnNumber:         prn.EvidenceNo,
			Material:          prn.EvidenceMaterial,
			Tonnage:           prn.EvidenceTonnes,
			ReprocessorAgency: prn.ReprocessorAgency,
			RecoveryProcess:   prn.RecoveryProcessCode,
			IsExport:          domain.IsExport(prn.EvidenceNo),
		})
	}
	return notifications
}
