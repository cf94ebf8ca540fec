package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/cursor"
	"github.com/eprhub/prn-integration/internal/domain"
	"github.com/eprhub/prn-integration/internal/queue"
	"github.com/eprhub/prn-integration/internal/worker"
)

// SyncService is the admin-facing coordination layer behind the HTTP
// handlers: manual run triggers, cursor inspection and dead-letter
// inspection. The scheduled workers do the same work on their own timers;
// this service only exposes one-shot invocations of the same code paths.
type SyncService struct {
	fetch   *worker.FetchWorker
	push    *worker.PushWorker
	q       queue.Transport
	cursors cursor.Store
	logger  *zap.Logger
}

func NewSyncService(
	fetch *worker.FetchWorker,
	push *worker.PushWorker,
	q queue.Transport,
	cursors cursor.Store,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{fetch: fetch, push: push, q: q, cursors: cursors, logger: logger}
}

// TriggerFetch runs one fetch-and-enqueue (plus drain) pass now.
func (s *SyncService) TriggerFetch(ctx context.Context) error {
	return s.fetch.RunOnce(ctx)
}

// TriggerPush runs one producer push pass now.
func (s *SyncService) TriggerPush(ctx context.Context) error {
	return s.push.RunOnce(ctx)
}

// CursorView is the JSON shape of one sync cursor.
type CursorView struct {
	SyncType     string  `json:"syncType"`
	LastSyncTime *string `json:"lastSyncTime"`
}

// Cursors reports the position of every sync cursor.
func (s *SyncService) Cursors(ctx context.Context) ([]CursorView, error) {
	types := []cursor.SyncType{cursor.SyncFetchPrns, cursor.SyncUpdateProducers}
	views := make([]CursorView, 0, len(types))
	for _, t := range types {
		c, err := s.cursors.Get(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("get cursor %s: %w", t, err)
		}
		v := CursorView{SyncType: string(t)}
		if c.LastSyncTime != nil {
			formatted := c.LastSyncTime.UTC().Format(time.RFC3339Nano)
			v.LastSyncTime = &formatted
		}
		views = append(views, v)
	}
	return views, nil
}

// QueueDepths reports the number of visible messages per lane.
func (s *SyncService) QueueDepths(ctx context.Context) (work, retry, errored int, err error) {
	return s.q.Depths(ctx)
}

// DeadLetterView is one dead-lettered message decoded for inspection.
// Body is left raw when it cannot be decoded as a PRN (malformed payloads
// end up here too).
type DeadLetterView struct {
	MessageID     string      `json:"messageId"`
	DeliveryCount int         `json:"deliveryCount"`
	Prn           *domain.Prn `json:"prn,omitempty"`
	RawBody       string      `json:"rawBody,omitempty"`
}

// DeadLetters returns up to max messages from the error lane.
func (s *SyncService) DeadLetters(ctx context.Context, max int) ([]DeadLetterView, error) {
	messages, err := s.q.PeekErrors(ctx, max)
	if err != nil {
		return nil, fmt.Errorf("peek error lane: %w", err)
	}

	views := make([]DeadLetterView, 0, len(messages))
	for _, m := range messages {
		v := DeadLetterView{MessageID: m.ID, DeliveryCount: m.DeliveryCount}
		var prn domain.Prn
		if err := json.Unmarshal(m.Body, &prn); err == nil {
			v.Prn = &prn
		} else {
			v.RawBody = string(m.Body)
		}
		views = append(views, v)
	}
	return views, nil
}
