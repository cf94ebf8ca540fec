package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/eprhub/prn-integration/internal/domain"
)

// MockTransport is a hand-written, in-memory Transport used in unit
// tests. It preserves FIFO order per lane and mimics the delivery-count,
// dead-letter and requeue-delay behaviour of the Postgres implementation,
// minus the visibility timeout (received messages are simply held in
// flight until resolved). The requeue delay is modelled without a clock:
// requeued messages sit in a pending slice and only join the retry lane
// when a receive finds both lanes empty, which is exactly the boundary
// between one drain pass and the next.
type MockTransport struct {
	mu            sync.Mutex
	work          []Message
	retry         []Message
	pendingRetry  []Message
	errors        []Message
	deadReasons   map[string]string
	maxDeliveries int

	// Optional error overrides, set in tests to simulate failure paths.
	EnqueueErr error
	ReceiveErr error
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		deadReasons:   make(map[string]string),
		maxDeliveries: 10,
	}
}

func (t *MockTransport) EnqueueWork(_ context.Context, prns []domain.Prn) error {
	if t.EnqueueErr != nil {
		return t.EnqueueErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, prn := range prns {
		body, err := json.Marshal(prn)
		if err != nil {
			return fmt.Errorf("marshal prn %s: %w", prn.EvidenceNo, err)
		}
		t.work = append(t.work, Message{
			ID:   uuid.New().String(),
			Body: body,
			Lane: LaneWork,
		})
	}
	return nil
}

// EnqueueRaw places an arbitrary body on the work lane. Tests use it to
// inject malformed payloads.
func (t *MockTransport) EnqueueRaw(body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.work = append(t.work, Message{ID: uuid.New().String(), Body: body, Lane: LaneWork})
}

func (t *MockTransport) ReceiveWork(_ context.Context, max int) ([]Message, error) {
	if t.ReceiveErr != nil {
		return nil, t.ReceiveErr
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Message
	for len(out) < max && len(t.work) > 0 {
		m := t.work[0]
		t.work = t.work[1:]
		m.DeliveryCount++
		out = append(out, m)
	}
	for len(out) < max && len(t.retry) > 0 {
		m := t.retry[0]
		t.retry = t.retry[1:]
		m.DeliveryCount++
		out = append(out, m)
	}

	// An empty receive ends a drain pass; the requeue delay has then
	// elapsed, so pending messages become visible for the next pass.
	if len(out) == 0 && len(t.pendingRetry) > 0 {
		t.retry = append(t.retry, t.pendingRetry...)
		t.pendingRetry = nil
	}
	return out, nil
}

func (t *MockTransport) Requeue(ctx context.Context, msg Message) error {
	if msg.DeliveryCount >= t.maxDeliveries {
		return t.DeadLetter(ctx, msg, "delivery count exceeded")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	msg.Lane = LaneRetry
	t.pendingRetry = append(t.pendingRetry, msg)
	return nil
}

func (t *MockTransport) DeadLetter(_ context.Context, msg Message, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	msg.Lane = LaneError
	t.errors = append(t.errors, msg)
	t.deadReasons[msg.ID] = reason
	return nil
}

func (t *MockTransport) Ack(_ context.Context, _ Message) error {
	// In-flight messages are already off the lanes; nothing to remove.
	return nil
}

func (t *MockTransport) Depths(_ context.Context) (work, retry, errored int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.work), len(t.retry) + len(t.pendingRetry), len(t.errors), nil
}

func (t *MockTransport) PeekErrors(_ context.Context, max int) ([]Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(t.errors)
	if n > max {
		n = max
	}
	out := make([]Message, n)
	copy(out, t.errors[:n])
	return out, nil
}

// DeadReason returns the reason recorded when id was dead-lettered.
func (t *MockTransport) DeadReason(id string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadReasons[id]
}

var _ Transport = (*MockTransport)(nil)
