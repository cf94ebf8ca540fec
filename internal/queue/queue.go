package queue

import (
	"context"

	"github.com/eprhub/prn-integration/internal/domain"
)

// Lane is one of the three logical channels of the transport.
type Lane string

const (
	LaneWork  Lane = "work"  // records awaiting processing
	LaneRetry Lane = "retry" // pushed back after a transient per-record failure
	LaneError Lane = "error" // dead-letter, terminal, manual inspection only
)

// Message is the envelope around one serialized PRN on the queue.
// The ID is opaque and used for logging correlation only.
type Message struct {
	ID            string
	Body          []byte
	DeliveryCount int
	Lane          Lane
}

// Transport is a durable, at-least-once FIFO channel with three lanes.
//
// Delivery semantics: ReceiveWork claims messages with a visibility
// timeout. A received-but-unacked message becomes visible again after
// the timeout, so a crashed worker cannot lose it. Acknowledgement is
// explicit via Ack; a message is otherwise resolved by Requeue (retry
// lane, delivery count incremented) or DeadLetter (error lane, terminal).
// FIFO is per-lane best-effort; requeued messages rejoin behind newer
// work.
type Transport interface {
	// EnqueueWork bulk-pushes records onto the work lane. A transport
	// error here is fatal for the run: the caller must not advance its
	// cursor.
	EnqueueWork(ctx context.Context, prns []domain.Prn) error

	// ReceiveWork claims up to max messages from the work and retry
	// lanes. An empty result is the drain loop's termination signal, not
	// an error.
	ReceiveWork(ctx context.Context, max int) ([]Message, error)

	// Requeue pushes msg back for another attempt after a transient
	// processing failure. A message that has exhausted its delivery
	// budget is moved to the error lane instead.
	Requeue(ctx context.Context, msg Message) error

	// DeadLetter moves msg to the error lane. Terminal: the drain loop
	// never reads the error lane.
	DeadLetter(ctx context.Context, msg Message, reason string) error

	// Ack removes a successfully processed message.
	Ack(ctx context.Context, msg Message) error

	// Depths reports the number of visible messages per lane.
	Depths(ctx context.Context) (work, retry, errored int, err error)

	// PeekErrors returns up to max dead-lettered messages without
	// consuming them, for operator inspection.
	PeekErrors(ctx context.Context, max int) ([]Message, error)
}
