package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eprhub/prn-integration/internal/domain"
)

// PgTransport is a Transport backed by the queue_messages table.
//
// Claiming uses FOR UPDATE SKIP LOCKED plus a locked_until column: a
// claimed row is invisible to other receivers until its lock expires, so
// concurrent drain workers never double-claim and a crashed worker's
// messages become visible again after the visibility timeout.
type PgTransport struct {
	pool              *pgxpool.Pool
	visibilityTimeout time.Duration
	requeueDelay      time.Duration
	maxDeliveries     int
}

func NewPgTransport(pool *pgxpool.Pool, visibilityTimeout, requeueDelay time.Duration, maxDeliveries int) *PgTransport {
	return &PgTransport{
		pool:              pool,
		visibilityTimeout: visibilityTimeout,
		requeueDelay:      requeueDelay,
		maxDeliveries:     maxDeliveries,
	}
}

func (t *PgTransport) EnqueueWork(ctx context.Context, prns []domain.Prn) error {
	if len(prns) == 0 {
		return nil
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin enqueue: %w", domain.ErrQueueUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, prn := range prns {
		body, err := json.Marshal(prn)
		if err != nil {
			return fmt.Errorf("marshal prn %s: %w", prn.EvidenceNo, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO queue_messages (id, lane, body, delivery_count, enqueued_at)
			VALUES ($1, $2, $3, 0, NOW())`,
			uuid.New().String(), string(LaneWork), body,
		)
		if err != nil {
			return fmt.Errorf("%w: insert message: %w", domain.ErrQueueUnavailable, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit enqueue: %w", domain.ErrQueueUnavailable, err)
	}
	return nil
}

func (t *PgTransport) ReceiveWork(ctx context.Context, max int) ([]Message, error) {
	rows, err := t.pool.Query(ctx, `
		UPDATE queue_messages
		SET locked_until = NOW() + make_interval(secs => $1),
		    delivery_count = delivery_count + 1
		WHERE id IN (
			SELECT id FROM queue_messages
			WHERE lane IN ($2, $3)
			  AND (locked_until IS NULL OR locked_until < NOW())
			ORDER BY enqueued_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, lane, body, delivery_count`,
		t.visibilityTimeout.Seconds(), string(LaneWork), string(LaneRetry), max,
	)
	if err != nil {
		return nil, fmt.Errorf("receive work: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var lane string
		if err := rows.Scan(&m.ID, &lane, &m.Body, &m.DeliveryCount); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Lane = Lane(lane)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (t *PgTransport) Requeue(ctx context.Context, msg Message) error {
	// Redelivery budget: beyond maxDeliveries the message is poisoned in
	// practice and goes to the error lane instead of cycling forever.
	if msg.DeliveryCount >= t.maxDeliveries {
		return t.DeadLetter(ctx, msg, "delivery count exceeded")
	}

	// The lock is extended, not cleared: the message stays invisible for
	// the requeue delay so the current drain pass cannot re-receive it
	// and hammer a failing dependency in a tight loop.
	_, err := t.pool.Exec(ctx, `
		UPDATE queue_messages
		SET lane = $1, locked_until = NOW() + make_interval(secs => $2), enqueued_at = NOW()
		WHERE id = $3`,
		string(LaneRetry), t.requeueDelay.Seconds(), msg.ID,
	)
	if err != nil {
		return fmt.Errorf("requeue message %s: %w", msg.ID, err)
	}
	return nil
}

func (t *PgTransport) DeadLetter(ctx context.Context, msg Message, reason string) error {
	_, err := t.pool.Exec(ctx, `
		UPDATE queue_messages
		SET lane = $1, locked_until = NULL, error_reason = $2
		WHERE id = $3`,
		string(LaneError), reason, msg.ID,
	)
	if err != nil {
		return fmt.Errorf("dead-letter message %s: %w", msg.ID, err)
	}
	return nil
}

func (t *PgTransport) Ack(ctx context.Context, msg Message) error {
	_, err := t.pool.Exec(ctx,
		`DELETE FROM queue_messages WHERE id = $1`, msg.ID)
	if err != nil {
		return fmt.Errorf("ack message %s: %w", msg.ID, err)
	}
	return nil
}

func (t *PgTransport) Depths(ctx context.Context) (work, retry, errored int, err error) {
	rows, qerr := t.pool.Query(ctx, `
		SELECT lane, COUNT(*) FROM queue_messages
		WHERE locked_until IS NULL OR locked_until < NOW()
		GROUP BY lane`)
	if qerr != nil {
		return 0, 0, 0, fmt.Errorf("queue depths: %w", qerr)
	}
	defer rows.Close()

	for rows.Next() {
		var lane string
		var n int
		if err := rows.Scan(&lane, &n); err != nil {
			return 0, 0, 0, err
		}
		switch Lane(lane) {
		case LaneWork:
			work = n
		case LaneRetry:
			retry = n
		case LaneError:
			errored = n
		}
	}
	return work, retry, errored, rows.Err()
}

func (t *PgTransport) PeekErrors(ctx context.Context, max int) ([]Message, error) {
	rows, err := t.pool.Query(ctx, `
		SELECT id, lane, body, delivery_count FROM queue_messages
		WHERE lane = $1
		ORDER BY enqueued_at
		LIMIT $2`,
		string(LaneError), max,
	)
	if err != nil {
		return nil, fmt.Errorf("peek errors: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var lane string
		if err := rows.Scan(&m.ID, &lane, &m.Body, &m.DeliveryCount); err != nil {
			return nil, err
		}
		m.Lane = Lane(lane)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// compile-time check that PgTransport implements Transport
var _ Transport = (*PgTransport)(nil)
