package cursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore returns a Store backed by the sync_cursors table.
func NewPgStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

// Get returns the cursor for t. An absent row is not an error: it yields
// a zero-value cursor with a nil LastSyncTime (first run, fetch everything).
func (s *pgStore) Get(ctx context.Context, t SyncType) (Cursor, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT last_sync_time FROM sync_cursors WHERE sync_type = $1`, string(t))

	var last time.Time
	err := row.Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cursor{SyncType: t}, nil
	}
	if err != nil {
		return Cursor{}, fmt.Errorf("get cursor %s: %w", t, err)
	}
	return Cursor{SyncType: t, LastSyncTime: &last}, nil
}

func (s *pgStore) Advance(ctx context.Context, t SyncType, newTime time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_cursors (sync_type, last_sync_time)
		VALUES ($1, $2)
		ON CONFLICT (sync_type) DO UPDATE SET last_sync_time = EXCLUDED.last_sync_time`,
		string(t), newTime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("advance cursor %s: %w", t, err)
	}
	return nil
}
