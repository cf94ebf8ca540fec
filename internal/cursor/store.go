package cursor

import (
	"context"
	"time"
)

// SyncType identifies one independently-cursored synchronization stream.
type SyncType string

const (
	SyncFetchPrns       SyncType = "fetch_prns"
	SyncUpdateProducers SyncType = "update_producers"
)

// Cursor records the upper bound of the last successfully handed-off
// window for one sync type. A nil LastSyncTime means the sync has never
// completed: the next fetch window has an open lower bound.
type Cursor struct {
	SyncType     SyncType
	LastSyncTime *time.Time
}

// Store persists one cursor per sync type.
//
// Advance is an unconditional overwrite and must only be called after the
// owning stage has durably handed its batch off (enqueued or pushed).
// There is no lock around advancement: each sync type is assumed to have
// a single writer per deployment, and overlapping scheduled runs are
// last-writer-wins. The pg implementation documents the same race.
type Store interface {
	Get(ctx context.Context, t SyncType) (Cursor, error)
	Advance(ctx context.Context, t SyncType, newTime time.Time) error
}
