package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/cursor"
	"github.com/eprhub/prn-integration/internal/domain"
	"github.com/eprhub/prn-integration/internal/queue"
	"github.com/eprhub/prn-integration/internal/retry"
)

// fakeFetcher scripts GetIssuedPrns responses call by call. The last
// entry repeats once the script runs out.
type fakeFetcher struct {
	results [][]domain.Prn
	errs    []error
	filters []string
	calls   int
}

func (f *fakeFetcher) GetIssuedPrns(_ context.Context, filter string) ([]domain.Prn, error) {
	f.filters = append(f.filters, filter)
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.results[i], nil
}

func testPolicy() retry.Policy {
	return retry.NewPolicy(3, time.Millisecond, false)
}

func newFetchWorker(f *fakeFetcher, q queue.Transport, cursors cursor.Store, enabled bool, at time.Time) *FetchWorker {
	w := NewFetchWorker(f, q, cursors, testPolicy(), nil, enabled, time.Minute, zap.NewNop(), nil)
	w.now = func() time.Time { return at }
	return w
}

func TestFetch_FirstRunHasOpenLowerBound(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{results: [][]domain.Prn{{validPrn("PRN-1")}}}
	tr := queue.NewMockTransport()
	cursors := cursor.NewMockStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w := newFetchWorker(fetcher, tr, cursors, true, now)
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if strings.Contains(fetcher.filters[0], "StatusDate") {
		t.Errorf("first-run filter carries date clauses: %s", fetcher.filters[0])
	}

	cur, _ := cursors.Get(ctx, cursor.SyncFetchPrns)
	if cur.LastSyncTime == nil || !cur.LastSyncTime.Equal(now) {
		t.Errorf("cursor = %v, want %v", cur.LastSyncTime, now)
	}

	work, _, _, _ := tr.Depths(ctx)
	if work != 1 {
		t.Errorf("work lane depth = %d, want 1", work)
	}
}

func TestFetch_EmptyWindowAdvancesCursorWithoutEnqueue(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{results: [][]domain.Prn{{}}}
	tr := queue.NewMockTransport()
	cursors := cursor.NewMockStore()
	from := time.Date(2026, 3, 1, 11, 45, 0, 0, time.UTC)
	now := from.Add(15 * time.Minute)
	cursors.Set(cursor.SyncFetchPrns, from)

	w := newFetchWorker(fetcher, tr, cursors, true, now)
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	cur, _ := cursors.Get(ctx, cursor.SyncFetchPrns)
	if cur.LastSyncTime == nil || !cur.LastSyncTime.Equal(now) {
		t.Errorf("cursor not advanced on empty window: %v", cur.LastSyncTime)
	}
	work, _, _, _ := tr.Depths(ctx)
	if work != 0 {
		t.Errorf("work lane depth = %d after empty fetch", work)
	}
}

func TestFetch_FatalFetchLeavesCursor(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{
		results: [][]domain.Prn{nil},
		errs:    []error{errors.New("status 401")},
	}
	cursors := cursor.NewMockStore()
	from := time.Date(2026, 3, 1, 11, 45, 0, 0, time.UTC)
	cursors.Set(cursor.SyncFetchPrns, from)

	w := newFetchWorker(fetcher, queue.NewMockTransport(), cursors, true, from.Add(15*time.Minute))
	if err := w.RunOnce(ctx); err == nil {
		t.Fatal("expected fetch failure to surface")
	}
	if fetcher.calls != 1 {
		t.Errorf("non-transient error retried %d times", fetcher.calls)
	}

	cur, _ := cursors.Get(ctx, cursor.SyncFetchPrns)
	if cur.LastSyncTime == nil || !cur.LastSyncTime.Equal(from) {
		t.Errorf("cursor moved on fatal fetch: %v", cur.LastSyncTime)
	}
}

func TestFetch_TransientFetchRetriedThenSucceeds(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{
		results: [][]domain.Prn{nil, {validPrn("PRN-1")}},
		errs:    []error{domain.Transient("status 429"), nil},
	}
	tr := queue.NewMockTransport()
	cursors := cursor.NewMockStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	w := newFetchWorker(fetcher, tr, cursors, true, now)
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fetcher.calls != 2 {
		t.Errorf("calls = %d, want 2", fetcher.calls)
	}
	work, _, _, _ := tr.Depths(ctx)
	if work != 1 {
		t.Errorf("work lane depth = %d, want 1", work)
	}
}

func TestFetch_EnqueueFailureLeavesCursor(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{results: [][]domain.Prn{{validPrn("PRN-1")}}}
	tr := queue.NewMockTransport()
	tr.EnqueueErr = domain.ErrQueueUnavailable
	cursors := cursor.NewMockStore()
	from := time.Date(2026, 3, 1, 11, 45, 0, 0, time.UTC)
	cursors.Set(cursor.SyncFetchPrns, from)

	w := newFetchWorker(fetcher, tr, cursors, true, from.Add(15*time.Minute))
	err := w.RunOnce(ctx)
	if !errors.Is(err, domain.ErrQueueUnavailable) {
		t.Fatalf("error = %v, want ErrQueueUnavailable", err)
	}

	cur, _ := cursors.Get(ctx, cursor.SyncFetchPrns)
	if cur.LastSyncTime == nil || !cur.LastSyncTime.Equal(from) {
		t.Errorf("cursor moved despite enqueue failure: %v", cur.LastSyncTime)
	}
}

func TestFetch_MalformedWindowRejected(t *testing.T) {
	ctx := context.Background()
	cursors := cursor.NewMockStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cursors.Set(cursor.SyncFetchPrns, now.Add(time.Hour)) // cursor ahead of clock

	fetcher := &fakeFetcher{results: [][]domain.Prn{nil}}
	w := newFetchWorker(fetcher, queue.NewMockTransport(), cursors, true, now)

	if err := w.RunOnce(ctx); !errors.Is(err, domain.ErrMalformedWindow) {
		t.Fatalf("error = %v, want ErrMalformedWindow", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch attempted with malformed window")
	}
}

func TestFetch_DisabledFlagIsNoOp(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{results: [][]domain.Prn{{validPrn("PRN-1")}}}
	cursors := cursor.NewMockStore()

	w := newFetchWorker(fetcher, queue.NewMockTransport(), cursors, false, time.Now())
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch attempted while disabled")
	}
	cur, _ := cursors.Get(ctx, cursor.SyncFetchPrns)
	if cur.LastSyncTime != nil {
		t.Errorf("cursor written while disabled: %v", cur.LastSyncTime)
	}
}

func TestFetch_WindowsAreContiguous(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{results: [][]domain.Prn{{}}}
	cursors := cursor.NewMockStore()
	tr := queue.NewMockTransport()

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w := newFetchWorker(fetcher, tr, cursors, true, t0)
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}

	t1 := t0.Add(15 * time.Minute)
	w.now = func() time.Time { return t1 }
	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	// The second filter's lower bound must equal the first run's upper
	// bound, so consecutive windows tile the timeline with no gap.
	if !strings.Contains(fetcher.filters[1], "StatusDate ge 2026-03-01T12:00:00Z") {
		t.Errorf("second window does not start at first window's end:\n%s", fetcher.filters[1])
	}
	if !strings.Contains(fetcher.filters[1], "StatusDate lt 2026-03-01T12:15:00Z") {
		t.Errorf("second window upper bound wrong:\n%s", fetcher.filters[1])
	}
}
