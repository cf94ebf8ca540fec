package npwd

import (
	"context"

	"github.com/eprhub/prn-integration/internal/domain"
)

// Fetcher queries the authority system for issued evidence records.
// The HTTP implementation is Client; pipeline tests use fakes.
type Fetcher interface {
	GetIssuedPrns(ctx context.Context, filter string) ([]domain.Prn, error)
}

// Pusher sends a producer delta to the authority system.
type Pusher interface {
	PatchProducers(ctx context.Context, delta domain.ProducerDelta) (PushResult, error)
}

var (
	_ Fetcher = (*Client)(nil)
	_ Pusher  = (*Client)(nil)
)
