package notify

import (
	"context"

	"github.com/eprhub/prn-integration/internal/domain"
)

// Dispatcher delivers outbound notifications. Both operations are
// best-effort from the pipeline's point of view: a dispatch failure is
// logged by the caller and never changes a record's processing outcome.
type Dispatcher interface {
	// SendProducerNotifications fans one PRN out to the resolved
	// contacts of its owning organisation.
	SendProducerNotifications(ctx context.Context, notifications []domain.ProducerNotification) error

	// AlertOperators raises an operational alert, used only for push
	// failures classified as server-side or timeout.
	AlertOperators(ctx context.Context, message string) error
}
