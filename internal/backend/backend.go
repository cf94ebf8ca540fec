package backend

import (
	"context"
	"time"

	"github.com/eprhub/prn-integration/internal/domain"
)

// PrnService persists evidence records in the internal backend and
// exposes the changed-producers feed for the outbound push stage.
// The save is upsert-like: re-sending an evidence number already saved
// is safe, which is what makes at-least-once queue delivery acceptable.
type PrnService interface {
	SavePrn(ctx context.Context, req domain.SavePrnRequest) error
	GetUpdatedProducers(ctx context.Context, from *time.Time, to time.Time) ([]domain.UpdatedProducer, error)
}

// OrganisationService resolves notification recipients for an
// organisation.
type OrganisationService interface {
	GetPersonEmails(ctx context.Context, organisationID string) ([]domain.PersonEmail, error)
}
