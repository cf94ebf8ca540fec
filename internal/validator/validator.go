package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eprhub/prn-integration/internal/domain"
)

// Outcome is the result of validating one fetched PRN. Reasons preserve
// rule order so dead-letter records carry a stable, readable diagnosis.
// Never persisted; computed per message.
type Outcome struct {
	Valid   bool
	Reasons []string
}

// Validator decides whether a fetched PRN may be saved. Injectable so the
// drain pipeline can be tested with fakes and rule changes never touch
// pipeline code.
type Validator interface {
	Validate(prn domain.Prn) Outcome
}

// minAccreditationYear is the first scheme year the backend accepts.
const minAccreditationYear = 2025

var validMaterials = map[string]struct{}{
	"aluminium": {},
	"glass":     {},
	"paper":     {},
	"plastic":   {},
	"steel":     {},
	"wood":      {},
}

// RuleValidator implements the production rule set.
type RuleValidator struct {
	// now is injectable for the accreditation-year bound in tests.
	now func() time.Time
}

func NewRuleValidator() *RuleValidator {
	return &RuleValidator{now: time.Now}
}

func (v *RuleValidator) Validate(prn domain.Prn) Outcome {
	var reasons []string
	fail := func(format string, args ...any) {
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(prn.EvidenceNo) == "" {
		fail("evidence number is required")
	}
	if strings.TrimSpace(prn.AccreditationNo) == "" {
		fail("accreditation number is required")
	}
	if _, err := uuid.Parse(prn.IssuedToEPRID); err != nil {
		fail("issued-to EPR id %q is not a valid organisation id", prn.IssuedToEPRID)
	}
	if prn.EvidenceTonnes <= 0 {
		fail("tonnage must be positive, got %d", prn.EvidenceTonnes)
	}
	if _, ok := validMaterials[strings.ToLower(strings.TrimSpace(prn.EvidenceMaterial))]; !ok {
		fail("material %q is not an accepted material", prn.EvidenceMaterial)
	}

	maxYear := v.now().UTC().Year() + 1
	if prn.AccreditationYear < minAccreditationYear || prn.AccreditationYear > maxYear {
		fail("accreditation year %d out of bounds [%d, %d]", prn.AccreditationYear, minAccreditationYear, maxYear)
	}

	if prn.IssueDate == nil {
		fail("issue date is required")
	}

	// CancelledDate is set if and only if the PRN is cancelled.
	if prn.EvidenceStatusCode == domain.StatusCancelled && prn.CancelledDate == nil {
		fail("cancellation date must not be null when PRN has status of %s", domain.StatusCancelled)
	}
	if prn.EvidenceStatusCode != domain.StatusCancelled && prn.CancelledDate != nil {
		fail("cancellation date must be null when PRN is not cancelled")
	}

	return Outcome{Valid: len(reasons) == 0, Reasons: reasons}
}

var _ Validator = (*RuleValidator)(nil)
