package npwd

import (
	"fmt"
	"strings"
	"time"

	"github.com/eprhub/prn-integration/internal/domain"
)

// BuildIssuedPrnFilter renders the OData boolean filter for the issued-PRN
// query: the fixed actionable status set, optionally restricted to the
// half-open window [from, to). A record qualifies when either its status
// change or its modification time falls in the window, the union of the
// two date checks rather than the intersection. A nil from (first run,
// no cursor) selects on status alone.
func BuildIssuedPrnFilter(window domain.FetchWindow) string {
	clauses := make([]string, 0, len(domain.ActionableStatuses))
	for _, s := range domain.ActionableStatuses {
		clauses = append(clauses, fmt.Sprintf("EvidenceStatusCode eq '%s'", s))
	}
	statusFilter := "(" + strings.Join(clauses, " or ") + ")"

	if window.From == nil {
		return statusFilter
	}

	from := window.From.UTC().Format(time.RFC3339Nano)
	to := window.To.UTC().Format(time.RFC3339Nano)
	return fmt.Sprintf(
		"%s and ((StatusDate ge %s and StatusDate lt %s) or (ModifiedOn ge %s and ModifiedOn lt %s))",
		statusFilter, from, to, from, to,
	)
}
