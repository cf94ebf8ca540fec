package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type correlationKey struct{}

const correlationHeader = "X-Correlation-ID"

// CorrelationID tags every request with a correlation id. An incoming
// header is honoured only when it parses as a UUID; anything else is
// replaced, so log queries never key on caller-chosen strings. The id is
// stored on the context and echoed in the response header so a manually
// triggered sync run can be traced through the pipeline logs.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		ctx := context.WithValue(r.Context(), correlationKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the id set by CorrelationID, or "" when the
// middleware was not applied.
func GetCorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationKey{}).(string)
	return v
}
