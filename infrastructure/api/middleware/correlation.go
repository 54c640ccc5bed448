package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sebastien-sq/ragserve/internal/log"
)

// CorrelationID propagates an X-Correlation-ID header through the request
// context and the response. A fresh ID is minted when the client sends none.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		w.Header().Set("X-Correlation-ID", correlationID)

		ctx := log.WithRequestID(r.Context(), correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
