package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/receiptwise/backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID reuses the caller's request id when one is supplied, minting a
// uuid otherwise, and binds it to the request's log context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
