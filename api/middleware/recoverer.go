package middleware

import (
	"fmt"
	"net/http"

	"github.com/receiptwise/backend/api/responses"
	pkgerrors "github.com/receiptwise/backend/pkg/errors"
	"github.com/receiptwise/backend/pkg/logger"
)

// Recoverer converts handler panics into a logged 500 response so a single
// bad request cannot take the server down.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				err := fmt.Errorf("panic: %v", rec)
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "panic", fmt.Sprintf("%v", rec))
					logg.Error(ctx, "recovered handler panic", err)
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "internal error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
