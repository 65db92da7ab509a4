package controllers

import (
	"context"
	"net/http"

	"github.com/receiptwise/backend/api/responses"
	"github.com/receiptwise/backend/pkg/config"
	pkgerrors "github.com/receiptwise/backend/pkg/errors"
	"github.com/receiptwise/backend/pkg/logger"
)

const appEnvHeader = "X-ReceiptWise-Env"

// Pinger is implemented by infrastructure clients that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(appEnvHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every wired dependency responds.
// Nil pingers are skipped so optional dependencies do not fail the check.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(appEnvHeader, cfg.App.Env)

		for name, pinger := range pingers {
			if pinger == nil {
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
