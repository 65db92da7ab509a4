package controllers

import (
	"net/http"

	"github.com/receiptwise/backend/api/responses"
	"github.com/receiptwise/backend/internal/receipts"
	"github.com/receiptwise/backend/pkg/config"
	"github.com/receiptwise/backend/pkg/logger"
)

type optionsResponse struct {
	Categories     []string `json:"categories"`
	PaymentMethods []string `json:"payment_methods"`
	Statuses       []string `json:"statuses"`
	Vendors        []string `json:"vendors"`
}

// Options returns the configured enumerations plus the vendors seen so far,
// for building filter controls.
func Options(svc receipts.Service, opts config.OptionsConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		vendors, err := svc.DistinctVendors(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if vendors == nil {
			vendors = []string{}
		}

		responses.WriteSuccess(w, optionsResponse{
			Categories:     opts.ExpenseCategories,
			PaymentMethods: opts.PaymentMethods,
			Statuses:       opts.Statuses(),
			Vendors:        vendors,
		})
	}
}
