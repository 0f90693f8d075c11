package controllers

import (
	"net/http"

	"github.com/onlycars/onlycars-backend/api/responses"
	"github.com/onlycars/onlycars-backend/internal/payouts"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
)

// ReleaseEscrow pays out a completed order's escrowed funds.
func ReleaseEscrow(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := svc.Release(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, breakdown)
	}
}
