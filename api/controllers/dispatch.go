package controllers

import (
	"net/http"

	"github.com/onlycars/onlycars-backend/api/responses"
	"github.com/onlycars/onlycars-backend/internal/dispatch"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
)

// AssignDriver picks the closest available driver for a ready order.
func AssignDriver(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		delivery, err := svc.Assign(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, delivery)
	}
}
