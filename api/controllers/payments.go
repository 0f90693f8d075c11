package controllers

import (
	"net/http"

	"github.com/onlycars/onlycars-backend/api/responses"
	"github.com/onlycars/onlycars-backend/api/validators"
	"github.com/onlycars/onlycars-backend/internal/payments"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
)

type createPaymentIntentRequest struct {
	CustomerName  string `json:"customer_name" validate:"omitempty,max=200"`
	CustomerPhone string `json:"customer_phone" validate:"omitempty,max=30"`
}

// CreatePaymentIntent starts (or resumes) collection for an order.
func CreatePaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := createPaymentIntentRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		intent, err := svc.CreateIntent(r.Context(), payments.CreateIntentInput{
			OrderID:       orderID,
			CustomerName:  validators.SanitizeString(payload.CustomerName, 200),
			CustomerPhone: validators.SanitizeString(payload.CustomerPhone, 30),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

// OrderPayment returns the payment attached to an order.
func OrderPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.GetByOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payment)
	}
}
