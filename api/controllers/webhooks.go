package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/onlycars/onlycars-backend/api/responses"
	sadadwebhook "github.com/onlycars/onlycars-backend/internal/webhooks/sadad"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// SadadWebhook ingests gateway payment callbacks. The body is decoded as a
// loose JSON map because Sadad payload shapes vary between API revisions.
func SadadWebhook(svc sadadwebhook.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read webhook body"))
			return
		}

		var payload types.JSONMap
		if len(body) > 0 {
			if err := json.Unmarshal(body, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
				return
			}
		}

		result, err := svc.Ingest(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"order_id":       result.OrderID.String(),
				"payment_status": string(result.PaymentStatus),
				"applied":        result.Applied,
			})
			logg.Info(ctx, "webhook.sadad.processed")
		}

		responses.WriteSuccess(w, result)
	}
}
