package sadad

import (
	"github.com/google/uuid"

	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

// Callback is the validated shape extracted from a raw provider payload.
type Callback struct {
	OrderID        uuid.UUID
	ProviderStatus string
	InvoiceID      string
	Raw            types.JSONMap
}

var orderRefKeys = []string{"order_id", "orderId", "order_ref", "reference", "merchant_reference"}
var statusKeys = []string{"status", "payment_status", "transaction_status", "invoice_status"}
var invoiceKeys = []string{"invoice_id", "invoiceId", "invoice_number"}

// ParseCallback pulls an order reference and a provider status out of an
// arbitrary payload shape. Sadad has shipped both flat and data-wrapped
// bodies, so both are accepted; anything without a resolvable order
// reference is rejected outright.
func ParseCallback(payload types.JSONMap) (*Callback, error) {
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty webhook payload")
	}

	scopes := []types.JSONMap{payload}
	if nested, ok := payload["data"].(map[string]any); ok {
		scopes = append(scopes, types.JSONMap(nested))
	}

	var ref string
	for _, scope := range scopes {
		if ref = firstString(scope, orderRefKeys); ref != "" {
			break
		}
	}
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload carries no order reference")
	}
	orderID, err := uuid.Parse(ref)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook order reference is not a valid id")
	}

	var status string
	for _, scope := range scopes {
		if status = firstString(scope, statusKeys); status != "" {
			break
		}
	}

	var invoiceID string
	for _, scope := range scopes {
		if invoiceID = firstString(scope, invoiceKeys); invoiceID != "" {
			break
		}
	}

	return &Callback{
		OrderID:        orderID,
		ProviderStatus: status,
		InvoiceID:      invoiceID,
		Raw:            payload,
	}, nil
}

func firstString(scope types.JSONMap, keys []string) string {
	for _, key := range keys {
		if value, ok := scope[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
