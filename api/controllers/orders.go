package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/onlycars/onlycars-backend/api/middleware"
	"github.com/onlycars/onlycars-backend/api/responses"
	"github.com/onlycars/onlycars-backend/api/validators"
	"github.com/onlycars/onlycars-backend/internal/orders"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
	"github.com/onlycars/onlycars-backend/pkg/pagination"
	"github.com/onlycars/onlycars-backend/pkg/types"
)

type placeOrderRequest struct {
	ShopID          string                  `json:"shop_id" validate:"required,uuid"`
	WorkshopID      *string                 `json:"workshop_id,omitempty" validate:"omitempty,uuid"`
	Items           []placeOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod   string                  `json:"payment_method" validate:"required"`
	DeliveryAddress *types.Address          `json:"delivery_address" validate:"required"`
	Notes           *string                 `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

type placeOrderItemRequest struct {
	PartID   string `json:"part_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type transitionOrderRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// PlaceOrder creates a new order for the authenticated consumer.
func PlaceOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		consumerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shopID, err := uuid.Parse(payload.ShopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shop id"))
			return
		}

		var workshopID *uuid.UUID
		if payload.WorkshopID != nil {
			id, err := uuid.Parse(*payload.WorkshopID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid workshop id"))
				return
			}
			workshopID = &id
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		items := make([]orders.ItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			partID, err := uuid.Parse(item.PartID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid part id"))
				return
			}
			items = append(items, orders.ItemInput{PartID: partID, Quantity: item.Quantity})
		}

		input := orders.PlaceOrderInput{
			ConsumerID:      consumerID,
			ShopID:          shopID,
			WorkshopID:      workshopID,
			Items:           items,
			PaymentMethod:   method,
			DeliveryAddress: payload.DeliveryAddress,
			Notes:           payload.Notes,
		}

		order, err := svc.Place(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrderDetail returns the full order with items, payment, delivery and history.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

// ListOrders pages through the authenticated consumer's orders.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		consumerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.ListForConsumer(r.Context(), consumerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// TransitionOrder moves an order to the requested lifecycle status.
func TransitionOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		input := orders.TransitionInput{
			OrderID:   orderID,
			Target:    target,
			ActorID:   userID,
			ActorRole: middleware.RoleFromContext(r.Context()),
			Note:      payload.Note,
		}

		order, err := svc.Transition(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return userID, nil
}
