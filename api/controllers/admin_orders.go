package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ziggy12122/STK-Bot-sub000/api/responses"
	"github.com/ziggy12122/STK-Bot-sub000/api/validators"
	"github.com/ziggy12122/STK-Bot-sub000/internal/orders"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/enums"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/outbox"
)

type orderDecisionRequest struct {
	Notes *string       `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Actor *actorRequest `json:"actor,omitempty"`
}

type actorRequest struct {
	UserID      string `json:"user_id" validate:"required,max=64"`
	DisplayName string `json:"display_name,omitempty" validate:"max=100"`
}

// AdminOrderList lists every order, optionally narrowed by status or user.
func AdminOrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := orders.ListFilter{
			UserID: strings.TrimSpace(r.URL.Query().Get("user_id")),
			Params: page,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			filter.Status = &status
		}
		list, err := svc.ListOrders(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func AdminCompleteOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderDecision(svc, logg, func(ctx context.Context, in orders.TransitionInput) (*orders.OrderDTO, error) {
		return svc.CompleteOrder(ctx, in)
	})
}

// AdminCancelOrder cancels a pending order and restocks its lines.
func AdminCancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderDecision(svc, logg, func(ctx context.Context, in orders.TransitionInput) (*orders.OrderDTO, error) {
		return svc.CancelOrder(ctx, in)
	})
}

type decideFunc func(ctx context.Context, in orders.TransitionInput) (*orders.OrderDTO, error)

func orderDecision(svc orders.Service, logg *logger.Logger, decide decideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseIDParam(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderDecisionRequest
		if r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := orders.TransitionInput{OrderID: orderID, Notes: payload.Notes}
		if payload.Actor != nil {
			input.Actor = &outbox.ActorRef{
				UserID:      strings.TrimSpace(payload.Actor.UserID),
				DisplayName: strings.TrimSpace(payload.Actor.DisplayName),
			}
		}

		ctx := logg.WithOrderID(r.Context(), orderID)
		order, err := decide(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
