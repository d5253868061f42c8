package controllers

import (
	"net/http"
	"strings"

	"github.com/ziggy12122/STK-Bot-sub000/api/responses"
	"github.com/ziggy12122/STK-Bot-sub000/api/validators"
	"github.com/ziggy12122/STK-Bot-sub000/internal/checkout"
	pkgerrors "github.com/ziggy12122/STK-Bot-sub000/pkg/errors"
	"github.com/ziggy12122/STK-Bot-sub000/pkg/logger"
)

const (
	idempotencyHeader = "Idempotency-Key"
	maxIdempotencyKey = 128
	maxDisplayNameLen = 100
)

type checkoutRequest struct {
	DisplayName string `json:"display_name" validate:"max=100"`
}

// Checkout turns the user's cart into an order: completed under the default
// auto policy, pending when fulfilment is manual. The body is optional; the
// bot sends the member's display name when it has one.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var payload checkoutRequest
		if r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
		if len(key) > maxIdempotencyKey {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key too long").
				WithDetails(map[string]any{"field": idempotencyHeader, "max": maxIdempotencyKey}))
			return
		}

		order, err := svc.Checkout(r.Context(), checkout.CheckoutInput{
			UserID:         userID,
			DisplayName:    validators.SanitizeString(payload.DisplayName, maxDisplayNameLen),
			IdempotencyKey: key,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
