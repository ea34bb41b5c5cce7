package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/verdanthq/verdant-backend/api/responses"
	"github.com/verdanthq/verdant-backend/api/validators"
	cartsvc "github.com/verdanthq/verdant-backend/internal/cart"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/logger"
)

type addCartLineRequest struct {
	ServiceID string  `json:"service_id" validate:"required,uuid"`
	Size      string  `json:"size" validate:"required"`
	Quantity  int     `json:"quantity" validate:"min=0"`
	Date      *string `json:"date,omitempty"`
}

func (req addCartLineRequest) toInput() (cartsvc.AddLineInput, error) {
	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return cartsvc.AddLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "service_id must be a uuid")
	}

	size, err := enums.ParseServiceSize(req.Size)
	if err != nil {
		return cartsvc.AddLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown service size")
	}

	input := cartsvc.AddLineInput{
		ServiceID: serviceID,
		Size:      size,
		Quantity:  req.Quantity,
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	if req.Date != nil && *req.Date != "" {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return cartsvc.AddLineInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be YYYY-MM-DD")
		}
		input.Date = &date
	}
	return input, nil
}

// AddCartLine adds a service to the cart of whoever is asking, guest or
// signed-in user alike.
func AddCartLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		line, err := svc.AddLine(r.Context(), actorFrom(r), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, line)
	}
}

// CartSummary returns the items, total, and count for the current cart.
func CartSummary(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.Summary(r.Context(), actorFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type updateCartLineRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

// UpdateCartLine changes a line's quantity. Quantity zero removes it.
func UpdateCartLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartLineRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Quantity == 0 {
			if err := svc.RemoveLine(r.Context(), actorFrom(r), lineID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]string{"status": "removed"})
			return
		}

		line, err := svc.UpdateQuantity(r.Context(), actorFrom(r), lineID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, line)
	}
}

// RemoveCartLine deletes a line from the cart.
func RemoveCartLine(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveLine(r.Context(), actorFrom(r), lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// Checkout converts the signed-in user's cart into pending bookings.
func Checkout(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookings, err := svc.Checkout(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, bookings)
	}
}
