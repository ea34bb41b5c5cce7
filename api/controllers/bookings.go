package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verdanthq/verdant-backend/api/responses"
	"github.com/verdanthq/verdant-backend/api/validators"
	bookingsvc "github.com/verdanthq/verdant-backend/internal/bookings"
	"github.com/verdanthq/verdant-backend/pkg/enums"
	pkgerrors "github.com/verdanthq/verdant-backend/pkg/errors"
	"github.com/verdanthq/verdant-backend/pkg/logger"
)

// ListMyBookings returns the caller's bookings, newest first.
func ListMyBookings(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bookings, err := svc.ListMine(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookings)
	}
}

// CancelBooking lets a customer cancel their own pending booking.
func CancelBooking(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		booking, err := svc.Cancel(r.Context(), actorFrom(r), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// ListPendingBookings returns bookings awaiting a staff decision.
func ListPendingBookings(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookings, err := svc.ListPending(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, bookings)
	}
}

type setBookingStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetBookingStatus moves a pending booking to a terminal state.
func SetBookingStatus(svc bookingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload setBookingStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseBookingStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown booking status"))
			return
		}

		booking, err := svc.SetStatus(r.Context(), actorFrom(r), bookingID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}
