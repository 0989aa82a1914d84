package controllers

import (
	"net/http"

	"github.com/peakrent/peakrent-backend/api/middleware"
	"github.com/peakrent/peakrent-backend/api/responses"
	"github.com/peakrent/peakrent-backend/api/validators"
	"github.com/peakrent/peakrent-backend/internal/checkout"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

// Checkout converts the caller's active cart into a pending order.
// The body is optional; it only carries a caller-chosen reference.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := middleware.AuthenticatedUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body checkout.Request
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Checkout(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
