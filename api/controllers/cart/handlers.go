package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/api/middleware"
	"github.com/peakrent/peakrent-backend/api/responses"
	"github.com/peakrent/peakrent-backend/api/validators"
	cartsvc "github.com/peakrent/peakrent-backend/internal/cart"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
	"github.com/peakrent/peakrent-backend/pkg/types"
)

type cartHandler func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error)

// withCustomer resolves the caller and renders the handler's result.
func withCustomer(svc cartsvc.Service, logg *logger.Logger, fn cartHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := middleware.AuthenticatedUserID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := fn(w, r, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Fetch returns the active cart, creating it when missing.
func Fetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCustomer(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error) {
		return svc.Get(r.Context(), userID)
	})
}

// Quote returns subtotal, discount and total for the active cart.
func Quote(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCustomer(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error) {
		return svc.Quote(r.Context(), userID)
	})
}

func AddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCustomer(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error) {
		var body cartsvc.AddItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), userID, body)
	})
}

func UpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCustomer(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error) {
		itemID, err := validators.URLParamUUID(r, "itemId")
		if err != nil {
			return nil, err
		}
		var body cartsvc.UpdateItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateItem(r.Context(), userID, itemID, body)
	})
}

func RemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCustomer(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error) {
		itemID, err := validators.URLParamUUID(r, "itemId")
		if err != nil {
			return nil, err
		}
		return svc.RemoveItem(r.Context(), userID, itemID)
	})
}

func ApplyVoucher(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCustomer(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error) {
		var body cartsvc.ApplyVoucherRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ApplyVoucher(r.Context(), userID, body.Code)
	})
}

func RemoveVoucher(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCustomer(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error) {
		return svc.RemoveVoucher(r.Context(), userID)
	})
}

// SetAddress stores the delivery address on the cart.
func SetAddress(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return withCustomer(svc, logg, func(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (any, error) {
		var body types.Address
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SetAddress(r.Context(), userID, body)
	})
}
