package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/peakrent/peakrent-backend/api/responses"
	"github.com/peakrent/peakrent-backend/api/validators"
	"github.com/peakrent/peakrent-backend/internal/catalog"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/logger"
)

// ListStores returns the active rental stores.
func ListStores(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		stores, err := svc.ListStores(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stores)
	}
}

// ListProducts pages through active products, optionally filtered by
// category or store.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		storeID, err := validators.ParseQueryUUID(r, "store_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProducts(r.Context(), catalog.ListProductsParams{
			Category: validators.SanitizeFilter(r.URL.Query().Get("category"), 50),
			StoreID:  storeID,
			Limit:    page.Limit,
			Cursor:   page.Cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetProduct resolves a product by id or slug.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		key := strings.TrimSpace(chi.URLParam(r, "product"))
		if key == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product is required"))
			return
		}

		product, err := svc.GetProduct(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// VariantAvailability reports free units of a variant for a rental window.
func VariantAvailability(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		variantID, err := validators.URLParamUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseQueryTime(r, "starts_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "ends_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		availability, err := svc.Availability(r.Context(), variantID, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, availability)
	}
}
