package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/pagination"
	"github.com/peakrent/peakrent-backend/pkg/validation"
)

func fieldError(field, message string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid request").
		WithDetails([]validation.FieldError{{Field: field, Message: message}})
}

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError(key, "must be numeric")
	}
	if value < min || value > max {
		return 0, fieldError(key, "must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return value, nil
}

// ParsePagination reads limit and cursor query parameters.
func ParsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: SanitizeString(r.URL.Query().Get("cursor"), 256),
	}, nil
}

// ParseQueryTime reads an RFC3339 timestamp; a blank value is rejected.
func ParseQueryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, fieldError(key, "is required")
	}
	value, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fieldError(key, "must be an RFC3339 timestamp")
	}
	return value.UTC(), nil
}

// ParseQueryUUID reads an optional uuid query parameter.
func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fieldError(key, "must be a valid uuid")
	}
	return &id, nil
}

// URLParamUUID reads a chi path parameter as a uuid.
func URLParamUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fieldError(key, "must be a valid uuid")
	}
	return id, nil
}
