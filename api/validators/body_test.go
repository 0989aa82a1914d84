package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/peakrent/peakrent-backend/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleBody struct {
	Email    string `json:"email" validate:"required,email"`
	Quantity int    `json:"quantity" validate:"min=1,max=5"`
	Nested   struct {
		City string `json:"city" validate:"required"`
	} `json:"nested"`
}

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest sampleBody
	err := DecodeJSONBody(newRequest(`{"email":"a@b.co","quantity":1,"extra":true}`), &dest)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	var dest sampleBody
	err := DecodeJSONBody(newRequest(""), &dest)
	require.Error(t, err)
	details := validation.Details(err)
	require.Len(t, details, 1)
	assert.Equal(t, "body", details[0].Field)
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	var dest sampleBody
	err := DecodeJSONBody(newRequest(`{"email":"nope","quantity":9,"nested":{}}`), &dest)
	require.Error(t, err)

	details := validation.Details(err)
	fields := map[string]string{}
	for _, d := range details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "must be a valid email", fields["email"])
	assert.Equal(t, "must be at most 5", fields["quantity"])
	assert.Equal(t, "is required", fields["nested.city"])
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&cursor=abc", nil)
	params, err := ParsePagination(req)
	require.NoError(t, err)
	assert.Equal(t, 10, params.Limit)
	assert.Equal(t, "abc", params.Cursor)

	req = httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	_, err = ParsePagination(req)
	require.Error(t, err)
	assert.Equal(t, "limit", validation.Details(err)[0].Field)
}

func TestParseQueryTime(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?start=2026-02-14T09:00:00%2B01:00", nil)
	value, err := ParseQueryTime(req, "start")
	require.NoError(t, err)
	assert.Equal(t, 8, value.Hour())

	_, err = ParseQueryTime(req, "end")
	require.Error(t, err)
}

func TestURLParamUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	_, err := URLParamUUID(req, "orderId")
	require.Error(t, err)
	assert.Equal(t, "orderId", validation.Details(err)[0].Field)
}
