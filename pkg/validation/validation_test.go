package validation

import (
	"testing"
	"time"

	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrNilWhenEmpty(t *testing.T) {
	var v Errors
	assert.True(t, v.Required("code", "SKI20"))
	assert.True(t, v.Positive("quantity", 2))
	assert.NoError(t, v.Err())
}

func TestErrCarriesFieldList(t *testing.T) {
	var v Errors
	v.Required("code", "  ")
	v.Between("amount", 150, 1, 100)
	v.Email("email", "not-an-email")

	err := v.Err()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	details := Details(err)
	require.Len(t, details, 3)
	assert.Equal(t, FieldError{Field: "code", Message: "is required"}, details[0])
	assert.Equal(t, "amount", details[1].Field)
	assert.Equal(t, "email", details[2].Field)
}

func TestWindow(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	var v Errors
	assert.True(t, v.Window("startsAt", "endsAt", &start, &end))
	assert.True(t, v.Window("startsAt", "endsAt", nil, &end))
	assert.False(t, v.Window("startsAt", "endsAt", &end, &start))
	assert.False(t, v.Window("startsAt", "endsAt", &start, &start))

	details := v.List()
	require.Len(t, details, 2)
	assert.Equal(t, "endsAt", details[0].Field)
}

func TestMergePrefixesNestedFields(t *testing.T) {
	var v Errors
	v.Merge("address", []FieldError{{Field: "city", Message: "is required"}})
	assert.Equal(t, []FieldError{{Field: "address.city", Message: "is required"}}, v.List())
}

func TestOneOf(t *testing.T) {
	var v Errors
	assert.True(t, v.OneOf("type", "fixed", "percentage", "fixed"))
	assert.False(t, v.OneOf("type", "bogus", "percentage", "fixed"))
	assert.Equal(t, "must be one of percentage, fixed", v.List()[0].Message)
}

func TestDetailsIgnoresOtherCodes(t *testing.T) {
	assert.Nil(t, Details(pkgerrors.New(pkgerrors.CodeNotFound, "missing")))
	assert.Nil(t, Details(nil))
}
