package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressNormalizeAndValidate(t *testing.T) {
	addr := Address{
		FullName:   " Ana Müller ",
		Line1:      "Talstrasse 4",
		City:       "Innsbruck",
		PostalCode: "6020",
		Country:    "at",
	}.Normalize()

	assert.Equal(t, "AT", addr.Country)
	assert.Equal(t, "Ana Müller", addr.FullName)
	assert.Empty(t, addr.Validate())
	assert.False(t, addr.IsZero())
}

func TestAddressValidateReportsFields(t *testing.T) {
	errs := Address{Country: "AUT"}.Validate()
	require.Len(t, errs, 5)

	fields := make([]string, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"full_name", "line1", "city", "postal_code", "country"}, fields)
	assert.True(t, Address{}.IsZero())
}
