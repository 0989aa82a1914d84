package types

import (
	"strings"

	"github.com/peakrent/peakrent-backend/pkg/validation"
)

// Address is a postal address stored as JSON on carts, orders and stores.
type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// IsZero reports whether no address has been set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Normalize trims whitespace and upper-cases the country code.
func (a Address) Normalize() Address {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	a.Phone = strings.TrimSpace(a.Phone)
	return a
}

// Validate returns the field problems of a normalized address.
func (a Address) Validate() []validation.FieldError {
	var v validation.Errors
	v.Required("full_name", a.FullName)
	v.Required("line1", a.Line1)
	v.Required("city", a.City)
	v.Required("postal_code", a.PostalCode)
	if v.Required("country", a.Country) && len(a.Country) != 2 {
		v.Add("country", "must be a two-letter ISO code")
	}
	v.MaxLen("line2", a.Line2, 200)
	return v.List()
}
