// Package validation collects field-level errors from explicit checks over
// plain request data.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	pkgerrors "github.com/peakrent/peakrent-backend/pkg/errors"
)

// FieldError is a single problem with a named input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors accumulates FieldErrors. The zero value is ready to use.
type Errors struct {
	items []FieldError
}

func (e *Errors) Add(field, message string) {
	e.items = append(e.items, FieldError{Field: field, Message: message})
}

func (e *Errors) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

// Merge appends errors produced by a nested check, prefixing their fields.
func (e *Errors) Merge(prefix string, other []FieldError) {
	for _, fe := range other {
		field := fe.Field
		if prefix != "" {
			field = prefix + "." + field
		}
		e.Add(field, fe.Message)
	}
}

func (e *Errors) List() []FieldError {
	if len(e.items) == 0 {
		return nil
	}
	out := make([]FieldError, len(e.items))
	copy(out, e.items)
	return out
}

func (e *Errors) Empty() bool {
	return len(e.items) == 0
}

// Err returns nil when no errors were recorded, otherwise a VALIDATION_ERROR
// carrying the field list as details.
func (e *Errors) Err() error {
	if e.Empty() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid request").WithDetails(e.List())
}

func (e *Errors) Required(field, value string) bool {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "is required")
		return false
	}
	return true
}

func (e *Errors) MaxLen(field, value string, max int) bool {
	if len(value) > max {
		e.Addf(field, "must be at most %d characters", max)
		return false
	}
	return true
}

func (e *Errors) Email(field, value string) bool {
	if _, err := mail.ParseAddress(value); err != nil || !strings.Contains(value, "@") {
		e.Add(field, "must be a valid email")
		return false
	}
	return true
}

func (e *Errors) Positive(field string, value int64) bool {
	if value <= 0 {
		e.Add(field, "must be greater than zero")
		return false
	}
	return true
}

func (e *Errors) NonNegative(field string, value int64) bool {
	if value < 0 {
		e.Add(field, "must not be negative")
		return false
	}
	return true
}

func (e *Errors) Between(field string, value, min, max int64) bool {
	if value < min || value > max {
		e.Addf(field, "must be between %d and %d", min, max)
		return false
	}
	return true
}

// Window checks that start is strictly before end. Nil bounds are open.
func (e *Errors) Window(startField, endField string, start, end *time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	if !start.Before(*end) {
		e.Addf(endField, "must be after %s", startField)
		return false
	}
	return true
}

func (e *Errors) OneOf(field, value string, allowed ...string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	e.Addf(field, "must be one of %s", strings.Join(allowed, ", "))
	return false
}

// Details extracts the field list from a VALIDATION_ERROR, if any.
func Details(err error) []FieldError {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		return nil
	}
	list, _ := typed.Details().([]FieldError)
	return list
}
