// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	// DateLayout is the calendar date format used for scheduling (YYYY-MM-DD).
	DateLayout = "2006-01-02"
	// ClockLayout is the wall-clock start time format (HH:MM, 24h).
	ClockLayout = "15:04"
)

// Validator wraps the go-playground validator for structured validation.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the scheduling tags registered:
// `isodate` (YYYY-MM-DD) and `clock` (HH:MM).
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("isodate", layoutValidator(DateLayout))
	_ = v.RegisterValidation("clock", layoutValidator(ClockLayout))
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

func layoutValidator(layout string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		parsed, err := time.Parse(layout, value)
		if err != nil {
			return false
		}
		// time.Parse accepts "9:05" for "15:04"; require the canonical form.
		return parsed.Format(layout) == value
	}
}
