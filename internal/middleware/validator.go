package middleware

import (
    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator so handlers can
// call c.Validate on bound request structs.
type Validator struct {
    v *validator.Validate
}

var _ echo.Validator = (*Validator)(nil)

func NewValidator() *Validator { return &Validator{v: validator.New(validator.WithRequiredStructEnabled())} }

func (cv *Validator) Validate(i interface{}) error { return cv.v.Struct(i) }
