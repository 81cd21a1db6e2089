package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// RequestValidator plugs go-playground/validator into Echo so handlers can
// call c.Validate on request DTOs.
type RequestValidator struct {
	v *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
	return rv.v.Struct(i)
}

// fieldErrors flattens validator output into field -> tag pairs.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out[fe.Field()] = msg
	}
	return out
}

// bindAndValidate binds the body into req and validates it.  It writes
// the 400/422 response itself and reports whether the caller may go on.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(400, echo.Map{"error": "invalid body", "code": "bad_request"})
	}
	if err := c.Validate(req); err != nil {
		fields := fieldErrors(err)
		if fields == nil {
			return false, c.JSON(400, echo.Map{"error": "invalid body", "code": "bad_request"})
		}
		return false, c.JSON(422, echo.Map{"error": "validation failed", "code": "validation_failed", "fields": fields})
	}
	return true, nil
}
