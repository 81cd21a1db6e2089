package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/field-interventions/internal/service"
)

// errorBody is the JSON shape of every failed intervention call.
type errorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// writeServiceError maps the store's error taxonomy onto HTTP.  On read
// paths a Forbidden is reported as 404 so callers cannot probe for records
// they may not see.
func writeServiceError(c echo.Context, log zerolog.Logger, err error, readPath bool) error {
	var verr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, errorBody{Error: "authentication required", Code: "unauthenticated"})
	case errors.Is(err, service.ErrForbidden) && readPath:
		return c.JSON(http.StatusNotFound, errorBody{Error: "intervention not found", Code: "not_found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorBody{Error: "forbidden", Code: "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody{Error: "intervention not found", Code: "not_found"})
	case errors.As(err, &verr):
		code := "validation_failed"
		if errors.Is(err, service.ErrInvalidAmount) {
			code = "invalid_amount"
		}
		return c.JSON(http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Code: code, Fields: verr.Fields})
	case errors.Is(err, service.ErrAlreadyLocked):
		return c.JSON(http.StatusConflict, errorBody{Error: "intervention is already locked", Code: "already_locked"})
	case errors.Is(err, service.ErrInvalidSignature):
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "invalid_signature"})
	case errors.Is(err, service.ErrStorage):
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "storage temporarily unavailable, retry later", Code: "storage_failure", Retryable: true})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("unmapped error")
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
}

// signatureErrorBody describes a failed sign-at-creation next to the
// created record.
func signatureErrorBody(err error) errorBody {
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return errorBody{Error: err.Error(), Code: "invalid_signature"}
	case errors.Is(err, service.ErrStorage):
		return errorBody{Error: "storage temporarily unavailable, retry signing", Code: "storage_failure", Retryable: true}
	case errors.Is(err, service.ErrAlreadyLocked):
		return errorBody{Error: "intervention is already locked", Code: "already_locked"}
	}
	return errorBody{Error: "signing failed", Code: "internal"}
}
