package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/field-interventions/internal/middleware"
	"github.com/iliyamo/field-interventions/internal/model"
	"github.com/iliyamo/field-interventions/internal/service"
	"github.com/iliyamo/field-interventions/internal/signature"
)

// InterventionHandler exposes the intervention store over HTTP.
type InterventionHandler struct {
	Svc     *service.InterventionService
	Log     zerolog.Logger
	Timeout time.Duration
}

func NewInterventionHandler(svc *service.InterventionService, log zerolog.Logger, timeout time.Duration) *InterventionHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &InterventionHandler{Svc: svc, Log: log.With().Str("component", "interventions").Logger(), Timeout: timeout}
}

// createReq is a create payload with an optional signature captured on
// the same form.
type createReq struct {
	service.CreateInput
	service.SignatureInput
}

type itemResp struct {
	Item           model.Intervention `json:"item"`
	SignatureError *errorBody         `json:"signature_error,omitempty"`
}

func (h *InterventionHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// Preview computes totals for an unsaved form.
// POST /v1/interventions/totals
func (h *InterventionHandler) Preview(c echo.Context) error {
	var in service.PreviewInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body", Code: "bad_request"})
	}
	totals, err := h.Svc.Preview(in)
	if err != nil {
		return writeServiceError(c, h.Log, err, false)
	}
	return c.JSON(http.StatusOK, totals)
}

// Create stores a DRAFT record.  When the form carries a signature the
// record is signed right away; a signing failure still answers 201 with
// the DRAFT record and a signature_error the client can retry from.
// POST /v1/interventions
func (h *InterventionHandler) Create(c echo.Context) error {
	var req createReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid body", Code: "bad_request"})
	}
	caller := middleware.CallerFrom(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	if req.SignatureInput.Empty() {
		rec, err := h.Svc.Create(ctx, caller, req.CreateInput)
		if err != nil {
			return writeServiceError(c, h.Log, err, false)
		}
		return c.JSON(http.StatusCreated, itemResp{Item: rec})
	}

	rec, err := h.Svc.CreateAndSign(ctx, caller, req.CreateInput, req.SignatureInput)
	if err != nil {
		if rec.ID == "" {
			return writeServiceError(c, h.Log, err, false)
		}
		body := signatureErrorBody(err)
		return c.JSON(http.StatusCreated, itemResp{Item: rec, SignatureError: &body})
	}
	return c.JSON(http.StatusCreated, itemResp{Item: rec})
}

// Sign locks a DRAFT record with a signature.  The body is either JSON
// ({"signature": "data:image/png;base64,..."} or {"strokes": [...]}) or a
// raw image/png upload.
// POST /v1/interventions/:id/sign
func (h *InterventionHandler) Sign(c echo.Context) error {
	sig, err := readSignature(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "bad_request"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	rec, err := h.Svc.Sign(ctx, middleware.CallerFrom(c), c.Param("id"), sig)
	if err != nil {
		return writeServiceError(c, h.Log, err, false)
	}
	return c.JSON(http.StatusOK, itemResp{Item: rec})
}

// Get returns one record with full details.
// GET /v1/interventions/:id
func (h *InterventionHandler) Get(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	rec, err := h.Svc.Get(ctx, middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		return writeServiceError(c, h.Log, err, true)
	}
	return c.JSON(http.StatusOK, itemResp{Item: rec})
}

// Signature streams the stored signature image of a LOCKED record.
// GET /v1/interventions/:id/signature
func (h *InterventionHandler) Signature(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	img, err := h.Svc.Signature(ctx, middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		return writeServiceError(c, h.Log, err, true)
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=60")
	return c.Blob(http.StatusOK, "image/png", img)
}

// List returns the caller's records, newest first.
// GET /v1/interventions?q=&status=&page=&page_size=
func (h *InterventionHandler) List(c echo.Context) error {
	in, err := listInput(c, false)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "bad_request"})
	}
	return h.list(c, in)
}

func (h *InterventionHandler) list(c echo.Context, in service.ListInput) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	page, err := h.Svc.List(ctx, middleware.CallerFrom(c), in)
	if err != nil {
		return writeServiceError(c, h.Log, err, true)
	}
	return c.JSON(http.StatusOK, page)
}

// listInput reads list filters from the query string.  Missing or
// malformed page numbers fall back to the defaults.
func listInput(c echo.Context, withOwner bool) (service.ListInput, error) {
	in := service.ListInput{
		Query:  strings.TrimSpace(c.QueryParam("q")),
		Status: strings.TrimSpace(c.QueryParam("status")),
	}
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		in.Page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("page_size")); err == nil {
		in.PageSize = v
	}
	if withOwner {
		if raw := strings.TrimSpace(c.QueryParam("owner_id")); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				return in, errInvalidOwner
			}
			in.OwnerID = &id
		}
	}
	return in, nil
}

type handlerError string

func (e handlerError) Error() string { return string(e) }

const (
	errInvalidOwner   handlerError = "invalid owner_id"
	errSignatureBody  handlerError = "invalid signature body"
	errSignatureLarge handlerError = "signature image too large"
)

// readSignature extracts a signature from the request body in any of the
// accepted shapes.
func readSignature(c echo.Context) (service.SignatureInput, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, "image/png") {
		b, err := io.ReadAll(io.LimitReader(c.Request().Body, signature.MaxBytes+1))
		if err != nil {
			return service.SignatureInput{}, errSignatureBody
		}
		if len(b) > signature.MaxBytes {
			return service.SignatureInput{}, errSignatureLarge
		}
		return service.SignatureInput{PNG: b}, nil
	}
	var sig service.SignatureInput
	if err := c.Bind(&sig); err != nil {
		return service.SignatureInput{}, errSignatureBody
	}
	return sig, nil
}
