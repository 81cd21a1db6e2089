package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/field-interventions/internal/model"
	"github.com/iliyamo/field-interventions/internal/repository"
	"github.com/iliyamo/field-interventions/internal/utils"
)

// AdminHandler serves the administrator back office.
type AdminHandler struct {
	Interventions *InterventionHandler
	Users         UserStore
	BcryptCost    int
	Log           zerolog.Logger
}

func NewAdminHandler(ih *InterventionHandler, users UserStore, bcryptCost int, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{Interventions: ih, Users: users, BcryptCost: bcryptCost, Log: log.With().Str("component", "admin").Logger()}
}

// ListInterventions lists every technician's records, optionally narrowed
// to one owner.
// GET /v1/admin/interventions?owner_id=&q=&status=&page=&page_size=
func (h *AdminHandler) ListInterventions(c echo.Context) error {
	in, err := listInput(c, true)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error(), Code: "bad_request"})
	}
	return h.Interventions.list(c, in)
}

type createTechReq struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=120"`
}

// CreateTechnician provisions a technician account.
// POST /v1/admin/technicians
func (h *AdminHandler) CreateTechnician(c echo.Context) error {
	var req createTechReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if err := utils.CheckPasswordPolicy(req.Password); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error": "validation failed", "code": "validation_failed",
			"fields": map[string]string{"password": err.Error()},
		})
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Interventions.Timeout)
	defer cancel()

	id, err := h.Users.Create(ctx, email, req.Password, strings.TrimSpace(req.FullName), model.RoleTech, h.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		h.Log.Error().Err(err).Msg("create technician failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	h.Log.Info().Uint64("user_id", id).Msg("technician provisioned")
	return c.JSON(http.StatusCreated, echo.Map{"user": userPart{ID: id, Email: email, FullName: strings.TrimSpace(req.FullName), Role: model.RoleTech}})
}
