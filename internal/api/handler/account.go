package handler

import (
	"net/http"

	"github.com/mcoot/crickettalent/internal/api/middleware"
	"github.com/mcoot/crickettalent/internal/api/request"
	"github.com/mcoot/crickettalent/internal/api/response"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/services/auth"
)

// AccountHandler handles account endpoints
type AccountHandler struct {
	authService *auth.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(authService *auth.Service) *AccountHandler {
	return &AccountHandler{
		authService: authService,
	}
}

// Register handles POST /api/v1/accounts/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	kind, err := model.ParseActorKind(req.Kind)
	if err != nil {
		WriteError(w, err)
		return
	}

	session, err := h.authService.Register(r.Context(), req.Username, req.Password, req.DisplayName, kind)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/accounts/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	if req.Username == "" || req.Password == "" {
		WriteError(w, NewInvalidRequestError("username and password are required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/accounts/me
func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	account, err := h.authService.GetAccount(r.Context(), actor.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccountFromModel(account))
}
