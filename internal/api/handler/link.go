package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/crickettalent/internal/api/middleware"
	"github.com/mcoot/crickettalent/internal/api/request"
	"github.com/mcoot/crickettalent/internal/api/response"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/services/linking"
)

// LinkHandler handles access code and guardian link endpoints
type LinkHandler struct {
	registry *linking.Registry
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(registry *linking.Registry) *LinkHandler {
	return &LinkHandler{
		registry: registry,
	}
}

// IssueCode handles POST /api/v1/access-codes
func (h *LinkHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	code, err := h.registry.IssueCode(r.Context(), actor, actor.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AccessCodeFromModel(code))
}

// CurrentCode handles GET /api/v1/access-codes/current
func (h *LinkHandler) CurrentCode(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	code, err := h.registry.CurrentCode(r.Context(), actor)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AccessCodeFromModel(code))
}

// RedeemCode handles POST /api/v1/access-codes/{code}/redeem
func (h *LinkHandler) RedeemCode(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())
	code := mux.Vars(r)["code"]

	// Body is optional; relationship defaults to parent
	var req request.RedeemCodeRequest
	if err := decodeBody(w, r, &req, true); err != nil {
		WriteError(w, err)
		return
	}

	relationship, err := model.ParseRelationship(req.Relationship)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.registry.RedeemCode(r.Context(), actor, code, relationship)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RedeemResponseFromResult(result))
}

// ListLinks handles GET /api/v1/links
// Admins may pass ?account_id= to list another account's links.
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	accountID := actor.ID
	if id := r.URL.Query().Get("account_id"); id != "" {
		accountID = model.AccountID(id)
	}

	links, err := h.registry.ListLinksFor(r.Context(), actor, accountID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GuardianLinksFromModel(links))
}
