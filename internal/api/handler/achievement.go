package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/crickettalent/internal/api/middleware"
	"github.com/mcoot/crickettalent/internal/api/request"
	"github.com/mcoot/crickettalent/internal/api/response"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/services/achievement"
	"github.com/mcoot/crickettalent/internal/services/stats"
)

// AchievementHandler handles achievement submission, review and stats endpoints
type AchievementHandler struct {
	workflow   *achievement.Workflow
	aggregator *stats.Aggregator
}

// NewAchievementHandler creates a new achievement handler
func NewAchievementHandler(workflow *achievement.Workflow, aggregator *stats.Aggregator) *AchievementHandler {
	return &AchievementHandler{
		workflow:   workflow,
		aggregator: aggregator,
	}
}

// Submit handles POST /api/v1/achievements
func (h *AchievementHandler) Submit(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	var req request.SubmitAchievementRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	draft, err := req.Draft()
	if err != nil {
		WriteError(w, err)
		return
	}

	playerID := actor.ID
	if req.PlayerID != "" {
		playerID = model.AccountID(req.PlayerID)
	}

	a, err := h.workflow.Submit(r.Context(), actor, playerID, draft)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, "/api/v1/achievements/"+string(a.ID), response.AchievementFromModel(a))
}

// List handles GET /api/v1/achievements?player_id=&category=&tier=&status=
func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())
	q := r.URL.Query()

	filter := model.AchievementFilter{PlayerID: model.AccountID(q.Get("player_id"))}
	var err error
	if v := q.Get("category"); v != "" {
		if filter.Category, err = model.ParseCategory(v); err != nil {
			WriteError(w, err)
			return
		}
	}
	if v := q.Get("tier"); v != "" {
		if filter.Tier, err = model.ParseTier(v); err != nil {
			WriteError(w, err)
			return
		}
	}
	if v := q.Get("status"); v != "" {
		if filter.Status, err = model.ParseStatus(v); err != nil {
			WriteError(w, err)
			return
		}
	}

	list, err := h.workflow.List(r.Context(), actor, filter)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AchievementsFromModel(list))
}

// Get handles GET /api/v1/achievements/{id}
func (h *AchievementHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())
	id := model.AchievementID(mux.Vars(r)["id"])

	a, err := h.workflow.Get(r.Context(), actor, id)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AchievementFromModel(a))
}

// Pending handles GET /api/v1/achievements/pending?category=
func (h *AchievementHandler) Pending(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())

	var category model.Category
	if v := r.URL.Query().Get("category"); v != "" {
		parsed, err := model.ParseCategory(v)
		if err != nil {
			WriteError(w, err)
			return
		}
		category = parsed
	}

	list, err := h.workflow.PendingForReview(r.Context(), actor, category)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AchievementsFromModel(list))
}

// Review handles PUT /api/v1/achievements/{id}/review
func (h *AchievementHandler) Review(w http.ResponseWriter, r *http.Request) {
	actor := middleware.MustGetActor(r.Context())
	id := model.AchievementID(mux.Vars(r)["id"])

	var req request.ReviewRequest
	if err := decodeBody(w, r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	status, err := model.ParseStatus(req.Status)
	if err != nil {
		WriteError(w, err)
		return
	}

	a, err := h.workflow.Review(r.Context(), actor, id, status, req.Feedback)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AchievementFromModel(a))
}

// Stats handles GET /api/v1/achievements/stats/{playerId}
func (h *AchievementHandler) Stats(w http.ResponseWriter, r *http.Request) {
	playerID := model.AccountID(mux.Vars(r)["playerId"])

	summary, err := h.aggregator.Summarize(r.Context(), playerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.StatsSummaryFromModel(summary))
}
