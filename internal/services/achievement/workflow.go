package achievement

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/mcoot/crickettalent/internal/dependencies/clock"
	"github.com/mcoot/crickettalent/internal/dependencies/random"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
)

// MaxFeedbackLength bounds reviewer feedback
const MaxFeedbackLength = 2000

// Workflow owns the achievement lifecycle: submission by a player, then a
// single review by a coach or admin that moves it to approved or rejected.
type Workflow struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewWorkflow creates a new Workflow
func NewWorkflow(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Workflow {
	return &Workflow{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "achievement-workflow")),
	}
}

// Submit records a new pending achievement for a player.
// Players may only submit for themselves.
func (w *Workflow) Submit(ctx context.Context, actor model.Actor, playerID model.AccountID, draft model.AchievementDraft) (*model.Achievement, error) {
	if actor.Kind != model.KindPlayer || !actor.Is(playerID) {
		return nil, model.ErrPermissionDenied
	}

	now := w.clock.Now()
	a, err := draft.Validate(now)
	if err != nil {
		return nil, err
	}
	a.ID = model.AchievementID(w.random.ID())
	a.PlayerID = playerID
	a.SubmittedBy = actor.ID
	a.SubmittedAt = now

	if err := w.storage.CreateAchievement(ctx, a); err != nil {
		w.logger.Error("failed to save achievement",
			slog.String("player_id", string(playerID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	w.logger.Info("achievement submitted",
		slog.String("achievement_id", string(a.ID)),
		slog.String("player_id", string(playerID)),
		slog.String("category", string(a.Category)),
		slog.String("tier", string(a.Tier)),
	)

	return a, nil
}

// Approve moves a pending achievement to approved
func (w *Workflow) Approve(ctx context.Context, actor model.Actor, id model.AchievementID, note string) (*model.Achievement, error) {
	return w.transition(ctx, actor, id, model.StatusApproved, note)
}

// Reject moves a pending achievement to rejected, recording the feedback verbatim
func (w *Workflow) Reject(ctx context.Context, actor model.Actor, id model.AchievementID, feedback string) (*model.Achievement, error) {
	return w.transition(ctx, actor, id, model.StatusRejected, feedback)
}

// Review dispatches to Approve or Reject by target status
func (w *Workflow) Review(ctx context.Context, actor model.Actor, id model.AchievementID, status model.AchievementStatus, feedback string) (*model.Achievement, error) {
	switch status {
	case model.StatusApproved:
		return w.Approve(ctx, actor, id, feedback)
	case model.StatusRejected:
		return w.Reject(ctx, actor, id, feedback)
	default:
		return nil, model.NewValidationError("status", "must be approved or rejected")
	}
}

func (w *Workflow) transition(ctx context.Context, actor model.Actor, id model.AchievementID, to model.AchievementStatus, feedback string) (*model.Achievement, error) {
	if !actor.IsReviewer() {
		return nil, model.ErrPermissionDenied
	}
	if utf8.RuneCountInString(feedback) > MaxFeedbackLength {
		return nil, model.NewValidationError("feedback", "is too long")
	}

	current, err := w.storage.GetAchievement(ctx, id)
	if err != nil {
		return nil, err
	}
	// Nobody reviews their own submission
	if current.SubmittedBy == actor.ID {
		return nil, model.ErrPermissionDenied
	}
	if !current.IsPending() {
		return nil, model.ErrInvalidTransition
	}

	updated, err := w.storage.TransitionAchievement(ctx, id, to, actor.ID, w.clock.Now(), feedback)
	if err != nil {
		w.logger.Info("achievement review refused",
			slog.String("achievement_id", string(id)),
			slog.String("reviewer_id", string(actor.ID)),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	w.logger.Info("achievement reviewed",
		slog.String("achievement_id", string(id)),
		slog.String("player_id", string(updated.PlayerID)),
		slog.String("reviewer_id", string(actor.ID)),
		slog.String("status", string(to)),
	)

	return updated, nil
}

// PendingForReview lists pending achievements oldest-submitted first,
// optionally limited to one category. Coaches and admins only.
func (w *Workflow) PendingForReview(ctx context.Context, actor model.Actor, category model.Category) ([]*model.Achievement, error) {
	if !actor.IsReviewer() {
		return nil, model.ErrPermissionDenied
	}
	return w.storage.ListAchievements(ctx, model.AchievementFilter{
		Category: category,
		Status:   model.StatusPending,
	})
}

// List returns achievements matching the filter that the actor may see.
// Approved achievements are public. The owner, their linked guardians,
// coaches and admins also see pending and rejected ones.
func (w *Workflow) List(ctx context.Context, actor model.Actor, filter model.AchievementFilter) ([]*model.Achievement, error) {
	full := actor.IsReviewer()
	if !full && filter.PlayerID != "" {
		var err error
		if full, err = w.canSeeAll(ctx, actor, filter.PlayerID); err != nil {
			return nil, err
		}
	}

	if !full {
		if filter.Status != "" && filter.Status != model.StatusApproved {
			return []*model.Achievement{}, nil
		}
		filter.Status = model.StatusApproved
	}

	return w.storage.ListAchievements(ctx, filter)
}

// Get returns one achievement under the same visibility rule as List.
// Hidden achievements are reported as not found.
func (w *Workflow) Get(ctx context.Context, actor model.Actor, id model.AchievementID) (*model.Achievement, error) {
	a, err := w.storage.GetAchievement(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == model.StatusApproved {
		return a, nil
	}

	visible, err := w.canSeeAll(ctx, actor, a.PlayerID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, model.ErrNotFound
	}
	return a, nil
}

func (w *Workflow) canSeeAll(ctx context.Context, actor model.Actor, playerID model.AccountID) (bool, error) {
	switch {
	case actor.IsReviewer(), actor.Is(playerID):
		return true, nil
	case actor.Kind == model.KindParent:
		return w.storage.LinkExists(ctx, actor.ID, playerID)
	default:
		return false, nil
	}
}
