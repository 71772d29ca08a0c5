package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/crickettalent/internal/dependencies/clock"
	"github.com/mcoot/crickettalent/internal/dependencies/random"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
)

// maxIssueAttempts bounds retries when a generated code collides with an existing one
const maxIssueAttempts = 10

// PlayerIdentity is the public identity of a linked player
type PlayerIdentity struct {
	ID          model.AccountID
	DisplayName string
}

// RedeemResult is returned by a successful redemption
type RedeemResult struct {
	Link   *model.GuardianLink
	Player PlayerIdentity
}

// Config holds configuration for the registry
type Config struct {
	CodeTTL time.Duration
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{CodeTTL: model.DefaultAccessCodeTTL}
}

// Registry issues access codes to players and redeems them into guardian links
type Registry struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	codeTTL time.Duration
}

// NewRegistry creates a new Registry
func NewRegistry(
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	cfg Config,
	logger *slog.Logger,
) *Registry {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultConfig().CodeTTL
	}
	return &Registry{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "link-registry")),
		codeTTL: cfg.CodeTTL,
	}
}

// IssueCode generates a fresh access code for a player.
// Only the player themself may issue; any earlier outstanding code stops
// being redeemable.
func (r *Registry) IssueCode(ctx context.Context, actor model.Actor, playerID model.AccountID) (*model.AccessCode, error) {
	if actor.Kind != model.KindPlayer || !actor.Is(playerID) {
		return nil, model.ErrPermissionDenied
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		now := r.clock.Now()
		code := &model.AccessCode{
			Code:      r.random.String(model.AccessCodeLength, model.AccessCodeAlphabet),
			OwnerID:   playerID,
			CreatedAt: now,
			ExpiresAt: now.Add(r.codeTTL),
		}

		err := r.storage.CreateAccessCode(ctx, code)
		if errors.Is(err, model.ErrCodeTaken) {
			continue
		}
		if err != nil {
			r.logger.Error("failed to store access code",
				slog.String("player_id", string(playerID)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		r.logger.Info("access code issued",
			slog.String("player_id", string(playerID)),
			slog.Time("expires_at", code.ExpiresAt),
		)
		return code, nil
	}

	return nil, fmt.Errorf("could not generate a unique access code after %d attempts", maxIssueAttempts)
}

// CurrentCode returns the player's outstanding code, or model.ErrNotFound
func (r *Registry) CurrentCode(ctx context.Context, actor model.Actor) (*model.AccessCode, error) {
	if actor.Kind != model.KindPlayer {
		return nil, model.ErrPermissionDenied
	}
	return r.storage.GetOutstandingAccessCode(ctx, actor.ID, r.clock.Now())
}

// RedeemCode consumes a code on behalf of a guardian and links them to its owner.
// Codes are matched case-insensitively; an empty relationship means parent.
func (r *Registry) RedeemCode(ctx context.Context, actor model.Actor, code string, relationship model.Relationship) (*RedeemResult, error) {
	if actor.Kind != model.KindParent {
		return nil, model.ErrPermissionDenied
	}
	relationship, err := model.ParseRelationship(string(relationship))
	if err != nil {
		return nil, err
	}

	code = model.NormalizeCode(code)
	if code == "" {
		return nil, model.ErrNotFound
	}

	link, err := r.storage.RedeemAccessCode(ctx, code, actor.ID, relationship, r.clock.Now())
	if err != nil {
		r.logger.Info("access code redemption refused",
			slog.String("guardian_id", string(actor.ID)),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}

	r.logger.Info("guardian linked",
		slog.String("guardian_id", string(link.GuardianID)),
		slog.String("player_id", string(link.PlayerID)),
		slog.String("relationship", string(link.Relationship)),
	)

	player := PlayerIdentity{ID: link.PlayerID}
	if account, err := r.storage.GetAccount(ctx, link.PlayerID); err == nil {
		player.DisplayName = account.DisplayName
	}

	return &RedeemResult{Link: link, Player: player}, nil
}

// ListLinksFor returns every link where the account is guardian or player.
// Accounts may list their own links; admins may list anyone's.
func (r *Registry) ListLinksFor(ctx context.Context, actor model.Actor, accountID model.AccountID) ([]*model.GuardianLink, error) {
	if !actor.Is(accountID) && actor.Kind != model.KindAdmin {
		return nil, model.ErrPermissionDenied
	}
	return r.storage.ListLinksForAccount(ctx, accountID)
}

// IsGuardianOf reports whether the guardian is linked to the player
func (r *Registry) IsGuardianOf(ctx context.Context, guardian, player model.AccountID) (bool, error) {
	return r.storage.LinkExists(ctx, guardian, player)
}

// PurgeExpired deletes unconsumed codes that expired more than one code TTL
// ago. Until then redeeming them still reports ErrExpired.
func (r *Registry) PurgeExpired(ctx context.Context) (int, error) {
	n, err := r.storage.DeleteExpiredAccessCodes(ctx, r.clock.Now().Add(-r.codeTTL))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info("expired access codes purged", slog.Int("count", n))
	}
	return n, nil
}
