package stats

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
)

// DefaultCacheSize is the number of player summaries kept in memory
const DefaultCacheSize = 1024

type cacheKey struct {
	player  model.AccountID
	version int64
}

// Aggregator derives per-player statistics from approved achievements.
// Summaries are cached by the player's stats version, which storage bumps
// on every review, so a cached entry is never served after a transition.
type Aggregator struct {
	storage storage.Storage
	cache   *lru.Cache[cacheKey, *model.AchievementStatsSummary]
	logger  *slog.Logger
}

// NewAggregator creates an Aggregator. A cacheSize of zero or less disables caching.
func NewAggregator(storage storage.Storage, cacheSize int, logger *slog.Logger) (*Aggregator, error) {
	a := &Aggregator{
		storage: storage,
		logger:  logger.With(slog.String("component", "stats-aggregator")),
	}
	if cacheSize > 0 {
		cache, err := lru.New[cacheKey, *model.AchievementStatsSummary](cacheSize)
		if err != nil {
			return nil, err
		}
		a.cache = cache
	}
	return a, nil
}

// Summarize returns the player's statistics over approved achievements only
func (a *Aggregator) Summarize(ctx context.Context, playerID model.AccountID) (*model.AchievementStatsSummary, error) {
	if a.cache == nil {
		return a.compute(ctx, playerID)
	}

	// The version is read before the achievements so a cached summary is
	// never older than the version it is stored under
	version, err := a.storage.StatsVersion(ctx, playerID)
	if err != nil {
		return nil, err
	}
	key := cacheKey{player: playerID, version: version}
	if cached, ok := a.cache.Get(key); ok {
		return cached.Clone(), nil
	}

	summary, err := a.compute(ctx, playerID)
	if err != nil {
		return nil, err
	}
	a.cache.Add(key, summary.Clone())

	a.logger.Debug("stats summary computed",
		slog.String("player_id", string(playerID)),
		slog.Int64("version", version),
		slog.Int("total", summary.Total),
	)

	return summary, nil
}

func (a *Aggregator) compute(ctx context.Context, playerID model.AccountID) (*model.AchievementStatsSummary, error) {
	approved, err := a.storage.ListAchievements(ctx, model.AchievementFilter{
		PlayerID: playerID,
		Status:   model.StatusApproved,
	})
	if err != nil {
		return nil, err
	}

	summary := model.NewAchievementStatsSummary(playerID)
	for _, ach := range approved {
		summary.Add(ach)
	}
	return summary, nil
}
