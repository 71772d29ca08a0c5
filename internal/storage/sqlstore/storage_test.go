package sqlstore

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
	"github.com/mcoot/crickettalent/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage {
		s.storage = newTestStorage(s.T())
		return s.storage
	}
	suite.Run(t, s)
}

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.Join(t.TempDir(), "cricket.db"))

	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func (s *StorageSuite) TestUsernameStoredLowerCase() {
	s.Require().NoError(s.storage.CreateAccount(context.Background(), &model.Account{
		ID:        "acc-1",
		Username:  "Alice",
		Kind:      model.KindPlayer,
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}))

	var username string
	s.Require().NoError(s.storage.db.QueryRow(`SELECT username FROM accounts WHERE id = 'acc-1'`).Scan(&username))
	s.Equal("alice", username)
}

func (s *StorageSuite) TestStatsVersionCountsReviewedAchievements() {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := range 3 {
		s.Require().NoError(s.storage.CreateAchievement(ctx, &model.Achievement{
			ID:          model.AchievementID(fmt.Sprintf("ach-%d", i)),
			PlayerID:    "player-1",
			SubmittedBy: "player-1",
			Category:    model.CategoryCareer,
			Tier:        model.TierBronze,
			Status:      model.StatusPending,
			Title:       "Debut",
			SubmittedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}

	_, err := s.storage.TransitionAchievement(ctx, "ach-0", model.StatusApproved, "coach-1", now.Add(time.Hour), "")
	s.Require().NoError(err)
	_, err = s.storage.TransitionAchievement(ctx, "ach-2", model.StatusRejected, "coach-1", now.Add(time.Hour), "")
	s.Require().NoError(err)

	version, err := s.storage.StatsVersion(ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(int64(2), version)
}

func TestRebind(t *testing.T) {
	query := "SELECT * FROM t WHERE a = ? AND b = ?"
	assert.Equal(t, query, DialectSQLite.rebind(query))
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", DialectPostgres.rebind(query))
}
