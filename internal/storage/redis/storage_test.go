package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
	"github.com/mcoot/crickettalent/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	mini    *miniredis.Miniredis
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage {
		s.mini = miniredis.RunT(s.T())
		client := redis.NewClient(&redis.Options{Addr: s.mini.Addr()})
		s.storage = NewWithClient(client, DefaultConfig())
		return s.storage
	}
	suite.Run(t, s)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}

func (s *StorageSuite) TestAccessCodeStoredAsHash() {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.CreateAccessCode(ctx, &model.AccessCode{
		Code:      "ABCD2345",
		OwnerID:   "player-1",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	s.True(s.mini.Exists("cricket:code:ABCD2345"))
	s.Equal("player-1", s.mini.HGet("cricket:code:ABCD2345", "owner"))
	s.Equal(toMillis(now.Add(time.Hour)), s.mini.HGet("cricket:code:ABCD2345", "expires_at"))
	s.Equal("", s.mini.HGet("cricket:code:ABCD2345", "consumed_at"))

	pointer, err := s.mini.Get(ownerCodeKey("player-1"))
	s.Require().NoError(err)
	s.Equal("ABCD2345", pointer)
}

func (s *StorageSuite) TestRedeemRemovesCodeFromExpiryIndex() {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.CreateAccessCode(ctx, &model.AccessCode{
		Code:      "ABCD2345",
		OwnerID:   "player-1",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	members, err := s.mini.ZMembers(codeExpiryIndexKey())
	s.Require().NoError(err)
	s.Contains(members, "ABCD2345")

	_, err = s.storage.RedeemAccessCode(ctx, "ABCD2345", "parent-1", model.RelationshipParent, now.Add(time.Minute))
	s.Require().NoError(err)

	members, err = s.mini.ZMembers(codeExpiryIndexKey())
	s.Require().NoError(err)
	s.NotContains(members, "ABCD2345")
	s.True(s.mini.Exists(linkKey("parent-1", "player-1")))
}

func (s *StorageSuite) TestTransitionBumpsStatsVersionKey() {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.CreateAchievement(ctx, &model.Achievement{
		ID:          "ach-1",
		PlayerID:    "player-1",
		SubmittedBy: "player-1",
		Category:    model.CategoryFielding,
		Tier:        model.TierSilver,
		Status:      model.StatusPending,
		Title:       "Three catches",
		SubmittedAt: now,
	}))

	pending, err := s.mini.ZMembers(pendingAchievementsIndexKey())
	s.Require().NoError(err)
	s.Equal([]string{"ach-1"}, pending)

	_, err = s.storage.TransitionAchievement(ctx, "ach-1", model.StatusApproved, "coach-1", now.Add(time.Hour), "")
	s.Require().NoError(err)

	version, err := s.mini.Get(statsVersionKey("player-1"))
	s.Require().NoError(err)
	s.Equal("1", version)
	s.Equal("approved", s.mini.HGet(achievementKey("ach-1"), "status"))

	pending, err = s.mini.ZMembers(pendingAchievementsIndexKey())
	if err == nil {
		s.Empty(pending)
	}
}

func (s *StorageSuite) TestCreateAccountTakenUsernameWritesNothing() {
	ctx := context.Background()
	s.Require().NoError(s.mini.Set(usernameIndexKey("junior"), "player-0"))

	err := s.storage.CreateAccount(ctx, &model.Account{
		ID:       "player-1",
		Username: "Junior",
		Kind:     model.KindPlayer,
	})
	s.ErrorIs(err, model.ErrUsernameTaken)
	s.False(s.mini.Exists(accountKey("player-1")))

	owner, err := s.mini.Get(usernameIndexKey("junior"))
	s.Require().NoError(err)
	s.Equal("player-0", owner)
}

func (s *StorageSuite) TestCreateAccountWritesIndexAndRecord() {
	ctx := context.Background()
	s.Require().NoError(s.storage.CreateAccount(ctx, &model.Account{
		ID:       "player-1",
		Username: "Junior",
		Kind:     model.KindPlayer,
	}))

	owner, err := s.mini.Get(usernameIndexKey("junior"))
	s.Require().NoError(err)
	s.Equal("player-1", owner)
	s.True(s.mini.Exists(accountKey("player-1")))
}

func (s *StorageSuite) TestIssueScriptRetriesWhenOwnerCodeMoved() {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.mini.Set(ownerCodeKey("player-1"), "MOVED234"))

	res, err := issueCodeScript.Run(ctx, s.storage.client,
		[]string{accessCodeKey("NEWC2345"), ownerCodeKey("player-1"), codeExpiryIndexKey()},
		"NEWC2345", "player-1", toMillis(now), toMillis(now.Add(time.Hour)), "",
	).Text()
	s.Require().NoError(err)
	s.Equal(resultRetry, res)
	s.False(s.mini.Exists(accessCodeKey("NEWC2345")))

	pointer, err := s.mini.Get(ownerCodeKey("player-1"))
	s.Require().NoError(err)
	s.Equal("MOVED234", pointer)
}

func (s *StorageSuite) TestReissueInvalidatesPreviousCodeHash() {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.storage.CreateAccessCode(ctx, &model.AccessCode{
		Code: "OLDC2345", OwnerID: "player-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	s.Require().NoError(s.storage.CreateAccessCode(ctx, &model.AccessCode{
		Code: "NEWC2345", OwnerID: "player-1", CreatedAt: now.Add(time.Minute), ExpiresAt: now.Add(time.Hour + time.Minute),
	}))

	s.Equal(toMillis(now.Add(time.Minute)), s.mini.HGet(accessCodeKey("OLDC2345"), "expires_at"))
	s.Equal(toMillis(now.Add(time.Minute)), s.mini.HGet(accessCodeKey("OLDC2345"), "invalidated_at"))

	pointer, err := s.mini.Get(ownerCodeKey("player-1"))
	s.Require().NoError(err)
	s.Equal("NEWC2345", pointer)
}
