package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
	"github.com/mcoot/crickettalent/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	s := new(StorageSuite)
	s.NewStorage = func() storage.Storage { return New() }
	suite.Run(t, s)
}

func (s *StorageSuite) TestReturnedRecordsAreCopies() {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	a := &model.Achievement{
		ID:          "ach-1",
		PlayerID:    "player-1",
		SubmittedBy: "player-1",
		Status:      model.StatusPending,
		Title:       "Hat-trick",
		SubmittedAt: now,
	}
	s.Require().NoError(s.Store().CreateAchievement(ctx, a))
	a.Title = "changed after create"

	got, err := s.Store().GetAchievement(ctx, "ach-1")
	s.Require().NoError(err)
	s.Equal("Hat-trick", got.Title)

	got.Status = model.StatusApproved
	again, err := s.Store().GetAchievement(ctx, "ach-1")
	s.Require().NoError(err)
	s.Equal(model.StatusPending, again.Status)

	code := &model.AccessCode{Code: "ABCD2345", OwnerID: "player-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	s.Require().NoError(s.Store().CreateAccessCode(ctx, code))
	fetched, err := s.Store().GetAccessCode(ctx, "ABCD2345")
	s.Require().NoError(err)
	consumed := now
	fetched.ConsumedAt = &consumed

	_, err = s.Store().RedeemAccessCode(ctx, "ABCD2345", "parent-1", model.RelationshipParent, now.Add(time.Minute))
	s.NoError(err)
}
