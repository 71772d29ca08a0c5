// Package storagetest holds the behaviour every storage backend must share.
// Backend packages embed Suite and supply a fresh store per test.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/services/stats"
	"github.com/mcoot/crickettalent/internal/storage"
	"github.com/mcoot/crickettalent/internal/testutil"
)

// Suite runs the shared storage tests against the store returned by NewStorage
type Suite struct {
	suite.Suite
	NewStorage func() storage.Storage

	store storage.Storage
	ctx   context.Context
	t0    time.Time
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStorage, "NewStorage must be set")
	s.store = s.NewStorage()
	s.ctx = context.Background()
	s.t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
}

// Store exposes the store under test to embedding suites
func (s *Suite) Store() storage.Storage {
	return s.store
}

func (s *Suite) issue(code string, owner model.AccountID, at time.Time) *model.AccessCode {
	c := &model.AccessCode{
		Code:      code,
		OwnerID:   owner,
		CreatedAt: at,
		ExpiresAt: at.Add(model.DefaultAccessCodeTTL),
	}
	s.Require().NoError(s.store.CreateAccessCode(s.ctx, c))
	return c
}

func (s *Suite) submit(id model.AchievementID, player model.AccountID, at time.Time) *model.Achievement {
	a := &model.Achievement{
		ID:              id,
		PlayerID:        player,
		SubmittedBy:     player,
		Category:        model.CategoryBatting,
		Tier:            model.TierGold,
		Status:          model.StatusPending,
		AchievementDate: at.Add(-24 * time.Hour),
		Title:           "Century",
		Description:     "Scored 100 not out",
		Value:           "100*",
		SubmittedAt:     at,
	}
	s.Require().NoError(s.store.CreateAchievement(s.ctx, a))
	return a
}

// Account tests

func (s *Suite) TestCreateAndGetAccount() {
	account := &model.Account{
		ID:           "acc-1",
		Username:     "alice",
		DisplayName:  "Alice",
		Kind:         model.KindPlayer,
		PasswordHash: "hash",
		CreatedAt:    s.t0,
	}
	s.Require().NoError(s.store.CreateAccount(s.ctx, account))

	got, err := s.store.GetAccount(s.ctx, "acc-1")
	s.Require().NoError(err)
	s.Equal("Alice", got.DisplayName)
	s.Equal(model.KindPlayer, got.Kind)
	s.True(s.t0.Equal(got.CreatedAt))

	byName, err := s.store.GetAccountByUsername(s.ctx, "ALICE")
	s.Require().NoError(err)
	s.Equal(model.AccountID("acc-1"), byName.ID)
}

func (s *Suite) TestCreateAccountUsernameTaken() {
	s.Require().NoError(s.store.CreateAccount(s.ctx, &model.Account{ID: "acc-1", Username: "alice", Kind: model.KindPlayer, CreatedAt: s.t0}))

	err := s.store.CreateAccount(s.ctx, &model.Account{ID: "acc-2", Username: "alice", Kind: model.KindParent, CreatedAt: s.t0})
	s.ErrorIs(err, model.ErrUsernameTaken)

	_, err = s.store.GetAccount(s.ctx, "acc-2")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestGetAccountNotFound() {
	_, err := s.store.GetAccount(s.ctx, "missing")
	s.ErrorIs(err, model.ErrNotFound)

	_, err = s.store.GetAccountByUsername(s.ctx, "missing")
	s.ErrorIs(err, model.ErrNotFound)
}

// Access code tests

func (s *Suite) TestCreateAndGetAccessCode() {
	s.issue("ABCD2345", "player-1", s.t0)

	got, err := s.store.GetAccessCode(s.ctx, "ABCD2345")
	s.Require().NoError(err)
	s.Equal(model.AccountID("player-1"), got.OwnerID)
	s.True(s.t0.Add(model.DefaultAccessCodeTTL).Equal(got.ExpiresAt))
	s.Nil(got.ConsumedAt)
	s.Nil(got.ConsumedBy)
	s.Nil(got.InvalidatedAt)

	_, err = s.store.GetAccessCode(s.ctx, "ZZZZ9999")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestCreateAccessCodeTaken() {
	s.issue("ABCD2345", "player-1", s.t0)

	err := s.store.CreateAccessCode(s.ctx, &model.AccessCode{
		Code:      "ABCD2345",
		OwnerID:   "player-2",
		CreatedAt: s.t0,
		ExpiresAt: s.t0.Add(time.Hour),
	})
	s.ErrorIs(err, model.ErrCodeTaken)

	got, err := s.store.GetAccessCode(s.ctx, "ABCD2345")
	s.Require().NoError(err)
	s.Equal(model.AccountID("player-1"), got.OwnerID)
}

func (s *Suite) TestReissueInvalidatesPreviousCode() {
	s.issue("FIRST234", "player-1", s.t0)
	reissuedAt := s.t0.Add(time.Hour)
	s.issue("SECOND23", "player-1", reissuedAt)

	old, err := s.store.GetAccessCode(s.ctx, "FIRST234")
	s.Require().NoError(err)
	s.True(reissuedAt.Equal(old.ExpiresAt))
	s.Require().NotNil(old.InvalidatedAt)
	s.True(reissuedAt.Equal(*old.InvalidatedAt))

	outstanding, err := s.store.GetOutstandingAccessCode(s.ctx, "player-1", reissuedAt.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal("SECOND23", outstanding.Code)

	_, err = s.store.RedeemAccessCode(s.ctx, "FIRST234", "parent-1", model.RelationshipParent, reissuedAt.Add(time.Minute))
	s.ErrorIs(err, model.ErrExpired)
}

func (s *Suite) TestReissueKeepsOtherOwnersCodes() {
	s.issue("OWNER1AA", "player-1", s.t0)
	s.issue("OWNER2AA", "player-2", s.t0.Add(time.Hour))

	got, err := s.store.GetAccessCode(s.ctx, "OWNER1AA")
	s.Require().NoError(err)
	s.Nil(got.InvalidatedAt)
	s.True(got.IsRedeemable(s.t0.Add(2 * time.Hour)))
}

func (s *Suite) TestGetOutstandingAccessCodeNone() {
	_, err := s.store.GetOutstandingAccessCode(s.ctx, "player-1", s.t0)
	s.ErrorIs(err, model.ErrNotFound)

	s.issue("ABCD2345", "player-1", s.t0)
	_, err = s.store.GetOutstandingAccessCode(s.ctx, "player-1", s.t0.Add(model.DefaultAccessCodeTTL))
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestRedeemCreatesLink() {
	s.issue("ABCD2345", "player-1", s.t0)
	now := s.t0.Add(time.Hour)

	link, err := s.store.RedeemAccessCode(s.ctx, "ABCD2345", "parent-1", model.RelationshipMother, now)
	s.Require().NoError(err)
	s.Equal(model.AccountID("parent-1"), link.GuardianID)
	s.Equal(model.AccountID("player-1"), link.PlayerID)
	s.Equal(model.RelationshipMother, link.Relationship)
	s.True(now.Equal(link.CreatedAt))

	code, err := s.store.GetAccessCode(s.ctx, "ABCD2345")
	s.Require().NoError(err)
	s.Require().NotNil(code.ConsumedAt)
	s.True(now.Equal(*code.ConsumedAt))
	s.Require().NotNil(code.ConsumedBy)
	s.Equal(model.AccountID("parent-1"), *code.ConsumedBy)

	exists, err := s.store.LinkExists(s.ctx, "parent-1", "player-1")
	s.Require().NoError(err)
	s.True(exists)

	for _, id := range []model.AccountID{"parent-1", "player-1"} {
		links, err := s.store.ListLinksForAccount(s.ctx, id)
		s.Require().NoError(err)
		s.Require().Len(links, 1)
		s.Equal(model.RelationshipMother, links[0].Relationship)
	}

	_, err = s.store.GetOutstandingAccessCode(s.ctx, "player-1", now)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestRedeemTwiceAlreadyConsumed() {
	s.issue("ABCD2345", "player-1", s.t0)

	_, err := s.store.RedeemAccessCode(s.ctx, "ABCD2345", "parent-1", model.RelationshipParent, s.t0.Add(time.Minute))
	s.Require().NoError(err)

	_, err = s.store.RedeemAccessCode(s.ctx, "ABCD2345", "parent-2", model.RelationshipParent, s.t0.Add(2*time.Minute))
	s.ErrorIs(err, model.ErrAlreadyConsumed)

	exists, err := s.store.LinkExists(s.ctx, "parent-2", "player-1")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *Suite) TestRedeemNotFound() {
	_, err := s.store.RedeemAccessCode(s.ctx, "NOPE2345", "parent-1", model.RelationshipParent, s.t0)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestRedeemExpired() {
	code := s.issue("ABCD2345", "player-1", s.t0)

	_, err := s.store.RedeemAccessCode(s.ctx, "ABCD2345", "parent-1", model.RelationshipParent, code.ExpiresAt)
	s.ErrorIs(err, model.ErrExpired)

	got, err := s.store.GetAccessCode(s.ctx, "ABCD2345")
	s.Require().NoError(err)
	s.Nil(got.ConsumedAt)
}

func (s *Suite) TestRedeemExpiredTakesPrecedenceOverConsumed() {
	code := s.issue("ABCD2345", "player-1", s.t0)
	_, err := s.store.RedeemAccessCode(s.ctx, "ABCD2345", "parent-1", model.RelationshipParent, s.t0.Add(time.Minute))
	s.Require().NoError(err)

	_, err = s.store.RedeemAccessCode(s.ctx, "ABCD2345", "parent-2", model.RelationshipParent, code.ExpiresAt.Add(time.Minute))
	s.ErrorIs(err, model.ErrExpired)
}

func (s *Suite) TestRedeemDuplicateLinkLeavesCodeUnconsumed() {
	s.issue("FIRST234", "player-1", s.t0)
	_, err := s.store.RedeemAccessCode(s.ctx, "FIRST234", "parent-1", model.RelationshipParent, s.t0.Add(time.Minute))
	s.Require().NoError(err)

	s.issue("SECOND23", "player-1", s.t0.Add(time.Hour))
	_, err = s.store.RedeemAccessCode(s.ctx, "SECOND23", "parent-1", model.RelationshipFather, s.t0.Add(2*time.Hour))
	s.ErrorIs(err, model.ErrDuplicateLink)

	code, err := s.store.GetAccessCode(s.ctx, "SECOND23")
	s.Require().NoError(err)
	s.Nil(code.ConsumedAt)

	links, err := s.store.ListLinksForAccount(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.Equal(model.RelationshipParent, links[0].Relationship)
}

func (s *Suite) TestConcurrentRedeemSingleWinner() {
	s.issue("RACE2345", "player-1", s.t0)
	now := s.t0.Add(time.Minute)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		consumed  int
	)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			guardian := model.AccountID(fmt.Sprintf("parent-%d", i))
			_, err := s.store.RedeemAccessCode(s.ctx, "RACE2345", guardian, model.RelationshipParent, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, model.ErrAlreadyConsumed):
				consumed++
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, successes)
	s.Equal(attempts-1, consumed)

	links, err := s.store.ListLinksForAccount(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Len(links, 1)
}

func (s *Suite) TestDeleteExpiredAccessCodes() {
	s.issue("EXPIRED2", "player-1", s.t0)
	s.issue("CONSUMED", "player-2", s.t0)
	_, err := s.store.RedeemAccessCode(s.ctx, "CONSUMED", "parent-1", model.RelationshipParent, s.t0.Add(time.Minute))
	s.Require().NoError(err)
	s.issue("FRESH234", "player-3", s.t0.Add(5*24*time.Hour))

	n, err := s.store.DeleteExpiredAccessCodes(s.ctx, s.t0.Add(8*24*time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.GetAccessCode(s.ctx, "EXPIRED2")
	s.ErrorIs(err, model.ErrNotFound)
	_, err = s.store.GetAccessCode(s.ctx, "CONSUMED")
	s.NoError(err)
	_, err = s.store.GetAccessCode(s.ctx, "FRESH234")
	s.NoError(err)
}

func (s *Suite) TestDeleteInvalidatedAccessCode() {
	s.issue("FIRST234", "player-1", s.t0)
	s.issue("SECOND23", "player-1", s.t0.Add(time.Hour))

	// A cutoff before the invalidation keeps the code answering Expired
	n, err := s.store.DeleteExpiredAccessCodes(s.ctx, s.t0.Add(30*time.Minute))
	s.Require().NoError(err)
	s.Zero(n)
	_, err = s.store.RedeemAccessCode(s.ctx, "FIRST234", "parent-1", model.RelationshipParent, s.t0.Add(2*time.Hour))
	s.ErrorIs(err, model.ErrExpired)

	n, err = s.store.DeleteExpiredAccessCodes(s.ctx, s.t0.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.store.GetAccessCode(s.ctx, "FIRST234")
	s.ErrorIs(err, model.ErrNotFound)
	_, err = s.store.GetAccessCode(s.ctx, "SECOND23")
	s.NoError(err)
}

func (s *Suite) TestLinkExistsFalse() {
	exists, err := s.store.LinkExists(s.ctx, "parent-1", "player-1")
	s.Require().NoError(err)
	s.False(exists)

	links, err := s.store.ListLinksForAccount(s.ctx, "parent-1")
	s.Require().NoError(err)
	s.Empty(links)
}

// Achievement tests

func (s *Suite) TestCreateAndGetAchievement() {
	created := s.submit("ach-1", "player-1", s.t0)

	got, err := s.store.GetAchievement(s.ctx, "ach-1")
	s.Require().NoError(err)
	s.Equal(created.Title, got.Title)
	s.Equal(created.Value, got.Value)
	s.Equal(model.StatusPending, got.Status)
	s.True(created.SubmittedAt.Equal(got.SubmittedAt))
	s.True(created.AchievementDate.Equal(got.AchievementDate))
	s.Nil(got.ReviewedBy)
	s.Nil(got.ReviewedAt)

	_, err = s.store.GetAchievement(s.ctx, "missing")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestListAchievementsOrderAndFilter() {
	s.submit("ach-b", "player-1", s.t0.Add(2*time.Hour))
	s.submit("ach-a", "player-1", s.t0)
	other := &model.Achievement{
		ID:              "ach-c",
		PlayerID:        "player-2",
		SubmittedBy:     "player-2",
		Category:        model.CategoryBowling,
		Tier:            model.TierBronze,
		Status:          model.StatusPending,
		AchievementDate: s.t0,
		Title:           "Five-for",
		Description:     "5 wickets",
		SubmittedAt:     s.t0.Add(time.Hour),
	}
	s.Require().NoError(s.store.CreateAchievement(s.ctx, other))

	all, err := s.store.ListAchievements(s.ctx, model.AchievementFilter{})
	s.Require().NoError(err)
	s.Equal([]model.AchievementID{"ach-a", "ach-c", "ach-b"}, achievementIDs(all))

	mine, err := s.store.ListAchievements(s.ctx, model.AchievementFilter{PlayerID: "player-1"})
	s.Require().NoError(err)
	s.Equal([]model.AchievementID{"ach-a", "ach-b"}, achievementIDs(mine))

	bowling, err := s.store.ListAchievements(s.ctx, model.AchievementFilter{Category: model.CategoryBowling})
	s.Require().NoError(err)
	s.Equal([]model.AchievementID{"ach-c"}, achievementIDs(bowling))

	gold, err := s.store.ListAchievements(s.ctx, model.AchievementFilter{Tier: model.TierGold, PlayerID: "player-2"})
	s.Require().NoError(err)
	s.Empty(gold)

	_, err = s.store.TransitionAchievement(s.ctx, "ach-a", model.StatusApproved, "coach-1", s.t0.Add(3*time.Hour), "")
	s.Require().NoError(err)

	pending, err := s.store.ListAchievements(s.ctx, model.AchievementFilter{Status: model.StatusPending})
	s.Require().NoError(err)
	s.Equal([]model.AchievementID{"ach-c", "ach-b"}, achievementIDs(pending))

	approved, err := s.store.ListAchievements(s.ctx, model.AchievementFilter{Status: model.StatusApproved})
	s.Require().NoError(err)
	s.Equal([]model.AchievementID{"ach-a"}, achievementIDs(approved))
}

func (s *Suite) TestTransitionAchievement() {
	s.submit("ach-1", "player-1", s.t0)
	before, err := s.store.StatsVersion(s.ctx, "player-1")
	s.Require().NoError(err)

	reviewedAt := s.t0.Add(time.Hour)
	updated, err := s.store.TransitionAchievement(s.ctx, "ach-1", model.StatusRejected, "coach-1", reviewedAt, "Needs a scorecard")
	s.Require().NoError(err)
	s.Equal(model.StatusRejected, updated.Status)
	s.Equal("Needs a scorecard", updated.Feedback)
	s.Require().NotNil(updated.ReviewedBy)
	s.Equal(model.AccountID("coach-1"), *updated.ReviewedBy)
	s.Require().NotNil(updated.ReviewedAt)
	s.True(reviewedAt.Equal(*updated.ReviewedAt))

	stored, err := s.store.GetAchievement(s.ctx, "ach-1")
	s.Require().NoError(err)
	s.Equal(model.StatusRejected, stored.Status)
	s.Equal("Needs a scorecard", stored.Feedback)

	after, err := s.store.StatsVersion(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Greater(after, before)

	other, err := s.store.StatsVersion(s.ctx, "player-2")
	s.Require().NoError(err)
	s.Zero(other)
}

func (s *Suite) TestTransitionTerminalIsInvalid() {
	s.submit("ach-1", "player-1", s.t0)
	_, err := s.store.TransitionAchievement(s.ctx, "ach-1", model.StatusApproved, "coach-1", s.t0.Add(time.Hour), "great")
	s.Require().NoError(err)
	version, err := s.store.StatsVersion(s.ctx, "player-1")
	s.Require().NoError(err)

	_, err = s.store.TransitionAchievement(s.ctx, "ach-1", model.StatusRejected, "coach-2", s.t0.Add(2*time.Hour), "no")
	s.ErrorIs(err, model.ErrInvalidTransition)

	stored, err := s.store.GetAchievement(s.ctx, "ach-1")
	s.Require().NoError(err)
	s.Equal(model.StatusApproved, stored.Status)
	s.Equal("great", stored.Feedback)
	s.Equal(model.AccountID("coach-1"), *stored.ReviewedBy)

	unchanged, err := s.store.StatsVersion(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(version, unchanged)
}

func (s *Suite) TestTransitionNotFound() {
	_, err := s.store.TransitionAchievement(s.ctx, "missing", model.StatusApproved, "coach-1", s.t0, "")
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *Suite) TestConcurrentTransitionSingleWinner() {
	s.submit("ach-1", "player-1", s.t0)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []model.AchievementStatus
		invalid int
	)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := model.StatusApproved
			if i%2 == 1 {
				to = model.StatusRejected
			}
			reviewer := model.AccountID(fmt.Sprintf("coach-%d", i))
			_, err := s.store.TransitionAchievement(s.ctx, "ach-1", to, reviewer, s.t0.Add(time.Hour), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, to)
			case errors.Is(err, model.ErrInvalidTransition):
				invalid++
			}
		}(i)
	}
	wg.Wait()

	s.Require().Len(winners, 1)
	s.Equal(attempts-1, invalid)

	stored, err := s.store.GetAchievement(s.ctx, "ach-1")
	s.Require().NoError(err)
	s.Equal(winners[0], stored.Status)
}

func (s *Suite) TestSummaryMatchesApprovedUnderConcurrentReviews() {
	aggregator, err := stats.NewAggregator(s.store, 16, testutil.NopLogger())
	s.Require().NoError(err)

	const (
		submitters   = 4
		perSubmitter = 5
		reviewers    = 4
		readers      = 2
	)
	ids := make(chan model.AchievementID, submitters*perSubmitter*2)
	done := make(chan struct{})
	var submitWG, reviewWG, readWG sync.WaitGroup

	for i := range submitters {
		submitWG.Add(1)
		go func(i int) {
			defer submitWG.Done()
			for j := range perSubmitter {
				id := model.AchievementID(fmt.Sprintf("ach-%d-%d", i, j))
				at := s.t0.Add(time.Duration(i*perSubmitter+j) * time.Minute)
				err := s.store.CreateAchievement(s.ctx, &model.Achievement{
					ID:              id,
					PlayerID:        "player-1",
					SubmittedBy:     "player-1",
					Category:        model.CategoryBowling,
					Tier:            model.Tiers[(i+j)%len(model.Tiers)],
					Status:          model.StatusPending,
					AchievementDate: at.Add(-24 * time.Hour),
					Title:           string(id),
					SubmittedAt:     at,
				})
				if !s.NoError(err) {
					return
				}
				// Two reviewers race over every achievement
				ids <- id
				ids <- id
			}
		}(i)
	}

	for r := range reviewers {
		reviewWG.Add(1)
		go func(r int) {
			defer reviewWG.Done()
			to := model.StatusApproved
			if r%2 == 1 {
				to = model.StatusRejected
			}
			reviewer := model.AccountID(fmt.Sprintf("coach-%d", r))
			for id := range ids {
				_, err := s.store.TransitionAchievement(s.ctx, id, to, reviewer, s.t0.Add(time.Hour), "")
				if err != nil && !errors.Is(err, model.ErrInvalidTransition) {
					s.NoError(err)
				}
			}
		}(r)
	}

	for range readers {
		readWG.Add(1)
		go func() {
			defer readWG.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if _, err := aggregator.Summarize(s.ctx, "player-1"); !s.NoError(err) {
					return
				}
			}
		}()
	}

	submitWG.Wait()
	close(ids)
	reviewWG.Wait()
	close(done)
	readWG.Wait()

	pending, err := s.store.ListAchievements(s.ctx, model.AchievementFilter{PlayerID: "player-1", Status: model.StatusPending})
	s.Require().NoError(err)
	s.Empty(pending)

	approved, err := s.store.ListAchievements(s.ctx, model.AchievementFilter{PlayerID: "player-1", Status: model.StatusApproved})
	s.Require().NoError(err)
	byTier := make(map[model.Tier]int, len(model.Tiers))
	for _, t := range model.Tiers {
		byTier[t] = 0
	}
	for _, a := range approved {
		byTier[a.Tier]++
	}

	summary, err := aggregator.Summarize(s.ctx, "player-1")
	s.Require().NoError(err)
	s.Equal(len(approved), summary.Total)
	s.Equal(byTier, summary.ByTier)
}

func achievementIDs(list []*model.Achievement) []model.AchievementID {
	ids := make([]model.AchievementID, len(list))
	for i, a := range list {
		ids[i] = a.ID
	}
	return ids
}
