package linking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/crickettalent/internal/dependencies/mocks"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage/memory"
	"github.com/mcoot/crickettalent/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	registry *Registry
	ctx      context.Context

	player model.Actor
	parent model.Actor
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.registry = NewRegistry(s.storage, s.clock, s.random, DefaultConfig(), testutil.NopLogger())
	s.ctx = context.Background()

	s.player = model.Actor{ID: "player-1", Kind: model.KindPlayer}
	s.parent = model.Actor{ID: "parent-1", Kind: model.KindParent}
	s.Require().NoError(s.storage.CreateAccount(s.ctx, &model.Account{
		ID:          "player-1",
		Username:    "junior",
		DisplayName: "Junior Batter",
		Kind:        model.KindPlayer,
		CreatedAt:   s.clock.Now(),
	}))
}

// IssueCode tests

func (s *RegistrySuite) TestIssueCodeSucceeds() {
	s.random.QueueString("ABCD2345")

	code, err := s.registry.IssueCode(s.ctx, s.player, "player-1")
	s.Require().NoError(err)
	s.Equal("ABCD2345", code.Code)
	s.Equal(model.AccountID("player-1"), code.OwnerID)
	s.Equal(s.clock.Now(), code.CreatedAt)
	s.Equal(s.clock.Now().Add(7*24*time.Hour), code.ExpiresAt)
}

func (s *RegistrySuite) TestIssueCodeUsesConfiguredTTL() {
	registry := NewRegistry(s.storage, s.clock, s.random, Config{CodeTTL: time.Hour}, testutil.NopLogger())

	code, err := registry.IssueCode(s.ctx, s.player, "player-1")
	s.Require().NoError(err)
	s.Equal(s.clock.Now().Add(time.Hour), code.ExpiresAt)
}

func (s *RegistrySuite) TestIssueCodeForOtherPlayerDenied() {
	_, err := s.registry.IssueCode(s.ctx, s.player, "player-2")
	s.ErrorIs(err, model.ErrPermissionDenied)
}

func (s *RegistrySuite) TestIssueCodeByNonPlayerDenied() {
	for _, kind := range []model.ActorKind{model.KindParent, model.KindCoach, model.KindAdmin} {
		_, err := s.registry.IssueCode(s.ctx, model.Actor{ID: "player-1", Kind: kind}, "player-1")
		s.ErrorIs(err, model.ErrPermissionDenied, string(kind))
	}
}

func (s *RegistrySuite) TestIssueCodeRetriesOnCollision() {
	s.random.QueueString("TAKEN234", "TAKEN234", "FRESH234")
	other := model.Actor{ID: "player-2", Kind: model.KindPlayer}
	_, err := s.registry.IssueCode(s.ctx, other, "player-2")
	s.Require().NoError(err)

	code, err := s.registry.IssueCode(s.ctx, s.player, "player-1")
	s.Require().NoError(err)
	s.Equal("FRESH234", code.Code)
}

func (s *RegistrySuite) TestIssueCodeGivesUpAfterRepeatedCollisions() {
	codes := make([]string, maxIssueAttempts+1)
	for i := range codes {
		codes[i] = "SAME2345"
	}
	s.random.QueueString(codes...)
	_, err := s.registry.IssueCode(s.ctx, model.Actor{ID: "player-2", Kind: model.KindPlayer}, "player-2")
	s.Require().NoError(err)

	_, err = s.registry.IssueCode(s.ctx, s.player, "player-1")
	s.Error(err)
}

func (s *RegistrySuite) TestReissueMakesPreviousCodeExpired() {
	s.random.QueueString("FIRST234", "SECOND23")
	_, err := s.registry.IssueCode(s.ctx, s.player, "player-1")
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	_, err = s.registry.IssueCode(s.ctx, s.player, "player-1")
	s.Require().NoError(err)

	_, err = s.registry.RedeemCode(s.ctx, s.parent, "FIRST234", model.RelationshipParent)
	s.ErrorIs(err, model.ErrExpired)

	current, err := s.registry.CurrentCode(s.ctx, s.player)
	s.Require().NoError(err)
	s.Equal("SECOND23", current.Code)
}

// CurrentCode tests

func (s *RegistrySuite) TestCurrentCodeNotFound() {
	_, err := s.registry.CurrentCode(s.ctx, s.player)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *RegistrySuite) TestCurrentCodeDeniedForParent() {
	_, err := s.registry.CurrentCode(s.ctx, s.parent)
	s.ErrorIs(err, model.ErrPermissionDenied)
}

// RedeemCode tests

func (s *RegistrySuite) TestRedeemCodeSucceeds() {
	s.random.QueueString("ABCD2345")
	_, err := s.registry.IssueCode(s.ctx, s.player, "player-1")
	s.Require().NoError(err)

	s.clock.Advance(time.Hour)
	result, err := s.registry.RedeemCode(s.ctx, s.parent, "abcd2345", model.RelationshipMother)
	s.Require().NoError(err)
	s.Equal(model.AccountID("parent-1"), result.Link.GuardianID)
	s.Equal(model.AccountID("player-1"), result.Link.PlayerID)
	s.Equal(model.RelationshipMother, result.Link.Relationship)
	s.Equal(s.clock.Now(), result.Link.CreatedAt)
	s.Equal("Junior Batter", result.Player.DisplayName)

	linked, err := s.registry.IsGuardianOf(s.ctx, "parent-1", "player-1")
	s.Require().NoError(err)
	s.True(linked)
}

func (s *RegistrySuite) TestRedeemCodeDefaultsRelationship() {
	s.random.QueueString("ABCD2345")
	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")

	result, err := s.registry.RedeemCode(s.ctx, s.parent, "ABCD2345", "")
	s.Require().NoError(err)
	s.Equal(model.RelationshipParent, result.Link.Relationship)
}

func (s *RegistrySuite) TestRedeemCodeInvalidRelationship() {
	_, err := s.registry.RedeemCode(s.ctx, s.parent, "ABCD2345", "uncle")
	s.ErrorIs(err, model.ErrValidationFailed)
}

func (s *RegistrySuite) TestRedeemCodeByNonParentDenied() {
	s.random.QueueString("ABCD2345")
	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")

	for _, actor := range []model.Actor{
		s.player,
		{ID: "coach-1", Kind: model.KindCoach},
		{ID: "admin-1", Kind: model.KindAdmin},
	} {
		_, err := s.registry.RedeemCode(s.ctx, actor, "ABCD2345", model.RelationshipParent)
		s.ErrorIs(err, model.ErrPermissionDenied)
	}

	code, err := s.storage.GetAccessCode(s.ctx, "ABCD2345")
	s.Require().NoError(err)
	s.False(code.IsConsumed())
}

func (s *RegistrySuite) TestRedeemCodeNotFound() {
	_, err := s.registry.RedeemCode(s.ctx, s.parent, "NOPE2345", model.RelationshipParent)
	s.ErrorIs(err, model.ErrNotFound)

	_, err = s.registry.RedeemCode(s.ctx, s.parent, "   ", model.RelationshipParent)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *RegistrySuite) TestRedeemCodeExpired() {
	s.random.QueueString("ABCD2345")
	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")

	s.clock.Advance(7 * 24 * time.Hour)
	_, err := s.registry.RedeemCode(s.ctx, s.parent, "ABCD2345", model.RelationshipParent)
	s.ErrorIs(err, model.ErrExpired)
}

func (s *RegistrySuite) TestRedeemCodeTwice() {
	s.random.QueueString("ABCD2345")
	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")

	_, err := s.registry.RedeemCode(s.ctx, s.parent, "ABCD2345", model.RelationshipParent)
	s.Require().NoError(err)

	_, err = s.registry.RedeemCode(s.ctx, model.Actor{ID: "parent-2", Kind: model.KindParent}, "ABCD2345", model.RelationshipParent)
	s.ErrorIs(err, model.ErrAlreadyConsumed)
}

func (s *RegistrySuite) TestRedeemCodeDuplicateLink() {
	s.random.QueueString("FIRST234", "SECOND23")
	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")
	_, err := s.registry.RedeemCode(s.ctx, s.parent, "FIRST234", model.RelationshipParent)
	s.Require().NoError(err)

	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")
	_, err = s.registry.RedeemCode(s.ctx, s.parent, "SECOND23", model.RelationshipParent)
	s.ErrorIs(err, model.ErrDuplicateLink)

	// The second code is still usable by someone else
	_, err = s.registry.RedeemCode(s.ctx, model.Actor{ID: "parent-2", Kind: model.KindParent}, "SECOND23", model.RelationshipFather)
	s.NoError(err)
}

func (s *RegistrySuite) TestConcurrentRedeemOneWinner() {
	s.random.QueueString("RACE2345")
	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := model.Actor{ID: model.AccountID(fmt.Sprintf("parent-%d", i)), Kind: model.KindParent}
			_, err := s.registry.RedeemCode(s.ctx, actor, "RACE2345", model.RelationshipParent)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, model.ErrAlreadyConsumed) {
				s.Failf("unexpected error", "%v", err)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(1, successes)
}

// ListLinksFor tests

func (s *RegistrySuite) TestListLinksFor() {
	s.random.QueueString("ABCD2345")
	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")
	_, _ = s.registry.RedeemCode(s.ctx, s.parent, "ABCD2345", model.RelationshipParent)

	links, err := s.registry.ListLinksFor(s.ctx, s.parent, "parent-1")
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.Equal(model.AccountID("player-1"), links[0].PlayerID)

	links, err = s.registry.ListLinksFor(s.ctx, s.player, "player-1")
	s.Require().NoError(err)
	s.Len(links, 1)

	links, err = s.registry.ListLinksFor(s.ctx, model.Actor{ID: "admin-1", Kind: model.KindAdmin}, "player-1")
	s.Require().NoError(err)
	s.Len(links, 1)
}

func (s *RegistrySuite) TestListLinksForOtherAccountDenied() {
	_, err := s.registry.ListLinksFor(s.ctx, s.parent, "player-1")
	s.ErrorIs(err, model.ErrPermissionDenied)

	_, err = s.registry.ListLinksFor(s.ctx, model.Actor{ID: "coach-1", Kind: model.KindCoach}, "player-1")
	s.ErrorIs(err, model.ErrPermissionDenied)
}

// PurgeExpired tests

func (s *RegistrySuite) TestPurgeExpired() {
	s.random.QueueString("OLD23456")
	_, _ = s.registry.IssueCode(s.ctx, s.player, "player-1")

	n, err := s.registry.PurgeExpired(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	// Expired but inside the retention window
	s.clock.Advance(8 * 24 * time.Hour)
	n, err = s.registry.PurgeExpired(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
	_, err = s.registry.RedeemCode(s.ctx, s.parent, "OLD23456", model.RelationshipParent)
	s.ErrorIs(err, model.ErrExpired)

	s.clock.Advance(7 * 24 * time.Hour)
	n, err = s.registry.PurgeExpired(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	_, err = s.storage.GetAccessCode(s.ctx, "OLD23456")
	s.ErrorIs(err, model.ErrNotFound)
}
