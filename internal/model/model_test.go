package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessCodeRedemptionError(t *testing.T) {
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	consumedAt := created.Add(time.Minute)

	tests := []struct {
		name     string
		consumed bool
		now      time.Time
		want     error
	}{
		{"fresh", false, created, nil},
		{"just before expiry", false, created.Add(time.Hour - time.Millisecond), nil},
		{"at expiry", false, created.Add(time.Hour), ErrExpired},
		{"consumed", true, created.Add(2 * time.Minute), ErrAlreadyConsumed},
		{"consumed and expired", true, created.Add(2 * time.Hour), ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &AccessCode{Code: "ABCD2345", CreatedAt: created, ExpiresAt: created.Add(time.Hour)}
			if tt.consumed {
				c.ConsumedAt = &consumedAt
			}
			assert.Equal(t, tt.want, c.RedemptionError(tt.now))
			assert.Equal(t, tt.want == nil, c.IsRedeemable(tt.now))
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABCD2345", NormalizeCode("  abCd2345\n"))
}

func TestParseEnums(t *testing.T) {
	c, err := ParseCategory("all-round")
	require.NoError(t, err)
	assert.Equal(t, CategoryAllRound, c)

	tier, err := ParseTier("PLATINUM")
	require.NoError(t, err)
	assert.Equal(t, TierPlatinum, tier)
	assert.Greater(t, TierDiamond.Rank(), TierBronze.Rank())
	assert.Zero(t, Tier("Ruby").Rank())

	rel, err := ParseRelationship("")
	require.NoError(t, err)
	assert.Equal(t, RelationshipParent, rel)

	_, err = ParseRelationship("cousin")
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrValidationFailed)

	kind, err := ParseActorKind(" Coach ")
	require.NoError(t, err)
	assert.Equal(t, KindCoach, kind)
}

func TestActor(t *testing.T) {
	assert.True(t, Actor{ID: "c", Kind: KindCoach}.IsReviewer())
	assert.True(t, Actor{ID: "a", Kind: KindAdmin}.IsReviewer())
	assert.False(t, Actor{ID: "p", Kind: KindParent}.IsReviewer())
	assert.False(t, Actor{}.Is(""))
	assert.True(t, Actor{ID: "p"}.Is("p"))
}

func TestDraftValidateTrimsAndParses(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a, err := AchievementDraft{
		Category:        " fielding ",
		Tier:            "silver",
		AchievementDate: now,
		Title:           "  Run out  ",
		Description:     " Direct hit from the boundary ",
		Venue:           " Lord's ",
	}.Validate(now)
	require.NoError(t, err)

	assert.Equal(t, CategoryFielding, a.Category)
	assert.Equal(t, TierSilver, a.Tier)
	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, "Run out", a.Title)
	assert.Equal(t, "Direct hit from the boundary", a.Description)
	assert.Equal(t, "Lord's", a.Venue)
}

func TestDraftValidateRejectsMissingDate(t *testing.T) {
	_, err := AchievementDraft{Category: "Team", Tier: "Gold", Title: "t", Description: "d"}.Validate(time.Now())
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "achievement_date", verr.Field)
}

func TestReviewedReturnsCopy(t *testing.T) {
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a := &Achievement{ID: "a1", Status: StatusPending}

	reviewed := a.Reviewed(StatusApproved, "coach-1", at, "ok")
	assert.Equal(t, StatusPending, a.Status)
	assert.Nil(t, a.ReviewedBy)
	assert.Equal(t, StatusApproved, reviewed.Status)
	assert.Equal(t, AccountID("coach-1"), *reviewed.ReviewedBy)
	assert.True(t, reviewed.Status.IsTerminal())
}

func TestStatsSummaryClone(t *testing.T) {
	s := NewAchievementStatsSummary("p1")
	s.Add(&Achievement{ID: "a1", Status: StatusApproved, Tier: TierGold, Category: CategoryBatting})
	s.Add(&Achievement{ID: "a2", Status: StatusPending, Tier: TierGold, Category: CategoryBatting})

	clone := s.Clone()
	clone.ByTier[TierGold] = 10
	clone.Latest.ID = "changed"

	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.ByTier[TierGold])
	assert.Equal(t, AchievementID("a1"), s.Latest.ID)
}
