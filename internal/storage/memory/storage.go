package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// A single mutex makes every compare-and-set atomic within one process,
// so it is only suitable for a single-instance deployment and tests.
type Storage struct {
	mu sync.RWMutex

	accounts      map[model.AccountID]*model.Account
	usernameIndex map[string]model.AccountID
	codes         map[string]*model.AccessCode
	ownerCodes    map[model.AccountID]string // owner -> most recently issued code
	links         map[linkKey]*model.GuardianLink
	achievements  map[model.AchievementID]*model.Achievement
	statsVersions map[model.AccountID]int64
}

type linkKey struct {
	guardian model.AccountID
	player   model.AccountID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:      make(map[model.AccountID]*model.Account),
		usernameIndex: make(map[string]model.AccountID),
		codes:         make(map[string]*model.AccessCode),
		ownerCodes:    make(map[model.AccountID]string),
		links:         make(map[linkKey]*model.GuardianLink),
		achievements:  make(map[model.AchievementID]*model.Achievement),
		statsVersions: make(map[model.AccountID]int64),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	username := strings.ToLower(account.Username)
	if _, ok := s.usernameIndex[username]; ok {
		return model.ErrUsernameTaken
	}
	cp := *account
	s.accounts[account.ID] = &cp
	s.usernameIndex[username] = account.ID
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.usernameIndex[strings.ToLower(username)]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	return s.GetAccount(ctx, id)
}

// Access code operations

func (s *Storage) CreateAccessCode(ctx context.Context, code *model.AccessCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[code.Code]; ok {
		return model.ErrCodeTaken
	}

	if prev, ok := s.codes[s.ownerCodes[code.OwnerID]]; ok && prev.IsRedeemable(code.CreatedAt) {
		at := code.CreatedAt
		prev.ExpiresAt = at
		prev.InvalidatedAt = &at
	}

	cp := *code
	s.codes[code.Code] = &cp
	s.ownerCodes[code.OwnerID] = code.Code
	return nil
}

func (s *Storage) GetAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.codes[code]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyCode(c), nil
}

func (s *Storage) GetOutstandingAccessCode(ctx context.Context, owner model.AccountID, now time.Time) (*model.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.codes[s.ownerCodes[owner]]
	if !ok || !c.IsRedeemable(now) {
		return nil, model.ErrNotFound
	}
	return copyCode(c), nil
}

func (s *Storage) RedeemAccessCode(ctx context.Context, code string, guardian model.AccountID, rel model.Relationship, now time.Time) (*model.GuardianLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return nil, model.ErrNotFound
	}
	if err := c.RedemptionError(now); err != nil {
		return nil, err
	}
	key := linkKey{guardian: guardian, player: c.OwnerID}
	if _, exists := s.links[key]; exists {
		return nil, model.ErrDuplicateLink
	}

	consumedAt := now
	consumedBy := guardian
	c.ConsumedAt = &consumedAt
	c.ConsumedBy = &consumedBy

	link := &model.GuardianLink{
		GuardianID:   guardian,
		PlayerID:     c.OwnerID,
		Relationship: rel,
		CreatedAt:    now,
	}
	s.links[key] = link
	cp := *link
	return &cp, nil
}

func (s *Storage) DeleteExpiredAccessCodes(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for code, c := range s.codes {
		if !c.IsConsumed() && c.IsExpired(cutoff) {
			delete(s.codes, code)
			deleted++
		}
	}
	return deleted, nil
}

// Guardian link operations

func (s *Storage) ListLinksForAccount(ctx context.Context, id model.AccountID) ([]*model.GuardianLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	links := []*model.GuardianLink{}
	for key, link := range s.links {
		if key.guardian == id || key.player == id {
			cp := *link
			links = append(links, &cp)
		}
	}
	storage.SortLinks(links)
	return links, nil
}

func (s *Storage) LinkExists(ctx context.Context, guardian, player model.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[linkKey{guardian: guardian, player: player}]
	return ok, nil
}

// Achievement operations

func (s *Storage) CreateAchievement(ctx context.Context, a *model.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.achievements[a.ID] = &cp
	return nil
}

func (s *Storage) GetAchievement(ctx context.Context, id model.AchievementID) (*model.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.achievements[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Storage) ListAchievements(ctx context.Context, filter model.AchievementFilter) ([]*model.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []*model.Achievement{}
	for _, a := range s.achievements {
		if filter.Matches(a) {
			cp := *a
			result = append(result, &cp)
		}
	}
	storage.SortAchievements(result)
	return result, nil
}

func (s *Storage) TransitionAchievement(ctx context.Context, id model.AchievementID, to model.AchievementStatus, reviewer model.AccountID, at time.Time, feedback string) (*model.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.achievements[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	if !a.IsPending() {
		return nil, model.ErrInvalidTransition
	}
	updated := a.Reviewed(to, reviewer, at, feedback)
	s.achievements[id] = updated
	s.statsVersions[updated.PlayerID]++
	cp := *updated
	return &cp, nil
}

func (s *Storage) StatsVersion(ctx context.Context, player model.AccountID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.statsVersions[player], nil
}

func copyCode(c *model.AccessCode) *model.AccessCode {
	cp := *c
	return &cp
}
