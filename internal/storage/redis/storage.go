package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Compare-and-set operations run as Lua scripts so they are atomic across
// every process sharing the Redis instance.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	res, err := createAccountScript.Run(ctx, s.client,
		[]string{usernameIndexKey(strings.ToLower(account.Username)), accountKey(account.ID)},
		string(account.ID), data,
	).Text()
	if err != nil {
		return err
	}
	if res == resultTaken {
		return model.ErrUsernameTaken
	}
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	id, err := s.client.Get(ctx, usernameIndexKey(strings.ToLower(username))).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	return s.GetAccount(ctx, model.AccountID(id))
}

// Access code operations

// maxIssueAttempts bounds retries when the owner's code changes mid-issue
const maxIssueAttempts = 5

func (s *Storage) CreateAccessCode(ctx context.Context, code *model.AccessCode) error {
	pointer := ownerCodeKey(code.OwnerID)
	for range maxIssueAttempts {
		prev, err := s.client.Get(ctx, pointer).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		keys := []string{accessCodeKey(code.Code), pointer, codeExpiryIndexKey()}
		if prev != "" {
			keys = append(keys, accessCodeKey(prev))
		}
		res, err := issueCodeScript.Run(ctx, s.client, keys,
			code.Code, string(code.OwnerID), toMillis(code.CreatedAt), toMillis(code.ExpiresAt), prev,
		).Text()
		if err != nil {
			return err
		}

		switch res {
		case resultOK:
			return nil
		case resultTaken:
			return model.ErrCodeTaken
		case resultRetry:
			continue
		default:
			return fmt.Errorf("unexpected issue result %q", res)
		}
	}
	return fmt.Errorf("issue code for %s: owner code kept changing", code.OwnerID)
}

func (s *Storage) GetAccessCode(ctx context.Context, code string) (*model.AccessCode, error) {
	fields, err := s.client.HGetAll(ctx, accessCodeKey(code)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, model.ErrNotFound
	}
	return decodeAccessCode(code, fields)
}

func (s *Storage) GetOutstandingAccessCode(ctx context.Context, owner model.AccountID, now time.Time) (*model.AccessCode, error) {
	code, err := s.client.Get(ctx, ownerCodeKey(owner)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	c, err := s.GetAccessCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.IsRedeemable(now) {
		return nil, model.ErrNotFound
	}
	return c, nil
}

func (s *Storage) RedeemAccessCode(ctx context.Context, code string, guardian model.AccountID, rel model.Relationship, now time.Time) (*model.GuardianLink, error) {
	// The owner never changes once issued, so reading it ahead of the
	// script only serves to derive the link keys.
	owner, err := s.client.HGet(ctx, accessCodeKey(code), "owner").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	player := model.AccountID(owner)
	link := &model.GuardianLink{
		GuardianID:   guardian,
		PlayerID:     player,
		Relationship: rel,
		CreatedAt:    now,
	}
	data, err := json.Marshal(link)
	if err != nil {
		return nil, err
	}

	lk := linkKey(guardian, player)
	res, err := redeemCodeScript.Run(ctx, s.client,
		[]string{accessCodeKey(code), lk, linksForAccountIndexKey(guardian), linksForAccountIndexKey(player), codeExpiryIndexKey()},
		toMillis(now), string(guardian), data, lk, code,
	).Text()
	if err != nil {
		return nil, err
	}

	switch res {
	case resultOK:
		return link, nil
	case resultNotFound:
		return nil, model.ErrNotFound
	case resultExpired:
		return nil, model.ErrExpired
	case resultConsumed:
		return nil, model.ErrAlreadyConsumed
	case resultDuplicate:
		return nil, model.ErrDuplicateLink
	default:
		return nil, fmt.Errorf("unexpected redeem result %q", res)
	}
}

func (s *Storage) DeleteExpiredAccessCodes(ctx context.Context, cutoff time.Time) (int, error) {
	codes, err := s.client.ZRangeByScore(ctx, codeExpiryIndexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: toMillis(cutoff),
	}).Result()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, code := range codes {
		n, err := purgeCodeScript.Run(ctx, s.client,
			[]string{accessCodeKey(code), codeExpiryIndexKey()},
			toMillis(cutoff), code,
		).Int()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

// Guardian link operations

func (s *Storage) ListLinksForAccount(ctx context.Context, id model.AccountID) ([]*model.GuardianLink, error) {
	keys, err := s.client.SMembers(ctx, linksForAccountIndexKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []*model.GuardianLink{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	links := make([]*model.GuardianLink, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var link model.GuardianLink
		if err := json.Unmarshal([]byte(str), &link); err != nil {
			return nil, err
		}
		links = append(links, &link)
	}

	storage.SortLinks(links)
	return links, nil
}

func (s *Storage) LinkExists(ctx context.Context, guardian, player model.AccountID) (bool, error) {
	exists, err := s.client.Exists(ctx, linkKey(guardian, player)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Achievement operations

func (s *Storage) CreateAchievement(ctx context.Context, a *model.Achievement) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	score := float64(a.SubmittedAt.UnixMilli())
	member := redis.Z{Score: score, Member: string(a.ID)}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, achievementKey(a.ID), "data", data, "status", string(a.Status))
	pipe.ZAdd(ctx, allAchievementsIndexKey(), member)
	pipe.ZAdd(ctx, playerAchievementsIndexKey(a.PlayerID), member)
	if a.IsPending() {
		pipe.ZAdd(ctx, pendingAchievementsIndexKey(), member)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetAchievement(ctx context.Context, id model.AchievementID) (*model.Achievement, error) {
	data, err := s.client.HGet(ctx, achievementKey(id), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}

	var a model.Achievement
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Storage) ListAchievements(ctx context.Context, filter model.AchievementFilter) ([]*model.Achievement, error) {
	// Pick the narrowest index, the remaining criteria are applied below
	indexKey := allAchievementsIndexKey()
	switch {
	case filter.Status == model.StatusPending:
		indexKey = pendingAchievementsIndexKey()
	case filter.PlayerID != "":
		indexKey = playerAchievementsIndexKey(filter.PlayerID)
	}

	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Achievement{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, achievementKey(model.AchievementID(id)), "data")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	result := make([]*model.Achievement, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, err
		}
		var a model.Achievement
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, err
		}
		if filter.Matches(&a) {
			result = append(result, &a)
		}
	}

	storage.SortAchievements(result)
	return result, nil
}

func (s *Storage) TransitionAchievement(ctx context.Context, id model.AchievementID, to model.AchievementStatus, reviewer model.AccountID, at time.Time, feedback string) (*model.Achievement, error) {
	current, err := s.GetAchievement(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.IsPending() {
		return nil, model.ErrInvalidTransition
	}

	// Only the review fields change, and the script refuses to write them
	// unless the stored status is still pending.
	updated := current.Reviewed(to, reviewer, at, feedback)
	data, err := json.Marshal(updated)
	if err != nil {
		return nil, err
	}

	res, err := transitionAchievementScript.Run(ctx, s.client,
		[]string{achievementKey(id), pendingAchievementsIndexKey(), statsVersionKey(updated.PlayerID)},
		data, string(to), string(id),
	).Text()
	if err != nil {
		return nil, err
	}

	switch res {
	case resultOK:
		return updated, nil
	case resultNotFound:
		return nil, model.ErrNotFound
	case resultInvalid:
		return nil, model.ErrInvalidTransition
	default:
		return nil, fmt.Errorf("unexpected transition result %q", res)
	}
}

func (s *Storage) StatsVersion(ctx context.Context, player model.AccountID) (int64, error) {
	v, err := s.client.Get(ctx, statsVersionKey(player)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return v, nil
}

// Encoding helpers

func toMillis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func fromMillis(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

func decodeAccessCode(code string, fields map[string]string) (*model.AccessCode, error) {
	c := &model.AccessCode{
		Code:    code,
		OwnerID: model.AccountID(fields["owner"]),
	}

	createdAt, err := fromMillis(fields["created_at"])
	if err != nil {
		return nil, err
	}
	expiresAt, err := fromMillis(fields["expires_at"])
	if err != nil {
		return nil, err
	}
	if createdAt == nil || expiresAt == nil {
		return nil, fmt.Errorf("access code %s is missing timestamps", code)
	}
	c.CreatedAt = *createdAt
	c.ExpiresAt = *expiresAt

	if c.ConsumedAt, err = fromMillis(fields["consumed_at"]); err != nil {
		return nil, err
	}
	if c.InvalidatedAt, err = fromMillis(fields["invalidated_at"]); err != nil {
		return nil, err
	}
	if by := fields["consumed_by"]; by != "" {
		id := model.AccountID(by)
		c.ConsumedBy = &id
	}
	return c, nil
}
