package redis

import (
	"fmt"

	"github.com/mcoot/crickettalent/internal/model"
)

// Key prefix for all talent-tracker data
const keyPrefix = "cricket"

// accountKey returns the Redis key for an Account
func accountKey(id model.AccountID) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> account_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// accessCodeKey returns the Redis key for an AccessCode HASH
func accessCodeKey(code string) string {
	return fmt.Sprintf("%s:code:%s", keyPrefix, code)
}

// ownerCodeKey returns the Redis key holding an owner's most recently issued code
func ownerCodeKey(owner model.AccountID) string {
	return fmt.Sprintf("%s:idx:owner_code:%s", keyPrefix, owner)
}

// codeExpiryIndexKey returns the ZSET of unconsumed codes scored by expiry
func codeExpiryIndexKey() string {
	return fmt.Sprintf("%s:idx:code_expiry", keyPrefix)
}

// linkKey returns the Redis key for a GuardianLink
func linkKey(guardian, player model.AccountID) string {
	return fmt.Sprintf("%s:link:%s:%s", keyPrefix, guardian, player)
}

// linksForAccountIndexKey returns the SET of link keys an account takes part in
func linksForAccountIndexKey(id model.AccountID) string {
	return fmt.Sprintf("%s:idx:links:%s", keyPrefix, id)
}

// achievementKey returns the Redis key for an Achievement HASH
func achievementKey(id model.AchievementID) string {
	return fmt.Sprintf("%s:achievement:%s", keyPrefix, id)
}

// allAchievementsIndexKey returns the ZSET of all achievement IDs scored by submission time
func allAchievementsIndexKey() string {
	return fmt.Sprintf("%s:idx:achievements", keyPrefix)
}

// playerAchievementsIndexKey returns the ZSET of a player's achievement IDs
func playerAchievementsIndexKey(player model.AccountID) string {
	return fmt.Sprintf("%s:idx:achievements_of:%s", keyPrefix, player)
}

// pendingAchievementsIndexKey returns the ZSET of pending achievement IDs
func pendingAchievementsIndexKey() string {
	return fmt.Sprintf("%s:idx:achievements_pending", keyPrefix)
}

// statsVersionKey returns the counter bumped whenever a player's achievement is reviewed
func statsVersionKey(player model.AccountID) string {
	return fmt.Sprintf("%s:stats_version:%s", keyPrefix, player)
}
