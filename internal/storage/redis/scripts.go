package redis

import "github.com/redis/go-redis/v9"

// Script results
const (
	resultOK        = "ok"
	resultTaken     = "taken"
	resultNotFound  = "not_found"
	resultExpired   = "expired"
	resultConsumed  = "consumed"
	resultDuplicate = "duplicate"
	resultInvalid   = "invalid"
	resultRetry     = "retry"
)

// createAccountScript claims the username and stores the account together.
//
// KEYS: username index, account
// ARGV: account id, account json
var createAccountScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
  return 'taken'
end
redis.call('SET', KEYS[2], ARGV[2])
return 'ok'
`)

// issueCodeScript stores a new access code and invalidates the owner's
// previous outstanding code. Returns 'retry' if the owner pointer no longer
// names ARGV[5].
//
// KEYS: new code hash, owner pointer, expiry index, previous code hash (if any)
// ARGV: code, owner, created_at ms, expires_at ms, previous code (empty if none)
var issueCodeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 'taken'
end
local prev = redis.call('GET', KEYS[2])
if (prev or '') ~= ARGV[5] then
  return 'retry'
end
if prev then
  local consumed = redis.call('HGET', KEYS[4], 'consumed_at')
  local expires = tonumber(redis.call('HGET', KEYS[4], 'expires_at'))
  if consumed == '' and expires and expires > tonumber(ARGV[3]) then
    redis.call('HSET', KEYS[4], 'expires_at', ARGV[3], 'invalidated_at', ARGV[3])
    redis.call('ZADD', KEYS[3], ARGV[3], prev)
  end
end
redis.call('HSET', KEYS[1], 'owner', ARGV[2], 'created_at', ARGV[3], 'expires_at', ARGV[4],
  'consumed_at', '', 'consumed_by', '', 'invalidated_at', '')
redis.call('SET', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[4], ARGV[1])
return 'ok'
`)

// redeemCodeScript consumes a code and creates the guardian link in one step.
//
// KEYS: code hash, link, guardian link index, player link index, expiry index
// ARGV: now ms, guardian id, link json, link key, code
var redeemCodeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if tonumber(ARGV[1]) >= expires then
  return 'expired'
end
if redis.call('HGET', KEYS[1], 'consumed_at') ~= '' then
  return 'consumed'
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return 'duplicate'
end
redis.call('HSET', KEYS[1], 'consumed_at', ARGV[1], 'consumed_by', ARGV[2])
redis.call('ZREM', KEYS[5], ARGV[5])
redis.call('SET', KEYS[2], ARGV[3])
redis.call('SADD', KEYS[3], ARGV[4])
redis.call('SADD', KEYS[4], ARGV[4])
return 'ok'
`)

// purgeCodeScript deletes a code if it is still unconsumed and expired at
// the cutoff.
//
// KEYS: code hash, expiry index
// ARGV: cutoff ms, code
var purgeCodeScript = redis.NewScript(`
redis.call('ZREM', KEYS[2], ARGV[2])
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
if redis.call('HGET', KEYS[1], 'consumed_at') ~= '' then
  return 0
end
local expires = tonumber(redis.call('HGET', KEYS[1], 'expires_at'))
if expires > tonumber(ARGV[1]) then
  redis.call('ZADD', KEYS[2], expires, ARGV[2])
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// transitionAchievementScript moves a pending achievement to a terminal status.
//
// KEYS: achievement hash, pending index, stats version
// ARGV: updated json, new status, achievement id
var transitionAchievementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 'not_found'
end
if redis.call('HGET', KEYS[1], 'status') ~= 'pending' then
  return 'invalid'
end
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'status', ARGV[2])
redis.call('ZREM', KEYS[2], ARGV[3])
redis.call('INCR', KEYS[3])
return 'ok'
`)
