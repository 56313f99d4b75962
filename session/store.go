package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRecordNotFound is returned when no live record exists for a token id.
var ErrRecordNotFound = errors.New("session record not found")

// ErrRecordRevoked is returned by RotateRefresh when the parent refresh
// record exists but has already been consumed or revoked.
var ErrRecordRevoked = errors.New("session record revoked")

// ErrRecordCorrupt is returned when a stored blob fails to decode.
var ErrRecordCorrupt = errors.New("session record corrupt")

const (
	rotateStatusNotFound int64 = 0
	rotateStatusRevoked  int64 = 1
	rotateStatusRotated  int64 = 2
)

const revokeScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("SETRANGE", KEYS[1], tonumber(ARGV[1]), string.char(1))
  return 1
end
return 0
`

var revokeLua = redis.NewScript(revokeScript)

const rotateRefreshScript = `
local parent_key = KEYS[1]
local access_key = KEYS[2]
local refresh_key = KEYS[3]
local principal_key = KEYS[4]
local flag_offset = tonumber(ARGV[1])
local access_blob = ARGV[2]
local refresh_blob = ARGV[3]
local access_ttl = tonumber(ARGV[4])
local refresh_ttl = tonumber(ARGV[5])
local access_id = ARGV[6]
local refresh_id = ARGV[7]

local data = redis.call("GET", parent_key)
if not data then
  return 0
end
if string.byte(data, flag_offset + 1) ~= 0 then
  return 1
end

redis.call("SETRANGE", parent_key, flag_offset, string.char(1))
redis.call("SET", access_key, access_blob, "PX", access_ttl)
redis.call("SET", refresh_key, refresh_blob, "PX", refresh_ttl)
redis.call("SADD", principal_key, access_id, refresh_id)
redis.call("PEXPIRE", principal_key, refresh_ttl)
return 2
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

const revokeAllScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local flag_offset = tonumber(ARGV[1])
local token_prefix = ARGV[2]
local revoked = 0
for i = 1, #ids do
  local key = token_prefix .. ids[i]
  if redis.call("EXISTS", key) == 1 then
    redis.call("SETRANGE", key, flag_offset, string.char(1))
    revoked = revoked + 1
  end
end
return revoked
`

var revokeAllLua = redis.NewScript(revokeAllScript)

// Store defines a public type used by fastauth APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore describes the newstore operation and its observable behavior.
//
// NewStore may return an error when input validation, dependency calls, or security checks fail.
// NewStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "fa"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) tokenKey(tokenID string) string {
	return s.prefix + ":t:" + tokenID
}

func (s *Store) tokenKeyPrefix() string {
	return s.prefix + ":t:"
}

func (s *Store) principalKey(principalID string) string {
	return s.prefix + ":p:" + principalID
}

// Record writes a session record for the token id with a TTL equal to the
// remaining token lifetime, and indexes it under its principal.
func (s *Store) Record(ctx context.Context, rec *Record, ttl time.Duration) error {
	if rec == nil || rec.TokenID == "" {
		return errors.New("invalid session record")
	}
	if ttl <= 0 {
		return errors.New("non-positive record ttl")
	}

	blob, err := Encode(rec)
	if err != nil {
		return err
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, s.tokenKey(rec.TokenID), blob, ttl)
	pipe.SAdd(ctx, s.principalKey(rec.PrincipalID), rec.TokenID)
	pipe.PExpire(ctx, s.principalKey(rec.PrincipalID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Lookup describes the lookup operation and its observable behavior.
//
// Lookup may return an error when input validation, dependency calls, or security checks fail.
// Lookup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Lookup(ctx context.Context, tokenID string) (*Record, error) {
	data, err := s.redis.Get(ctx, s.tokenKey(tokenID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	rec.TokenID = tokenID

	return rec, nil
}

// Revoke flips the revoked flag for a token id. Revoking an unknown or
// already-revoked id is not an error.
func (s *Store) Revoke(ctx context.Context, tokenID string) error {
	err := revokeLua.Run(ctx, s.redis,
		[]string{s.tokenKey(tokenID)},
		revokedFlagOffset,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RotateRefresh atomically consumes the parent refresh record and writes the
// replacement token pair. Exactly one concurrent caller can win; the rest
// observe ErrRecordRevoked.
func (s *Store) RotateRefresh(
	ctx context.Context,
	parentID string,
	accessRec, refreshRec *Record,
	accessTTL, refreshTTL time.Duration,
) error {
	if accessRec == nil || refreshRec == nil {
		return errors.New("invalid rotation records")
	}
	if accessRec.PrincipalID != refreshRec.PrincipalID {
		return errors.New("rotation records principal mismatch")
	}

	accessBlob, err := Encode(accessRec)
	if err != nil {
		return err
	}
	refreshBlob, err := Encode(refreshRec)
	if err != nil {
		return err
	}

	status, err := rotateRefreshLua.Run(ctx, s.redis,
		[]string{
			s.tokenKey(parentID),
			s.tokenKey(accessRec.TokenID),
			s.tokenKey(refreshRec.TokenID),
			s.principalKey(refreshRec.PrincipalID),
		},
		revokedFlagOffset,
		accessBlob,
		refreshBlob,
		strconv.FormatInt(accessTTL.Milliseconds(), 10),
		strconv.FormatInt(refreshTTL.Milliseconds(), 10),
		accessRec.TokenID,
		refreshRec.TokenID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusNotFound:
		return ErrRecordNotFound
	case rotateStatusRevoked:
		return ErrRecordRevoked
	default:
		return fmt.Errorf("unexpected rotate status %d", status)
	}
}

// RevokeAllForPrincipal flips the revoked flag on every live record indexed
// for the principal. Returns the number of records touched.
func (s *Store) RevokeAllForPrincipal(ctx context.Context, principalID string) (int, error) {
	revoked, err := revokeAllLua.Run(ctx, s.redis,
		[]string{s.principalKey(principalID)},
		revokedFlagOffset,
		s.tokenKeyPrefix(),
	).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return int(revoked), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
