package credential

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldPublicKey  = "pub"
	fieldPrivateKey = "priv"
	fieldRefresh    = "rt"
	fieldVersion    = "ver"
	fieldCreatedAt  = "cat"
	fieldRotatedAt  = "rat"
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusReused   int64 = 1
	rotateStatusMismatch int64 = 2
	rotateStatusRotated  int64 = 3
	rotateStatusInvalid  int64 = 4
)

// KEYS[1] credential hash, KEYS[2] used set.
// ARGV[1] presented digest, ARGV[2] next digest, ARGV[3] now ms, ARGV[4] ttl ms.
const rotateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {0}
end
if redis.call("SISMEMBER", KEYS[2], ARGV[1]) == 1 then
  return {1}
end
if redis.call("HGET", KEYS[1], "rt") ~= ARGV[1] then
  return {2}
end
if ARGV[2] == ARGV[1] or redis.call("SISMEMBER", KEYS[2], ARGV[2]) == 1 then
  return {4}
end
redis.call("HSET", KEYS[1], "rt", ARGV[2], "rat", ARGV[3])
redis.call("HINCRBY", KEYS[1], "ver", 1)
redis.call("SADD", KEYS[2], ARGV[1])
if tonumber(ARGV[4]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[4])
  redis.call("PEXPIRE", KEYS[2], ARGV[4])
end
return {3, redis.call("HGETALL", KEYS[1]), redis.call("SMEMBERS", KEYS[2])}
`

var rotateLua = redis.NewScript(rotateScript)

// Store keeps credentials in Redis.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewStore returns a Redis credential store. Records expire ttl after their
// last write; pass the refresh-token lifetime so no record outlives the
// newest token it could accept.
func NewStore(rdb redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "gs:cred"
	}
	return &Store{
		redis:  rdb,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Create replaces any existing credential for userID with a fresh one whose
// used set is empty.
//
//	Performance: 1 MULTI/EXEC round trip (DEL, HSET, PEXPIRE).
func (s *Store) Create(ctx context.Context, userID string, publicKey, privateKey []byte, refreshToken string) error {
	if userID == "" {
		return errors.New("user id is required")
	}
	key := s.key(userID)
	usedKey := s.usedKey(userID)
	nowMS := strconv.FormatInt(s.now().UnixMilli(), 10)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key, usedKey)
		pipe.HSet(ctx, key,
			fieldPublicKey, publicKey,
			fieldPrivateKey, privateKey,
			fieldRefresh, HashRefreshToken(refreshToken).String(),
			fieldVersion, 1,
			fieldCreatedAt, nowMS,
			fieldRotatedAt, nowMS,
		)
		if s.ttl > 0 {
			pipe.PExpire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// FindByUserID loads the credential and its used set in one transaction.
func (s *Store) FindByUserID(ctx context.Context, userID string) (*Credential, error) {
	var (
		fieldsCmd *redis.MapStringStringCmd
		usedCmd   *redis.StringSliceCmd
	)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		fieldsCmd = pipe.HGetAll(ctx, s.key(userID))
		usedCmd = pipe.SMembers(ctx, s.usedKey(userID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decode(userID, fields, usedCmd.Val())
}

// Rotate swaps the current refresh token for next if and only if presented
// is still current, and records presented as used.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
//	Security: a presented token found in the used set reports
//	ErrRotationConflict joined with ErrRefreshReused; nothing is written.
func (s *Store) Rotate(ctx context.Context, userID, presented, next string) (*Credential, error) {
	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.key(userID), s.usedKey(userID)},
		HashRefreshToken(presented).String(),
		HashRefreshToken(next).String(),
		s.now().UnixMilli(),
		s.ttl.Milliseconds(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return nil, fmt.Errorf("%w: invalid rotate script response", ErrRedisUnavailable)
	}
	code, ok := parts[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid rotate script status", ErrRedisUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return nil, ErrNotFound
	case rotateStatusReused:
		return nil, errors.Join(ErrRotationConflict, ErrRefreshReused)
	case rotateStatusMismatch:
		return nil, ErrRotationConflict
	case rotateStatusInvalid:
		return nil, ErrInvalidRotation
	case rotateStatusRotated:
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: missing rotated credential payload", ErrRedisUnavailable)
		}
		fields, err := pairsToMap(parts[1])
		if err != nil {
			return nil, err
		}
		used, err := toStrings(parts[2])
		if err != nil {
			return nil, err
		}
		return decode(userID, fields, used)
	default:
		return nil, fmt.Errorf("%w: unknown rotate script status", ErrRedisUnavailable)
	}
}

// DeleteByUserID removes the credential. Deleting a missing credential is not an error.
func (s *Store) DeleteByUserID(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID), s.usedKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Both keys share the {userID} hash tag.
func (s *Store) key(userID string) string {
	return s.prefix + ":{" + userID + "}"
}

func (s *Store) usedKey(userID string) string {
	return s.prefix + ":{" + userID + "}:used"
}

func decode(userID string, fields map[string]string, used []string) (*Credential, error) {
	current, err := ParseDigest(fields[fieldRefresh])
	if err != nil {
		return nil, err
	}
	version, err := strconv.ParseUint(fields[fieldVersion], 10, 64)
	if err != nil {
		return nil, ErrCorrupt
	}
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, ErrCorrupt
	}
	rotated, err := strconv.ParseInt(fields[fieldRotatedAt], 10, 64)
	if err != nil {
		return nil, ErrCorrupt
	}
	if fields[fieldPublicKey] == "" || fields[fieldPrivateKey] == "" {
		return nil, ErrCorrupt
	}

	c := &Credential{
		UserID:      userID,
		PublicKey:   []byte(fields[fieldPublicKey]),
		PrivateKey:  []byte(fields[fieldPrivateKey]),
		RefreshHash: current,
		Used:        make(map[Digest]struct{}, len(used)),
		Version:     version,
		CreatedAt:   time.UnixMilli(created),
		RotatedAt:   time.UnixMilli(rotated),
	}
	for _, h := range used {
		d, err := ParseDigest(h)
		if err != nil {
			return nil, err
		}
		c.Used[d] = struct{}{}
	}
	return c, nil
}

func pairsToMap(v interface{}) (map[string]string, error) {
	flat, err := toStrings(v)
	if err != nil {
		return nil, err
	}
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("%w: odd HGETALL reply", ErrRedisUnavailable)
	}
	out := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		out[flat[i]] = flat[i+1]
	}
	return out, nil
}

func toStrings(v interface{}) ([]string, error) {
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected script reply type %T", ErrRedisUnavailable, v)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case []byte:
			out = append(out, string(s))
		default:
			return nil, fmt.Errorf("%w: unexpected script element type %T", ErrRedisUnavailable, item)
		}
	}
	return out, nil
}
