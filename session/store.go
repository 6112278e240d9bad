package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists active sessions. Implementations must make Insert atomic with respect
// to the identifier and Delete idempotent.
type Store interface {
	// Insert stores s unless its ID is taken, in which case it returns ErrDuplicateID.
	// ttl is the remaining lifetime and is always positive.
	Insert(ctx context.Context, s *ActiveSession, ttl time.Duration) error
	Get(ctx context.Context, id string) (*ActiveSession, error)
	GetByToken(ctx context.Context, token string) (*ActiveSession, error)
	ListByUser(ctx context.Context, username string) ([]*ActiveSession, error)
	// Delete removes the session with id and reports whether a record was removed.
	// Unknown ids are not an error.
	Delete(ctx context.Context, id string) (bool, error)
	// Count returns the number of sessions not yet expired at now.
	Count(ctx context.Context, now time.Time) (int, error)
}

// insertSessionScript stores the record and its token pointer, indexes the id, and
// stretches each index set's TTL to cover the new record.
const insertSessionScript = `
local ok = redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2], "NX")
if not ok then
  return 0
end
redis.call("SET", KEYS[2], ARGV[3], "PX", ARGV[2])
local ttl = tonumber(ARGV[2])
for i = 3, 4 do
  redis.call("SADD", KEYS[i], ARGV[3])
  if redis.call("PTTL", KEYS[i]) < ttl then
    redis.call("PEXPIRE", KEYS[i], ttl)
  end
end
return 1
`

var insertSessionLua = redis.NewScript(insertSessionScript)

const deleteSessionScript = `
local existed = redis.call("DEL", KEYS[1])
if redis.call("GET", KEYS[2]) == ARGV[1] then
  redis.call("DEL", KEYS[2])
end
redis.call("SREM", KEYS[3], ARGV[1])
redis.call("SREM", KEYS[4], ARGV[1])
return existed
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// RedisStore keeps sessions in Redis. Records expire with the token; index entries are
// pruned lazily when they point at a missing record.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore that namespaces keys under prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "passport"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + ":s:" + id
}

func (s *RedisStore) tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":t:" + hex.EncodeToString(sum[:])
}

func (s *RedisStore) userKey(username string) string {
	return s.prefix + ":u:" + username
}

func (s *RedisStore) allKey() string {
	return s.prefix + ":all"
}

// Insert stores sess with a TTL of ttl.
//
//	Performance: 1 Lua EVALSHA.
func (s *RedisStore) Insert(ctx context.Context, sess *ActiveSession, ttl time.Duration) error {
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	keys := []string{s.key(sess.ID), s.tokenKey(sess.Token), s.userKey(sess.Username), s.allKey()}
	inserted, err := insertSessionLua.Run(ctx, s.redis, keys, data, ttl.Milliseconds(), sess.ID).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if inserted == 0 {
		return ErrDuplicateID
	}
	return nil
}

// Get returns the session with id.
func (s *RedisStore) Get(ctx context.Context, id string) (*ActiveSession, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return Decode(data)
}

// GetByToken resolves token through the token index.
func (s *RedisStore) GetByToken(ctx context.Context, token string) (*ActiveSession, error) {
	id, err := s.redis.Get(ctx, s.tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Token != token {
		return nil, ErrNotFound
	}
	return sess, nil
}

// ListByUser returns the sessions indexed under username. Index members whose record has
// expired are removed.
//
//	Performance: 1 SMEMBERS + 1 pipelined GET batch.
func (s *RedisStore) ListByUser(ctx context.Context, username string) ([]*ActiveSession, error) {
	userKey := s.userKey(username)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return []*ActiveSession{}, nil
	}

	cmds := make([]*redis.StringCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Get(ctx, s.key(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]*ActiveSession, 0, len(ids))
	stale := make([]interface{}, 0)
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, ids[i])
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		sess, err := Decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return out, nil
}

// Delete removes the record with id and its index entries.
//
//	Performance: 1 GET + 1 Lua EVALSHA.
func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		if err := s.redis.SRem(ctx, s.allKey(), id).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	keys := []string{s.key(id), s.tokenKey(sess.Token), s.userKey(sess.Username), s.allKey()}
	existed, err := deleteSessionLua.Run(ctx, s.redis, keys, id).Int()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return existed > 0, nil
}

// Count returns the number of live records. Redis expires records on its own clock, so now
// only filters records that are still present past their expiry.
func (s *RedisStore) Count(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.redis.SMembers(ctx, s.allKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	cmds := make([]*redis.StringCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Get(ctx, s.key(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	count := 0
	stale := make([]interface{}, 0)
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, ids[i])
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		sess, err := Decode(data)
		if err != nil || sess.Expired(now) {
			continue
		}
		count++
	}
	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, s.allKey(), stale...).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return count, nil
}

// Ping reports the round-trip latency to Redis.
func (s *RedisStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}
