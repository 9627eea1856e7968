package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication orchestration engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when the session key does not exist or already aged out.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when Create targets an existing session ID.
var ErrSessionExists = errors.New("session already exists")

// ErrVersionConflict is returned when CompareAndSwap loses the write race.
var ErrVersionConflict = errors.New("session version conflict")

// ErrIllegalTransition is returned when a write would violate the state machine.
var ErrIllegalTransition = errors.New("illegal state transition")

const minSessionTTL = time.Second

const createSessionScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "data", ARGV[1], "ver", 1)
redis.call("PEXPIRE", KEYS[1], ARGV[2])
redis.call("ZADD", KEYS[2], ARGV[3], ARGV[4])
return 1
`

var createSessionLua = redis.NewScript(createSessionScript)

const casSessionScript = `
local ver = redis.call("HGET", KEYS[1], "ver")
if not ver then
  return -1
end
if tonumber(ver) ~= tonumber(ARGV[1]) then
  return 0
end
local next = tonumber(ver) + 1
redis.call("HSET", KEYS[1], "data", ARGV[2], "ver", next)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
if ARGV[4] == "1" then
  redis.call("ZREM", KEYS[2], ARGV[5])
else
  redis.call("ZADD", KEYS[2], ARGV[6], ARGV[5])
end
return next
`

var casSessionLua = redis.NewScript(casSessionScript)

// Store is a Redis-backed orchestration session store with optimistic
// concurrency control and an expiry index for the sweeper.
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; retention controls how long terminal
// sessions stay readable for audit introspection before Redis drops them.
func NewStore(redis redis.UniversalClient, prefix string, retention time.Duration) *Store {
	if prefix == "" {
		prefix = "afl"
	}
	if retention <= 0 {
		retention = 15 * time.Minute
	}
	return &Store{redis: redis, prefix: prefix, retention: retention}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) dueKey() string {
	return s.prefix + ":due"
}

// Create persists a brand-new session. The session must be in a non-terminal
// state with ExpiresAt in the future; Version is set to 1 on success.
//
//	Performance: 1 Lua EVALSHA (atomic create + index insert).
func (s *Store) Create(ctx context.Context, sess *Session) error {
	ttl := time.Until(time.Unix(sess.ExpiresAt, 0))
	if ttl < minSessionTTL {
		ttl = minSessionTTL
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	res, err := createSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sess.SessionID), s.dueKey()},
		data,
		ttl.Milliseconds(),
		sess.ExpiresAt,
		sess.SessionID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return ErrSessionExists
	}

	sess.Version = 1
	return nil
}

// Get retrieves a session by ID. The returned Version must be carried into
// the next CompareAndSwap unchanged.
//
//	Performance: 1 Redis HMGET.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	vals, err := s.redis.HMGet(ctx, s.key(sessionID), "data", "ver").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, ErrSessionNotFound
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: invalid session payload", ErrRedisUnavailable)
	}

	sess := &Session{}
	if err := json.Unmarshal([]byte(raw), sess); err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	switch v := vals[1].(type) {
	case string:
		var ver int64
		if _, err := fmt.Sscanf(v, "%d", &ver); err != nil {
			return nil, fmt.Errorf("%w: invalid session version", ErrRedisUnavailable)
		}
		sess.Version = ver
	case int64:
		sess.Version = v
	default:
		return nil, fmt.Errorf("%w: invalid session version", ErrRedisUnavailable)
	}

	return sess, nil
}

// CompareAndSwap writes the session back only if no other writer advanced it
// since the Get that produced sess.Version. On success the in-memory Version
// is bumped to match Redis.
//
// A terminal session is removed from the expiry index and kept for the
// retention window; an active session keeps (or extends) its TTL and reindexes
// under its current ExpiresAt.
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap + index update).
//	Security: CAS prevents lost updates under concurrent submits and sweeps.
func (s *Store) CompareAndSwap(ctx context.Context, sess *Session) error {
	terminal := sess.State.IsTerminal()

	var ttl time.Duration
	if terminal {
		ttl = s.retention
	} else {
		ttl = time.Until(time.Unix(sess.ExpiresAt, 0))
		if ttl < minSessionTTL {
			ttl = minSessionTTL
		}
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	terminalFlag := "0"
	if terminal {
		terminalFlag = "1"
	}

	res, err := casSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sess.SessionID), s.dueKey()},
		sess.Version,
		data,
		ttl.Milliseconds(),
		terminalFlag,
		sess.SessionID,
		sess.ExpiresAt,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch res {
	case -1:
		return ErrSessionNotFound
	case 0:
		return ErrVersionConflict
	default:
		sess.Version = res
		return nil
	}
}

// Transition validates the state edge against the transition table, applies
// it, and writes the session through CompareAndSwap.
func (s *Store) Transition(ctx context.Context, sess *Session, to State) error {
	if !CanTransition(sess.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, sess.State, to)
	}
	sess.State = to
	sess.UpdatedAt = time.Now().Unix()
	return s.CompareAndSwap(ctx, sess)
}

// DueSessions returns up to limit session IDs whose expiry deadline is at or
// before now. Used by the sweeper; stale index entries whose hash already
// vanished are pruned by the caller via Get returning ErrSessionNotFound.
//
//	Performance: 1 Redis ZRANGEBYSCORE.
func (s *Store) DueSessions(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	ids, err := s.redis.ZRangeByScore(ctx, s.dueKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: limit,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// DropDue removes session IDs from the expiry index. Used by the sweeper for
// entries whose backing session hash is already gone.
func (s *Store) DropDue(ctx context.Context, sessionIDs ...string) error {
	if len(sessionIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(sessionIDs))
	for i, id := range sessionIDs {
		members[i] = id
	}
	if err := s.redis.ZRem(ctx, s.dueKey(), members...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
