package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when no record exists for the session id.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionNotActive is returned when the record exists but is terminated or
// expired, or was just transitioned to expired by a lazy-expiry check.
var ErrSessionNotActive = errors.New("session not active")

// ErrRedisUnavailable wraps transient Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

const txMaxRetries = 4

// Store is a Redis-backed session authority. Records carry no TTL: a session
// is flipped to a terminal status, never deleted, so the login history stays
// queryable per user.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "cs"
	}
	return &Store{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":s:" + sessionID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

// Create persists a new session record and indexes it under the owning user.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.SessionID), data, 0)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.SessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads a session record regardless of status.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID
	return sess, nil
}

// Validate returns the session only if it is active and its refresh window
// has not passed. When the window has lapsed the record is transitioned to
// expired before [ErrSessionNotActive] is reported — lazy expiry, applied at
// most once; repeat calls observe the terminal status without writing.
func (s *Store) Validate(ctx context.Context, sessionID string) (*Session, error) {
	key := s.key(sessionID)

	for i := 0; i < txMaxRetries; i++ {
		var valid *Session

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			sess, err := Decode(data)
			if err != nil {
				return err
			}
			sess.SessionID = sessionID

			if sess.Status != StatusActive {
				return ErrSessionNotActive
			}

			if sess.RefreshExpiresAt <= s.now().Unix() {
				sess.Status = StatusExpired
				updated, err := Encode(sess)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, 0)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrSessionNotActive
			}

			valid = sess
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, mapTxError(err)
		}

		return valid, nil
	}

	return nil, ErrSessionNotActive
}

// Terminate flips an active session to terminated and stamps the session end.
// Terminal and non-reversible; a session that already left the active state
// reports [ErrSessionNotActive].
func (s *Store) Terminate(ctx context.Context, sessionID string) error {
	key := s.key(sessionID)

	for i := 0; i < txMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			sess, err := Decode(data)
			if err != nil {
				return err
			}

			if sess.Status != StatusActive {
				return ErrSessionNotActive
			}

			sess.Status = StatusTerminated
			sess.EndedAt = s.now().Unix()

			updated, err := Encode(sess)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, 0)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return mapTxError(err)
		}

		return nil
	}

	return ErrSessionNotActive
}

// UserSessions lists every recorded session for a user, newest first by
// session start. Terminal sessions are included: the index is an audit trail.
func (s *Store) UserSessions(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt > sessions[j].StartedAt
	})
	return sessions, nil
}

func mapTxError(err error) error {
	switch {
	case errors.Is(err, redis.Nil):
		return ErrSessionNotFound
	case errors.Is(err, ErrSessionNotActive):
		return ErrSessionNotActive
	default:
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
}
