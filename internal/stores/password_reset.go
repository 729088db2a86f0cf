package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetRecordVersionV1 = 1

// ResetStatus is the lifecycle state of a password-reset request.
type ResetStatus uint8

const (
	// ResetPending awaits a correct one-time code.
	ResetPending ResetStatus = iota + 1
	// ResetVerified has matched its code and may complete a password change.
	ResetVerified
	// ResetCompleted finished a password change. Terminal.
	ResetCompleted
	// ResetRevoked was invalidated by attempts, expiry, or supersession. Terminal.
	ResetRevoked
)

var (
	// ErrResetNotFound is returned when no record exists for the request id.
	ErrResetNotFound = errors.New("reset record not found")
	// ErrResetNotPending is returned when a verify targets a non-pending record.
	ErrResetNotPending = errors.New("reset record not pending")
	// ErrResetNotVerified is returned when a completion targets a non-verified record.
	ErrResetNotVerified = errors.New("reset record not verified")
	// ErrResetCodeMismatch is returned on a wrong one-time code below the ceiling.
	ErrResetCodeMismatch = errors.New("reset code mismatch")
	// ErrResetAttemptsExceeded is returned when the wrong-code ceiling is hit.
	ErrResetAttemptsExceeded = errors.New("reset attempts exceeded")
	// ErrResetSourceMismatch is returned when the verifying IP differs from the
	// creating IP. Does not consume an attempt.
	ErrResetSourceMismatch = errors.New("reset source mismatch")
	// ErrResetExpired is returned when the request window has passed.
	ErrResetExpired = errors.New("reset record expired")
	// ErrResetRedisUnavailable wraps transient Redis failures.
	ErrResetRedisUnavailable = errors.New("reset redis unavailable")
)

const txMaxRetries = 4

// PasswordResetRecord is the stored state of one reset request. Only the
// SHA-256 of the one-time code is held, never the code itself.
type PasswordResetRecord struct {
	UserID    string
	CodeHash  [32]byte
	Status    ResetStatus
	Attempts  uint16
	ExpiresAt int64 // unix seconds
	CreatedAt int64 // unix seconds
	IPAddress string
}

// PasswordResetStore persists reset requests in Redis. At most one live
// (pending or verified) request exists per user: Create revokes all prior
// live requests before registering the new one.
type PasswordResetStore struct {
	redis     redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewPasswordResetStore creates a reset store. retention bounds how long
// terminal records linger before Redis reclaims them; zero keeps them forever.
func NewPasswordResetStore(redisClient redis.UniversalClient, prefix string, retention time.Duration) *PasswordResetStore {
	if prefix == "" {
		prefix = "cpr"
	}
	return &PasswordResetStore{
		redis:     redisClient,
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}
}

func (s *PasswordResetStore) key(requestID string) string {
	return s.prefix + ":r:" + requestID
}

func (s *PasswordResetStore) liveKey(userID string) string {
	return s.prefix + ":live:" + userID
}

// Create registers a new pending request after revoking every prior live
// request for the same user. Each prior request is revoked in its own
// single-record transaction; a concurrent verify observes either the
// pre-revocation or post-revocation record, never a partial state.
func (s *PasswordResetStore) Create(ctx context.Context, requestID string, record *PasswordResetRecord) error {
	if err := s.RevokeAllForUser(ctx, record.UserID, ""); err != nil {
		return err
	}

	encoded, err := encodePasswordResetRecord(record)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(requestID), encoded, 0)
		pipe.SAdd(ctx, s.liveKey(record.UserID), requestID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}

	return nil
}

// Get loads a reset record regardless of status.
func (s *PasswordResetStore) Get(ctx context.Context, requestID string) (*PasswordResetRecord, error) {
	data, err := s.redis.Get(ctx, s.key(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResetNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
	return decodePasswordResetRecord(data)
}

// Verify runs the one-time-code guard chain against a pending record inside a
// single optimistic transaction:
//
//	wrong code   -> attempts+1; ceiling reached -> revoked, ErrResetAttemptsExceeded
//	             -> otherwise ErrResetCodeMismatch
//	wrong source -> ErrResetSourceMismatch, no attempt consumed
//	expired      -> revoked, ErrResetExpired
//	otherwise    -> verified
func (s *PasswordResetStore) Verify(
	ctx context.Context,
	requestID string,
	providedHash [32]byte,
	requesterIP string,
	maxAttempts int,
) error {
	key := s.key(requestID)

	for i := 0; i < txMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodePasswordResetRecord(data)
			if err != nil {
				return err
			}

			if record.Status != ResetPending {
				return ErrResetNotPending
			}

			if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
				record.Attempts++
				if int(record.Attempts) >= maxAttempts {
					record.Status = ResetRevoked
					if err := s.writeRecord(ctx, tx, key, record); err != nil {
						return err
					}
					return ErrResetAttemptsExceeded
				}
				if err := s.writeRecord(ctx, tx, key, record); err != nil {
					return err
				}
				return ErrResetCodeMismatch
			}

			if record.IPAddress != requesterIP {
				return ErrResetSourceMismatch
			}

			if s.now().Unix() > record.ExpiresAt {
				record.Status = ResetRevoked
				if err := s.writeRecord(ctx, tx, key, record); err != nil {
					return err
				}
				return ErrResetExpired
			}

			record.Status = ResetVerified
			return s.writeRecord(ctx, tx, key, record)
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		return mapResetError(err)
	}

	return ErrResetNotPending
}

// Complete flips a verified record to completed. Presenting the same request
// again always fails the status guard: completion is terminal.
func (s *PasswordResetStore) Complete(ctx context.Context, requestID string) (*PasswordResetRecord, error) {
	key := s.key(requestID)

	for i := 0; i < txMaxRetries; i++ {
		var completed *PasswordResetRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodePasswordResetRecord(data)
			if err != nil {
				return err
			}

			if record.Status != ResetVerified {
				return ErrResetNotVerified
			}

			record.Status = ResetCompleted
			if err := s.writeRecord(ctx, tx, key, record); err != nil {
				return err
			}

			completed = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, mapResetError(err)
		}

		if err := s.redis.SRem(ctx, s.liveKey(completed.UserID), requestID).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
		}
		return completed, nil
	}

	return nil, ErrResetNotVerified
}

// RevokeAllForUser revokes every live request for the user except exceptID.
// Each record is revoked independently in its own transaction.
func (s *PasswordResetStore) RevokeAllForUser(ctx context.Context, userID, exceptID string) error {
	liveKey := s.liveKey(userID)

	ids, err := s.redis.SMembers(ctx, liveKey).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}

	for _, id := range ids {
		if id == exceptID {
			continue
		}
		if err := s.revokeOne(ctx, id); err != nil {
			return err
		}
		if err := s.redis.SRem(ctx, liveKey, id).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
		}
	}

	return nil
}

func (s *PasswordResetStore) revokeOne(ctx context.Context, requestID string) error {
	key := s.key(requestID)

	for i := 0; i < txMaxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodePasswordResetRecord(data)
			if err != nil {
				return err
			}

			if record.Status != ResetPending && record.Status != ResetVerified {
				// Already terminal; supersession is idempotent.
				return nil
			}

			record.Status = ResetRevoked
			return s.writeRecord(ctx, tx, key, record)
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if errors.Is(err, redis.Nil) {
			// Dangling index entry; the record is gone.
			return nil
		}
		return mapResetError(err)
	}

	return nil
}

func (s *PasswordResetStore) writeRecord(ctx context.Context, tx *redis.Tx, key string, record *PasswordResetRecord) error {
	encoded, err := encodePasswordResetRecord(record)
	if err != nil {
		return err
	}

	ttl := time.Duration(0)
	if s.retention > 0 && (record.Status == ResetCompleted || record.Status == ResetRevoked) {
		ttl = s.retention
	}

	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, encoded, ttl)
		return nil
	})
	return err
}

func mapResetError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return ErrResetNotFound
	case errors.Is(err, ErrResetNotPending),
		errors.Is(err, ErrResetNotVerified),
		errors.Is(err, ErrResetCodeMismatch),
		errors.Is(err, ErrResetAttemptsExceeded),
		errors.Is(err, ErrResetSourceMismatch),
		errors.Is(err, ErrResetExpired):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrResetRedisUnavailable, err)
	}
}

func encodePasswordResetRecord(record *PasswordResetRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetRecordVersionV1)
	buf.WriteByte(byte(record.Status))

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt); err != nil {
		return nil, err
	}

	for _, value := range []string{record.UserID, record.IPAddress} {
		if len(value) > 65535 {
			return nil, errors.New("reset record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(value))); err != nil {
			return nil, err
		}
		buf.WriteString(value)
	}

	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodePasswordResetRecord(data []byte) (*PasswordResetRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != resetRecordVersionV1 {
		return nil, errors.New("invalid reset record version")
	}

	status, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &PasswordResetRecord{
		Status: ResetStatus(status),
	}

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.CreatedAt); err != nil {
		return nil, err
	}

	for _, field := range []*string{&record.UserID, &record.IPAddress} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
