// Package reset stores one-time password reset tokens in Redis. Only a hash
// of the secret is kept; the plaintext token exists in the reset email alone.
package reset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidToken     = errors.New("invalid or expired reset token")
	ErrRedisUnavailable = errors.New("reset store unavailable")
)

const (
	keyPrefix          = "pwreset:"
	DefaultMaxAttempts = 5
)

type record struct {
	UserID     uint   `json:"user_id"`
	SecretHash []byte `json:"secret_hash"`
	Attempts   int    `json:"attempts"`
}

type Store struct {
	redis       redis.UniversalClient
	ttl         time.Duration
	maxAttempts int
}

func NewStore(rdb redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{redis: rdb, ttl: ttl, maxAttempts: DefaultMaxAttempts}
}

// Issue creates a reset record for userID and returns the token to mail out,
// formatted as "<id>.<secret>".
func (s *Store) Issue(ctx context.Context, userID uint) (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("reset secret: %w", err)
	}
	id := uuid.NewString()
	sum := sha256.Sum256(secret)

	data, err := json.Marshal(record{UserID: userID, SecretHash: sum[:]})
	if err != nil {
		return "", err
	}
	if err := s.redis.Set(ctx, keyPrefix+id, data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return id + "." + base64.RawURLEncoding.EncodeToString(secret), nil
}

// Consume validates the token and deletes it on success. A wrong secret
// counts an attempt; the record is dropped after maxAttempts misses.
func (s *Store) Consume(ctx context.Context, token string) (uint, error) {
	id, secretStr, ok := strings.Cut(token, ".")
	if !ok || uuid.Validate(id) != nil {
		return 0, ErrInvalidToken
	}
	secret, err := base64.RawURLEncoding.DecodeString(secretStr)
	if err != nil {
		return 0, ErrInvalidToken
	}
	provided := sha256.Sum256(secret)
	key := keyPrefix + id

	const maxRetries = 4
	for i := 0; i < maxRetries; i++ {
		var userID uint
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}
			var rec record
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}

			if subtle.ConstantTimeCompare(rec.SecretHash, provided[:]) != 1 {
				rec.Attempts++
				_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					if rec.Attempts >= s.maxAttempts {
						pipe.Del(ctx, key)
						return nil
					}
					updated, err := json.Marshal(rec)
					if err != nil {
						return err
					}
					pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
					return nil
				})
				if err != nil {
					return err
				}
				return ErrInvalidToken
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			userID = rec.UserID
			return nil
		}, key)

		switch {
		case errors.Is(err, redis.TxFailedErr):
			continue
		case err == nil:
			return userID, nil
		case errors.Is(err, redis.Nil), errors.Is(err, ErrInvalidToken):
			return 0, ErrInvalidToken
		default:
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return 0, ErrInvalidToken
}
