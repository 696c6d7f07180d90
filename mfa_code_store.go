package authcore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeCodeKeyPrefix     = "acc"
	challengeCodeRecordVersion = 1

	codePurposeEnroll    = "enroll"
	codePurposeChallenge = "challenge"
)

var (
	errChallengeCodeNotFound = errors.New("challenge code not found")
	errChallengeCodeBackend  = errors.New("challenge code backend unavailable")
)

// challengeCodeStore holds hashed transient SMS/email codes with a TTL.
// Codes are single-use: a successful consume deletes the record. Raw codes
// exist only in the dispatcher call; only hashes reach Redis.
type challengeCodeStore struct {
	redis *redis.Client
}

func newChallengeCodeStore(client *redis.Client) *challengeCodeStore {
	return &challengeCodeStore{redis: client}
}

func (s *challengeCodeStore) key(purpose, identityID string) string {
	return challengeCodeKeyPrefix + ":" + purpose + ":" + identityID
}

// Save stores the code hash, replacing any outstanding code for the same
// purpose. ttl bounds the validity period.
func (s *challengeCodeStore) Save(ctx context.Context, purpose, identityID string, codeHash [32]byte, ttl time.Duration) error {
	record := make([]byte, 1+len(codeHash))
	record[0] = challengeCodeRecordVersion
	copy(record[1:], codeHash[:])

	if err := s.redis.Set(ctx, s.key(purpose, identityID), record, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeCodeBackend, err)
	}
	return nil
}

// Consume compares the presented code hash and deletes the record on match.
// An expired or absent record reports not-found; a mismatch leaves the
// record in place for further attempts within its TTL.
func (s *challengeCodeStore) Consume(ctx context.Context, purpose, identityID string, codeHash [32]byte) (bool, error) {
	data, err := s.redis.Get(ctx, s.key(purpose, identityID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, errChallengeCodeNotFound
		}
		return false, fmt.Errorf("%w: %v", errChallengeCodeBackend, err)
	}

	if len(data) != 1+len(codeHash) || data[0] != challengeCodeRecordVersion {
		return false, errors.New("invalid challenge code record")
	}

	if subtle.ConstantTimeCompare(data[1:], codeHash[:]) != 1 {
		return false, nil
	}

	if err := s.redis.Del(ctx, s.key(purpose, identityID)).Err(); err != nil {
		return false, fmt.Errorf("%w: %v", errChallengeCodeBackend, err)
	}
	return true, nil
}

// Drop discards any outstanding code for the purpose.
func (s *challengeCodeStore) Drop(ctx context.Context, purpose, identityID string) error {
	if err := s.redis.Del(ctx, s.key(purpose, identityID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeCodeBackend, err)
	}
	return nil
}
