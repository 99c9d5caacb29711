package otp

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "otp:v1:"

var (
	// ErrExpired covers both a code that was never issued and one whose TTL
	// has lapsed; callers cannot distinguish the two, deliberately.
	ErrExpired = errors.New("otp expired or not issued")

	// ErrMismatch indicates the presented code does not match the issued one.
	ErrMismatch = errors.New("otp does not match")
)

// Store keeps one-time codes in Redis under an explicit TTL that is enforced
// on read by the store itself. Codes are kept bcrypt-hashed and are consumed
// on successful verification, so a code can be used at most once.
type Store struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewStore builds an OTP store with the given code lifetime.
func NewStore(cache *redis.Client, ttl time.Duration) *Store {
	return &Store{cache: cache, ttl: ttl}
}

// Issue stores the code for the key, replacing any previous code.
func (s *Store) Issue(ctx context.Context, key, code string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, keyPrefix+key, hash, s.ttl).Err()
}

// Verify checks the presented code and consumes it on success.
func (s *Store) Verify(ctx context.Context, key, code string) error {
	hash, err := s.cache.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return ErrExpired
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) != nil {
		return ErrMismatch
	}
	return s.cache.Del(ctx, keyPrefix+key).Err()
}
