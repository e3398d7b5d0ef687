// Package idempotency stores the outcome of mutating requests in Redis so a
// retried request carrying the same Idempotency-Key replays the first response.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "idem:"
	// provisionalTTL bounds how long an in-flight request holds its key.
	provisionalTTL = 60 * time.Second
	defaultTTL     = 24 * time.Hour
)

// Entry is the stored state of one idempotent request.
type Entry struct {
	InProgress bool      `json:"inProgress"`
	Status     int       `json:"status"`
	Body       []byte    `json:"body"`
	BodySHA256 string    `json:"bodySha256"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists idempotency entries in Redis.
type Store struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewStore creates a store whose completed entries live for ttl.
func NewStore(rdb redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Key builds the storage key for a caller-scoped idempotency key.
func Key(scope, subject, idempotencyKey string) string {
	return fmt.Sprintf("%s%s:%s:%s", keyPrefix, scope, subject, idempotencyKey)
}

// HashBody returns the hex SHA-256 of a request body.
func HashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Begin claims key for a new request. When the key is already held it
// returns the existing entry and started=false.
func (s *Store) Begin(ctx context.Context, key, bodyHash string) (Entry, bool, error) {
	provisional := Entry{InProgress: true, BodySHA256: bodyHash, CreatedAt: time.Now().UTC()}
	raw, err := json.Marshal(provisional)
	if err != nil {
		return Entry{}, false, err
	}

	ok, err := s.rdb.SetNX(ctx, key, raw, provisionalTTL).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("idempotency begin: %w", err)
	}
	if ok {
		return provisional, true, nil
	}

	existing, err := s.Load(ctx, key)
	if err != nil {
		return Entry{}, false, err
	}
	return existing, false, nil
}

// Load reads the entry stored at key.
func (s *Store) Load(ctx context.Context, key string) (Entry, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("idempotency load: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, fmt.Errorf("idempotency decode: %w", err)
	}
	return entry, nil
}

// Complete records the final response for key.
func (s *Store) Complete(ctx context.Context, key string, status int, body []byte, bodyHash string) error {
	raw, err := json.Marshal(Entry{
		Status:     status,
		Body:       body,
		BodySHA256: bodyHash,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, raw, s.ttl).Err()
}

// Release drops key so the client may retry with it.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("idempotency entry not found")
