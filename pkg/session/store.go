package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/example/storefront/pkg/repository"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps server-side sessions in Redis. Every session of a user is also
// indexed in a per-user set so they can be revoked together.
type Store struct {
	redis *repository.RedisRepository
	ttl   time.Duration
}

func NewStore(redis *repository.RedisRepository, ttl time.Duration) *Store {
	return &Store{redis: redis, ttl: ttl}
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func userKey(userID uint) string {
	return "user_sessions:" + strconv.FormatUint(uint64(userID), 10)
}

func (s *Store) Create(ctx context.Context, userID uint) (*Session, error) {
	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.redis.SetJSON(ctx, sessionKey(sess.Token), sess, s.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if err := s.redis.AddToSet(ctx, userKey(userID), s.ttl, sess.Token); err != nil {
		return nil, fmt.Errorf("index session: %w", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	var sess Session
	if err := s.redis.GetJSON(ctx, sessionKey(token), &sess); err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &sess, nil
}

// Delete removes one session. Unknown tokens are not an error.
func (s *Store) Delete(ctx context.Context, token string) error {
	sess, err := s.Get(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.redis.Del(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return s.redis.RemoveFromSet(ctx, userKey(sess.UserID), token)
}

// DeleteAllForUser revokes every session of userID and returns how many were indexed.
func (s *Store) DeleteAllForUser(ctx context.Context, userID uint) (int, error) {
	tokens, err := s.redis.SetMembers(ctx, userKey(userID))
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	keys := make([]string, 0, len(tokens)+1)
	for _, t := range tokens {
		keys = append(keys, sessionKey(t))
	}
	keys = append(keys, userKey(userID))
	if err := s.redis.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return len(tokens), nil
}
