package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/cafe-swipe/internal/cafe"
)

// DefaultSessionTTL bounds how long a search session stays swipeable.
const DefaultSessionTTL = 2 * time.Hour

// SessionStore keeps search sessions and their swiped cards in Redis.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore. A non-positive ttl uses DefaultSessionTTL.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return "cafe:session:" + id
}

func swipedKey(id string) string {
	return "cafe:session:" + id + ":swiped"
}

// Get retrieves a session.
// Returns nil, nil when the session does not exist or has expired.
func (s *SessionStore) Get(ctx context.Context, id string) (*cafe.Session, error) {
	val, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("session get %s: %w", id, err)
	}

	var sess cafe.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return nil, fmt.Errorf("unmarshaling session %s: %w", id, err)
	}

	return &sess, nil
}

// Save stores the whole session, replacing any previous value, and resets
// its swiped cards.
func (s *SessionStore) Save(ctx context.Context, sess *cafe.Session) error {
	if sess == nil {
		return nil
	}

	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshaling session %s: %w", sess.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sess.ID), b, s.ttl)
		pipe.Del(ctx, swipedKey(sess.ID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("session save %s: %w", sess.ID, err)
	}

	return nil
}

// Delete removes a session and its swiped cards.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKey(id), swipedKey(id)).Err(); err != nil {
		return fmt.Errorf("session delete %s: %w", id, err)
	}
	return nil
}

// MarkSwiped records a gesture on a card. It reports true only for the
// first gesture on that card within the session.
func (s *SessionStore) MarkSwiped(ctx context.Context, id, placeID string) (bool, error) {
	var added *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.SAdd(ctx, swipedKey(id), placeID)
		pipe.Expire(ctx, swipedKey(id), s.ttl)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("marking card %s swiped in session %s: %w", placeID, id, err)
	}

	return added.Val() == 1, nil
}

// UnmarkSwiped releases a card so the next gesture on it counts again.
func (s *SessionStore) UnmarkSwiped(ctx context.Context, id, placeID string) error {
	if err := s.client.SRem(ctx, swipedKey(id), placeID).Err(); err != nil {
		return fmt.Errorf("unmarking card %s in session %s: %w", placeID, id, err)
	}
	return nil
}
