package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the hot view of an in-progress charging session.
type ActiveSession struct {
	SessionID     int64     `json:"session_id"`
	BookingID     int64     `json:"booking_id"`
	DriverID      int64     `json:"driver_id"`
	ConnectorType string    `json:"connector_type"`
	StartedAt     time.Time `json:"started_at"`
}

// ActiveSessionStore manages the redis cache of in-progress sessions.
type ActiveSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewActiveSessionStore returns redis-backed store.
func NewActiveSessionStore(client *redis.Client, ttl time.Duration) *ActiveSessionStore {
	return &ActiveSessionStore{client: client, ttl: ttl}
}

func (s *ActiveSessionStore) key(sessionID int64) string {
	return fmt.Sprintf("evreserve:sessions:active:%d", sessionID)
}

// Save caches session.
func (s *ActiveSessionStore) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.SessionID), data, s.ttl).Err()
}

// Get returns cached session.
func (s *ActiveSessionStore) Get(ctx context.Context, sessionID int64) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes cached session.
func (s *ActiveSessionStore) Delete(ctx context.Context, sessionID int64) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}
