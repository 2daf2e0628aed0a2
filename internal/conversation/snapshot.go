package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/simplebiz/concierge/internal/apperr"
)

// OfferedSlot is one entry of the slot list shown to a customer, kept
// exactly as displayed so a numeric reply resolves against what the
// customer actually saw.
type OfferedSlot struct {
	ID   string `json:"id"`
	Day  string `json:"day"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// SnapshotStore caches the ordered slot list offered to a session. Entries
// expire so a stale menu cannot book a long-gone slot.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotStore wraps a redis client. ttl <= 0 defaults to 15 minutes.
func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if client == nil {
		panic("conversation: redis client required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(businessID uuid.UUID, sessionID string) string {
	return fmt.Sprintf("concierge:slots:%s:%s", businessID, sessionID)
}

// Save stores the offered slot list for a session.
func (s *SnapshotStore) Save(ctx context.Context, businessID uuid.UUID, sessionID string, offered []OfferedSlot) error {
	raw, err := json.Marshal(offered)
	if err != nil {
		return fmt.Errorf("conversation: encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(businessID, sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: save snapshot: %w", err)
	}
	return nil
}

// Get loads the offered slot list, or apperr.ErrNotFound when the snapshot
// expired or was never written.
func (s *SnapshotStore) Get(ctx context.Context, businessID uuid.UUID, sessionID string) ([]OfferedSlot, error) {
	raw, err := s.client.Get(ctx, snapshotKey(businessID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("conversation: slot snapshot: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: load snapshot: %w", err)
	}
	var offered []OfferedSlot
	if err := json.Unmarshal(raw, &offered); err != nil {
		return nil, fmt.Errorf("conversation: decode snapshot: %w", err)
	}
	return offered, nil
}

// Clear drops a session's snapshot. Missing keys are not an error.
func (s *SnapshotStore) Clear(ctx context.Context, businessID uuid.UUID, sessionID string) error {
	if err := s.client.Del(ctx, snapshotKey(businessID, sessionID)).Err(); err != nil {
		return fmt.Errorf("conversation: clear snapshot: %w", err)
	}
	return nil
}
