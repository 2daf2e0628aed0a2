package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/simplebiz/concierge/internal/apperr"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists conversations keyed by (business, session).
type Store struct {
	db DB
}

// NewStore creates a new conversation store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetBySession loads the conversation for a business/session pair.
func (s *Store) GetBySession(ctx context.Context, businessID uuid.UUID, sessionID string) (*Conversation, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, business_id, customer_id, session_id, intent, state, messages, created_at, updated_at
		FROM conversations
		WHERE business_id = $1 AND session_id = $2`, businessID, sessionID)

	var (
		c        Conversation
		stateRaw []byte
		msgsRaw  []byte
	)
	err := row.Scan(&c.ID, &c.BusinessID, &c.CustomerID, &c.SessionID, &c.Intent, &stateRaw, &msgsRaw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation: session %s: %w", sessionID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	if len(stateRaw) > 0 {
		if err := json.Unmarshal(stateRaw, &c.State); err != nil {
			return nil, fmt.Errorf("conversation: decode state: %w", err)
		}
	}
	if len(msgsRaw) > 0 {
		if err := json.Unmarshal(msgsRaw, &c.Messages); err != nil {
			return nil, fmt.Errorf("conversation: decode messages: %w", err)
		}
	}
	return &c, nil
}

// Upsert writes the conversation, inserting on first contact and updating
// thereafter. Uniqueness is on (business_id, session_id).
func (s *Store) Upsert(ctx context.Context, c *Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	stateRaw, err := json.Marshal(c.State)
	if err != nil {
		return fmt.Errorf("conversation: encode state: %w", err)
	}
	msgsRaw, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("conversation: encode messages: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO conversations (id, business_id, customer_id, session_id, intent, state, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (business_id, session_id) DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			intent = EXCLUDED.intent,
			state = EXCLUDED.state,
			messages = EXCLUDED.messages,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.BusinessID, c.CustomerID, c.SessionID, c.Intent, stateRaw, msgsRaw, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("conversation: upsert: %w", err)
	}
	return nil
}
