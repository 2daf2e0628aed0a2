package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides CRUD operations for reminders.
type Store struct {
	db DB
}

// NewStore creates a new reminder store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const reminderColumns = `id, business_id, appointment_id, type, scheduled_at, message, status, sent_at, created_at, updated_at`

// Create inserts a new pending reminder.
func (s *Store) Create(ctx context.Context, r *Reminder) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.Status == "" {
		r.Status = StatusPending
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.BusinessID, r.AppointmentID, string(r.Type), r.ScheduledAt, r.Message,
		string(r.Status), r.SentAt, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("reminders: create: %w", err)
	}
	return nil
}

// ListDue returns pending reminders whose fire time is on or before asOf,
// oldest first.
func (s *Store) ListDue(ctx context.Context, asOf time.Time) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC`, asOf)
	if err != nil {
		return nil, fmt.Errorf("reminders: list due: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// ListByAppointment returns all reminders for an appointment.
func (s *Store) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE appointment_id = $1
		ORDER BY scheduled_at ASC`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("reminders: list by appointment: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// MarkSent transitions a reminder from pending to sent.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'sent', sent_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, now, id)
	if err != nil {
		return fmt.Errorf("reminders: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminders: mark sent: no pending reminder with id %s", id)
	}
	return nil
}

// MarkFailed transitions a reminder from pending to failed.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'failed', updated_at = $1
		WHERE id = $2 AND status = 'pending'`, now, id)
	if err != nil {
		return fmt.Errorf("reminders: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminders: mark failed: no pending reminder with id %s", id)
	}
	return nil
}

// Cancel transitions a single reminder to cancelled without touching
// terminal rows.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'cancelled', updated_at = $1
		WHERE id = $2 AND status = 'pending'`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reminders: cancel: %w", err)
	}
	return nil
}

// CancelAll bulk-transitions an appointment's pending reminders to cancelled.
// Idempotent: reminders already terminal are left alone.
func (s *Store) CancelAll(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		UPDATE reminders SET status = 'cancelled', updated_at = $1
		WHERE appointment_id = $2 AND status = 'pending'`, time.Now().UTC(), appointmentID)
	if err != nil {
		return fmt.Errorf("reminders: cancel all: %w", err)
	}
	return nil
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var reminders []Reminder
	for rows.Next() {
		var (
			r            Reminder
			rType        string
			status       string
		)
		if err := rows.Scan(&r.ID, &r.BusinessID, &r.AppointmentID, &rType, &r.ScheduledAt,
			&r.Message, &status, &r.SentAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("reminders: scan: %w", err)
		}
		r.Type = Type(rType)
		r.Status = Status(status)
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}
