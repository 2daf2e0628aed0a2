package booking

import (
	"context"
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

// Store provides CRUD operations for appointments.
type Store struct {
	db DB
}

// NewStore creates a new appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const appointmentColumns = `id, business_id, customer_id, service_id, customer_name, customer_phone, service_name, start_time, end_time, price_cents, status, notes, created_at, updated_at`

// Insert persists a new appointment.
func (s *Store) Insert(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusPending
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.BusinessID, a.CustomerID, a.ServiceID, a.CustomerName, a.CustomerPhone,
		a.ServiceName, a.StartTime, a.EndTime, a.PriceCents, string(a.Status), a.Notes,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert appointment: %w", err)
	}
	return nil
}

// GetByID loads an appointment.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking: appointment %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load appointment: %w", err)
	}
	return a, nil
}

// CancelForBusiness marks an appointment cancelled, scoped to the owning
// business so one tenant cannot cancel another's bookings.
func (s *Store) CancelForBusiness(ctx context.Context, id, businessID uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled', updated_at = $1
		WHERE id = $2 AND business_id = $3
		RETURNING `+appointmentColumns, time.Now().UTC(), id, businessID)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking: appointment %s for business %s: %w", id, businessID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("booking: cancel appointment: %w", err)
	}
	return a, nil
}

// ListUpcomingForCustomer returns future pending/confirmed appointments for
// the customer, ascending by start time.
func (s *Store) ListUpcomingForCustomer(ctx context.Context, businessID uuid.UUID, phone string, asOf time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE business_id = $1 AND customer_phone = $2 AND start_time >= $3 AND status IN ('pending', 'confirmed')
		ORDER BY start_time ASC`, businessID, phone, asOf)
	if err != nil {
		return nil, fmt.Errorf("booking: list upcoming: %w", err)
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		appointments = append(appointments, *a)
	}
	return appointments, rows.Err()
}

// List returns appointments for a business with optional filters.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE business_id = $1`
	args := []any{f.BusinessID}

	if f.CustomerPhone != "" {
		args = append(args, f.CustomerPhone)
		query += fmt.Sprintf(" AND customer_phone = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND start_time <= $%d", len(args))
	}
	query += " ORDER BY start_time ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking: list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan appointment: %w", err)
		}
		appointments = append(appointments, *a)
	}
	return appointments, rows.Err()
}

// ListFilter narrows List results.
type ListFilter struct {
	BusinessID    uuid.UUID
	CustomerPhone string
	Status        Status
	From          time.Time
	To            time.Time
}

// ExistsOverlapping reports whether a live appointment overlaps [start, end)
// for the business.
func (s *Store) ExistsOverlapping(ctx context.Context, businessID uuid.UUID, start, end time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE business_id = $1
			  AND status IN ('pending', 'confirmed')
			  AND start_time < $3 AND end_time > $2
		)`, businessID, start, end).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("booking: overlap check: %w", err)
	}
	return exists, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a      Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.BusinessID, &a.CustomerID, &a.ServiceID, &a.CustomerName,
		&a.CustomerPhone, &a.ServiceName, &a.StartTime, &a.EndTime, &a.PriceCents,
		&status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = Status(status)
	return &a, nil
}
