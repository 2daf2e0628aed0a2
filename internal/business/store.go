package business

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

// Store provides read access to businesses and services plus customer upserts.
type Store struct {
	db DB
}

// NewStore creates a new business store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetBusiness loads a business by id.
func (s *Store) GetBusiness(ctx context.Context, id uuid.UUID) (*Business, error) {
	var (
		b        Business
		hoursRaw []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, name, whatsapp_gateway_url, operating_hours, google_calendar_id, google_credentials, timezone, created_at
		FROM businesses
		WHERE id = $1`, id,
	).Scan(&b.ID, &b.Name, &b.WhatsAppGatewayURL, &hoursRaw, &b.GoogleCalendarID, &b.GoogleCredentials, &b.Timezone, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("business: %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("business: load: %w", err)
	}

	if len(hoursRaw) > 0 {
		// Operating hours are stored as opaque JSON; a non-object value is
		// kept nil and callers fall back to the default schedule.
		var hours map[string]any
		if err := json.Unmarshal(hoursRaw, &hours); err == nil {
			b.OperatingHours = hours
		}
	}
	return &b, nil
}

// ListActiveServices returns a business's active services in name order.
func (s *Store) ListActiveServices(ctx context.Context, businessID uuid.UUID) ([]Service, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, business_id, name, description, duration_min, price_cents, is_active
		FROM services
		WHERE business_id = $1 AND is_active
		ORDER BY name ASC`, businessID)
	if err != nil {
		return nil, fmt.Errorf("business: list services: %w", err)
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var svc Service
		if err := rows.Scan(&svc.ID, &svc.BusinessID, &svc.Name, &svc.Description, &svc.DurationMin, &svc.PriceCents, &svc.IsActive); err != nil {
			return nil, fmt.Errorf("business: scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// GetService loads a single service by id.
func (s *Store) GetService(ctx context.Context, id uuid.UUID) (*Service, error) {
	var svc Service
	err := s.db.QueryRow(ctx, `
		SELECT id, business_id, name, description, duration_min, price_cents, is_active
		FROM services
		WHERE id = $1`, id,
	).Scan(&svc.ID, &svc.BusinessID, &svc.Name, &svc.Description, &svc.DurationMin, &svc.PriceCents, &svc.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("business: service %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("business: load service: %w", err)
	}
	return &svc, nil
}

// TouchCustomer upserts the (business, phone) customer and bumps the last
// contact time. Called on every inbound message.
func (s *Store) TouchCustomer(ctx context.Context, businessID uuid.UUID, phone string) (*Customer, error) {
	now := time.Now().UTC()
	var c Customer
	err := s.db.QueryRow(ctx, `
		INSERT INTO customers (id, business_id, phone, name, total_bookings, last_contacted_at, created_at, updated_at)
		VALUES ($1, $2, $3, '', 0, $4, $4, $4)
		ON CONFLICT (business_id, phone)
		DO UPDATE SET last_contacted_at = EXCLUDED.last_contacted_at, updated_at = EXCLUDED.updated_at
		RETURNING id, business_id, phone, name, total_bookings, last_contacted_at`,
		uuid.New(), businessID, phone, now,
	).Scan(&c.ID, &c.BusinessID, &c.Phone, &c.Name, &c.TotalBookings, &c.LastContactedAt)
	if err != nil {
		return nil, fmt.Errorf("business: touch customer: %w", err)
	}
	return &c, nil
}

// RecordCustomerBooking upserts the customer and increments the lifetime
// booking counter, optionally refreshing the stored name.
func (s *Store) RecordCustomerBooking(ctx context.Context, businessID uuid.UUID, phone, name string) (*Customer, error) {
	now := time.Now().UTC()
	var c Customer
	err := s.db.QueryRow(ctx, `
		INSERT INTO customers (id, business_id, phone, name, total_bookings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5)
		ON CONFLICT (business_id, phone)
		DO UPDATE SET
			total_bookings = customers.total_bookings + 1,
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE customers.name END,
			updated_at = EXCLUDED.updated_at
		RETURNING id, business_id, phone, name, total_bookings, last_contacted_at`,
		uuid.New(), businessID, phone, name, now,
	).Scan(&c.ID, &c.BusinessID, &c.Phone, &c.Name, &c.TotalBookings, &c.LastContactedAt)
	if err != nil {
		return nil, fmt.Errorf("business: record customer booking: %w", err)
	}
	return &c, nil
}
