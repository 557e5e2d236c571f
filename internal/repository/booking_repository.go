package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cleanhub/internal/models"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrBookingStale is returned when the booking left the expected status
	// before a conditional update could apply.
	ErrBookingStale = errors.New("booking status changed concurrently")
)

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingSelect = `
	SELECT b.id, b.client_id, b.cleaner_id, cp.user_id, b.service, b.address, b.scheduled_at,
		b.status, b.latitude, b.longitude, b.eta_minutes, b.tracking_note, b.tracking_updated_at,
		b.created_at, b.updated_at
	FROM bookings b
	JOIN cleaner_profiles cp ON cp.id = b.cleaner_id
`

func (r *BookingRepository) Create(ctx context.Context, b models.Booking) error {
	const query = `
		INSERT INTO bookings (
			id, client_id, cleaner_id, service, address, scheduled_at, status,
			tracking_updated_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $8)
	`
	_, err := r.db.Exec(ctx, query,
		b.ID,
		b.ClientID,
		b.CleanerID,
		b.Service,
		b.Address,
		b.ScheduledAt,
		string(b.Status),
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (models.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Booking{}, ErrBookingNotFound
		}
		return models.Booking{}, err
	}
	return b, nil
}

// ListForUser returns bookings where userID is the client or the assigned cleaner.
func (r *BookingRepository) ListForUser(ctx context.Context, userID string, limit int) ([]models.Booking, error) {
	rows, err := r.db.Query(ctx,
		bookingSelect+` WHERE b.client_id = $1 OR cp.user_id = $1 ORDER BY b.created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// SaveTracking writes the tracking snapshot only if the booking is still in
// expected. A lost race surfaces as ErrBookingStale.
func (r *BookingRepository) SaveTracking(ctx context.Context, expected models.BookingStatus, t models.Tracking) error {
	const query = `
		UPDATE bookings SET
			status = $3,
			latitude = $4,
			longitude = $5,
			eta_minutes = $6,
			tracking_note = $7,
			tracking_updated_at = $8,
			updated_at = $8
		WHERE id = $1 AND status = $2
	`
	cmd, err := r.db.Exec(ctx, query,
		t.BookingID,
		string(expected),
		string(t.Status),
		t.Latitude,
		t.Longitude,
		t.ETAMinutes,
		t.Note,
		t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tracking: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, t.BookingID); err != nil {
			return err
		}
		return ErrBookingStale
	}
	return nil
}

func scanBooking(row pgx.Row) (models.Booking, error) {
	var b models.Booking
	var status string
	err := row.Scan(
		&b.ID,
		&b.ClientID,
		&b.CleanerID,
		&b.CleanerUser,
		&b.Service,
		&b.Address,
		&b.ScheduledAt,
		&status,
		&b.Tracking.Latitude,
		&b.Tracking.Longitude,
		&b.Tracking.ETAMinutes,
		&b.Tracking.Note,
		&b.Tracking.UpdatedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	b.Status = models.BookingStatus(status)
	b.Tracking.BookingID = b.ID
	b.Tracking.Status = b.Status
	return b, err
}
