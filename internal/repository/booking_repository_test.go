package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanhub/internal/models"
)

var bookingRowColumns = []string{
	"id", "client_id", "cleaner_id", "user_id", "service", "address", "scheduled_at",
	"status", "latitude", "longitude", "eta_minutes", "tracking_note", "tracking_updated_at",
	"created_at", "updated_at",
}

func TestBookingRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	lat := -1.28
	mock.ExpectQuery("WHERE b.id").
		WithArgs("b1").
		WillReturnRows(pgxmock.NewRows(bookingRowColumns).AddRow(
			"b1", "c1", "p1", "u-cleaner", "house_cleaning", "Kilimani", now,
			"en_route", &lat, (*float64)(nil), (*int)(nil), "", now, now, now,
		))

	repo := NewBookingRepository(mock)
	b, err := repo.GetByID(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "u-cleaner", b.CleanerUser)
	assert.Equal(t, models.BookingEnRoute, b.Status)
	assert.Equal(t, models.BookingEnRoute, b.Tracking.Status)
	assert.Equal(t, "b1", b.Tracking.BookingID)
	require.NotNil(t, b.Tracking.Latitude)
	assert.Equal(t, lat, *b.Tracking.Latitude)
	assert.Nil(t, b.Tracking.Longitude)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositorySaveTrackingStale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE bookings SET").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("WHERE b.id").
		WithArgs("b1").
		WillReturnRows(pgxmock.NewRows(bookingRowColumns).AddRow(
			"b1", "c1", "p1", "u-cleaner", "house_cleaning", "Kilimani", now,
			"cancelled", (*float64)(nil), (*float64)(nil), (*int)(nil), "", now, now, now,
		))

	repo := NewBookingRepository(mock)
	err = repo.SaveTracking(context.Background(), models.BookingAccepted, models.Tracking{
		BookingID: "b1",
		Status:    models.BookingEnRoute,
		UpdatedAt: now,
	})
	assert.ErrorIs(t, err, ErrBookingStale)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryMarkReadOtherUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE notifications SET read_at").
		WithArgs("n1", "intruder", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewNotificationRepository(mock)
	err = repo.MarkRead(context.Background(), "intruder", "n1", at)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
