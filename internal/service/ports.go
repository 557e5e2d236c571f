package service

import (
	"context"
	"time"

	"cleanhub/internal/models"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByPhone(ctx context.Context, phone string) (models.User, error)
	FindByName(ctx context.Context, name string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdateName(ctx context.Context, id string, name string) (models.User, error)
	UpdateProfileImage(ctx context.Context, id string, url string) (models.User, error)
}

// Passwords hashes and checks passwords. VerifyDummy spends the work of a
// Verify when there is no stored hash to check against.
type Passwords interface {
	Hash(password string) ([]byte, error)
	Verify(password string, hash []byte) (bool, error)
	VerifyDummy(password string)
}

type DeviceTokenStore interface {
	Upsert(ctx context.Context, token models.DeviceToken) error
	Delete(ctx context.Context, userID string, token string) error
}

type ProfileStore interface {
	Create(ctx context.Context, p models.CleanerProfile) error
	GetByID(ctx context.Context, id string) (models.CleanerProfile, error)
	GetByUserID(ctx context.Context, userID string) (models.CleanerProfile, error)
	UpdateFields(ctx context.Context, userID string, f models.ProfileFields) (models.CleanerProfile, error)
	ApplyDecision(ctx context.Context, profileID string, d models.Decision) (models.CleanerProfile, error)
	History(ctx context.Context, profileID string) ([]models.HistoryEntry, error)
	ListPending(ctx context.Context, f models.PendingFilter) ([]models.CleanerProfile, int, error)
	ListAvailable(ctx context.Context, f models.CleanerFilter) ([]models.CleanerProfile, error)
	CountByStatus(ctx context.Context) (map[models.ApprovalStatus]int, error)
	IncrementCompletedJobs(ctx context.Context, profileID string) error
}

type BookingStore interface {
	Create(ctx context.Context, b models.Booking) error
	GetByID(ctx context.Context, id string) (models.Booking, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Booking, error)
	SaveTracking(ctx context.Context, expected models.BookingStatus, t models.Tracking) error
}

// TrackingFeed is the fast path for tracking reads and live pushes.
type TrackingFeed interface {
	Get(ctx context.Context, bookingID string) (models.Booking, bool, error)
	Put(ctx context.Context, b models.Booking) error
	Publish(ctx context.Context, t models.Tracking) error
	Subscribe(ctx context.Context, bookingID string) (<-chan models.Tracking, func() error)
}

type NotificationStore interface {
	Create(ctx context.Context, n models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
}

type AvatarStore interface {
	PutAvatar(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
