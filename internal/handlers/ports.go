package handlers

import (
	"context"
	"time"

	"cleanhub/internal/models"
	"cleanhub/internal/service"
)

// The interfaces below are the slices of the service layer each route group
// needs. *service.XService values satisfy them.

type Accounts interface {
	Register(ctx context.Context, input service.RegisterInput) (service.Session, error)
	Login(ctx context.Context, input service.LoginInput) (service.Session, error)
	Authenticate(ctx context.Context, token string) (models.User, error)
	Me(ctx context.Context, userID string) (models.User, error)
	UpdateName(ctx context.Context, userID string, input service.UpdateMeInput) (models.User, error)
	RegisterDeviceToken(ctx context.Context, userID string, input service.DeviceTokenInput) error
	RemoveDeviceToken(ctx context.Context, userID, token string) error
	TokenTTL() time.Duration
}

type Avatars interface {
	Upload(ctx context.Context, userID string, input service.AvatarInput) (models.User, error)
}

type Profiles interface {
	Create(ctx context.Context, userID string, input service.ProfileInput) (models.CleanerProfile, error)
	Own(ctx context.Context, userID string) (models.CleanerProfile, error)
	Update(ctx context.Context, userID string, input service.ProfileUpdate) (models.CleanerProfile, error)
	List(ctx context.Context, filter models.CleanerFilter) ([]models.CleanerProfile, error)
	Get(ctx context.Context, id string) (models.CleanerProfile, error)
}

type Approvals interface {
	Approve(ctx context.Context, adminID, profileID, notes string) (models.CleanerProfile, error)
	Reject(ctx context.Context, adminID, profileID, reason, notes string) (models.CleanerProfile, error)
	ListPending(ctx context.Context, filter models.PendingFilter) (models.ProfilePage, error)
	History(ctx context.Context, profileID string) ([]models.HistoryEntry, error)
	Stats(ctx context.Context) (map[models.ApprovalStatus]int, error)
}

type Bookings interface {
	Create(ctx context.Context, clientID string, input service.CreateBookingInput) (models.Booking, error)
	List(ctx context.Context, userID string) ([]models.Booking, error)
	Tracking(ctx context.Context, who models.Identity, bookingID string) (models.Tracking, error)
	Watch(ctx context.Context, who models.Identity, bookingID string) (models.Tracking, <-chan models.Tracking, func() error, error)
	UpdateTracking(ctx context.Context, who models.Identity, bookingID string, input service.TrackingInput) (models.Tracking, error)
	Cancel(ctx context.Context, who models.Identity, bookingID string) (models.Booking, error)
}

type Notifications interface {
	List(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error
