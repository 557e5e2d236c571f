package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cleanhub/internal/config"
	"cleanhub/internal/events"
	"cleanhub/internal/models"
)

type Notifier interface {
	Notify(ctx context.Context, userID, kind, title, body string) (models.Notification, error)
}

type UserDirectory interface {
	ListIDsByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

type PendingCounter interface {
	CountPendingSince(ctx context.Context, cutoff time.Time) (int, error)
}

type DeviceTokenPruner interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Processor turns stream events into notifications and runs scheduled
// maintenance. Returning an error leaves the message pending for a retry.
type Processor struct {
	notifier Notifier
	users    UserDirectory
	profiles PendingCounter
	devices  DeviceTokenPruner
	jobs     config.JobsConfig
	logger   zerolog.Logger
	now      func() time.Time
}

func NewProcessor(
	notifier Notifier,
	users UserDirectory,
	profiles PendingCounter,
	devices DeviceTokenPruner,
	jobs config.JobsConfig,
	logger zerolog.Logger,
) *Processor {
	return &Processor{
		notifier: notifier,
		users:    users,
		profiles: profiles,
		devices:  devices,
		jobs:     jobs,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	event, err := events.Decode(msg.Values)
	if err != nil {
		// A message that cannot be decoded will never succeed; drop it.
		p.logger.Error().Err(err).Str("message_id", msg.ID).Msg("discarding malformed event")
		return nil
	}
	return p.Process(ctx, event)
}

func (p *Processor) Process(ctx context.Context, event events.Event) error {
	log := p.logger.With().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("subject", event.Subject).
		Logger()

	switch event.Type {
	case events.ProfileSubmitted:
		log.Debug().Msg("profile submitted")
		return nil
	case events.ProfileApproved:
		return p.notify(ctx, event, "profile_approved", "Profile approved",
			"Your cleaner profile has been approved. You can now receive bookings.")
	case events.ProfileRejected:
		body := "Your cleaner profile was not approved."
		if reason := event.Data["reason"]; reason != "" {
			body = fmt.Sprintf("Your cleaner profile was not approved: %s", reason)
		}
		return p.notify(ctx, event, "profile_rejected", "Profile not approved", body)
	case events.BookingCreated:
		return p.notify(ctx, event, "booking_created", "New booking",
			fmt.Sprintf("You have a new %s booking request.", humanize(event.Data["service"])))
	case events.BookingStatusChanged:
		return p.notify(ctx, event, "booking_status", "Booking update",
			fmt.Sprintf("Your booking is now %s.", humanize(event.Data["to"])))
	case events.PendingReminder:
		return p.remindAdmins(ctx, event, log)
	case events.DeviceTokenCleanup:
		return p.pruneDeviceTokens(ctx, event, log)
	default:
		log.Warn().Msg("unknown event type")
		return nil
	}
}

func (p *Processor) notify(ctx context.Context, event events.Event, kind, title, body string) error {
	if event.Recipient == "" {
		p.logger.Warn().Str("event_id", event.ID).Msg("event has no recipient")
		return nil
	}
	if _, err := p.notifier.Notify(ctx, event.Recipient, kind, title, body); err != nil {
		return fmt.Errorf("notify %s: %w", event.Recipient, err)
	}
	return nil
}

func (p *Processor) remindAdmins(ctx context.Context, event events.Event, log zerolog.Logger) error {
	age := durationOr(event.Data["olderThan"], p.jobs.PendingReminderAge)
	count, err := p.profiles.CountPendingSince(ctx, p.now().Add(-age))
	if err != nil {
		return fmt.Errorf("count pending profiles: %w", err)
	}
	if count == 0 {
		log.Debug().Msg("no stale pending profiles")
		return nil
	}

	admins, err := p.users.ListIDsByRole(ctx, models.UserRoleAdmin)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	body := fmt.Sprintf("%d cleaner profile(s) have been waiting for review longer than %s.", count, age)
	for _, adminID := range admins {
		if _, err := p.notifier.Notify(ctx, adminID, "pending_reminder", "Profiles awaiting review", body); err != nil {
			return fmt.Errorf("notify admin %s: %w", adminID, err)
		}
	}
	log.Info().Int("pending", count).Int("admins", len(admins)).Msg("pending reminder sent")
	return nil
}

func (p *Processor) pruneDeviceTokens(ctx context.Context, event events.Event, log zerolog.Logger) error {
	maxIdle := durationOr(event.Data["maxIdle"], p.jobs.DeviceTokenMaxIdle)
	removed, err := p.devices.DeleteStale(ctx, p.now().Add(-maxIdle))
	if err != nil {
		return fmt.Errorf("delete stale device tokens: %w", err)
	}
	log.Info().Int64("removed", removed).Msg("stale device tokens removed")
	return nil
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}

func humanize(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}
