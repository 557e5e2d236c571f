package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cleanhub/internal/events"
	"cleanhub/internal/models"
	"cleanhub/internal/sanitize"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	maxNotesLength   = 1000
)

// ApprovalService drives the admin side of the profile review pipeline.
type ApprovalService struct {
	profiles ProfileStore
	events   events.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewApprovalService(profiles ProfileStore, publisher events.Publisher, log zerolog.Logger) *ApprovalService {
	return &ApprovalService{
		profiles: profiles,
		events:   publisher,
		log:      log,
		now:      time.Now,
	}
}

func (s *ApprovalService) Approve(ctx context.Context, adminID, profileID, notes string) (models.CleanerProfile, error) {
	return s.decide(ctx, profileID, models.Decision{
		Status:  models.ApprovalApproved,
		AdminID: adminID,
		Notes:   cleanNotes(notes),
	})
}

func (s *ApprovalService) Reject(ctx context.Context, adminID, profileID, reason, notes string) (models.CleanerProfile, error) {
	return s.decide(ctx, profileID, models.Decision{
		Status:  models.ApprovalRejected,
		AdminID: adminID,
		Notes:   cleanNotes(notes),
		Reason:  cleanNotes(reason),
	})
}

func (s *ApprovalService) decide(ctx context.Context, profileID string, d models.Decision) (models.CleanerProfile, error) {
	d.At = s.now().UTC()

	profile, err := s.profiles.ApplyDecision(ctx, profileID, d)
	if err != nil {
		if errors.Is(err, models.ErrStatusUnchanged) {
			return models.CleanerProfile{}, conflict("profile already " + string(d.Status))
		}
		return models.CleanerProfile{}, profileError(err)
	}

	history, err := s.profiles.History(ctx, profile.ID)
	if err != nil {
		return models.CleanerProfile{}, err
	}
	profile.History = history

	s.log.Info().
		Str("profile_id", profile.ID).
		Str("admin_id", d.AdminID).
		Str("status", string(d.Status)).
		Msg("profile decision recorded")

	eventType := events.ProfileApproved
	if d.Status == models.ApprovalRejected {
		eventType = events.ProfileRejected
	}
	event := events.New(eventType, profile.ID)
	event.Recipient = profile.UserID
	event.ActorID = d.AdminID
	if d.Reason != "" {
		event.Data["reason"] = d.Reason
	}
	publish(ctx, s.events, s.log, event)

	return profile, nil
}

// ListPending pages through profiles awaiting review, newest first.
// Page defaults to 1, limit to 10 and is capped at 100.
func (s *ApprovalService) ListPending(ctx context.Context, filter models.PendingFilter) (models.ProfilePage, error) {
	filter.City = strings.TrimSpace(filter.City)
	filter.Service = strings.TrimSpace(filter.Service)
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultPageLimit
	}
	if filter.Limit > MaxPageLimit {
		filter.Limit = MaxPageLimit
	}

	items, total, err := s.profiles.ListPending(ctx, filter)
	if err != nil {
		return models.ProfilePage{}, err
	}
	return models.ProfilePage{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Pages: models.PageCount(total, filter.Limit),
	}, nil
}

func (s *ApprovalService) History(ctx context.Context, profileID string) ([]models.HistoryEntry, error) {
	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		return nil, profileError(err)
	}
	return s.profiles.History(ctx, profileID)
}

func (s *ApprovalService) Stats(ctx context.Context) (map[models.ApprovalStatus]int, error) {
	return s.profiles.CountByStatus(ctx)
}

func cleanNotes(s string) string {
	return sanitize.Truncate(sanitize.Field(s), maxNotesLength)
}
