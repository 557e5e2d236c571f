package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cleanhub/internal/events"
	"cleanhub/internal/ids"
	"cleanhub/internal/models"
	"cleanhub/internal/repository"
	"cleanhub/internal/sanitize"
	"cleanhub/internal/validation"
)

const (
	bookingListLimit = 100
	maxTrackingNote  = 280
)

type BookingService struct {
	bookings BookingStore
	profiles ProfileStore
	feed     TrackingFeed
	events   events.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewBookingService(
	bookings BookingStore,
	profiles ProfileStore,
	feed TrackingFeed,
	publisher events.Publisher,
	log zerolog.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		profiles: profiles,
		feed:     feed,
		events:   publisher,
		log:      log,
		now:      time.Now,
	}
}

type CreateBookingInput struct {
	CleanerID   string    `json:"cleanerId" validate:"required"`
	Service     string    `json:"service" validate:"required,max=50"`
	Address     string    `json:"address" validate:"required,max=200"`
	ScheduledAt time.Time `json:"scheduledAt" validate:"required"`
}

// Create books an approved, available cleaner for one of the services the
// cleaner offers.
func (s *BookingService) Create(ctx context.Context, clientID string, input CreateBookingInput) (models.Booking, error) {
	input.Service = sanitize.Field(input.Service)
	input.Address = sanitize.Field(input.Address)
	if err := validation.Struct(input); err != nil {
		return models.Booking{}, err
	}
	now := s.now().UTC()
	if input.ScheduledAt.Before(now) {
		var errs validation.Errors
		errs.Add("scheduledAt", "must be in the future")
		return models.Booking{}, errs
	}

	profile, err := s.profiles.GetByID(ctx, input.CleanerID)
	if err != nil {
		return models.Booking{}, profileError(err)
	}
	if profile.Status != models.ApprovalApproved || !profile.Available {
		return models.Booking{}, conflict("cleaner is not available for booking")
	}
	if !profile.OffersService(input.Service) {
		return models.Booking{}, conflict("cleaner does not offer " + input.Service)
	}
	if profile.UserID == clientID {
		return models.Booking{}, conflict("cannot book your own profile")
	}

	booking := models.Booking{
		ID:          ids.New(),
		ClientID:    clientID,
		CleanerID:   profile.ID,
		CleanerUser: profile.UserID,
		Service:     input.Service,
		Address:     input.Address,
		ScheduledAt: input.ScheduledAt.UTC(),
		Status:      models.BookingRequested,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	booking.Tracking = models.Tracking{
		BookingID: booking.ID,
		Status:    booking.Status,
		UpdatedAt: now,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return models.Booking{}, err
	}

	s.cache(ctx, booking)
	event := events.New(events.BookingCreated, booking.ID)
	event.Recipient = booking.CleanerUser
	event.ActorID = clientID
	event.Data["service"] = booking.Service
	publish(ctx, s.events, s.log, event)

	return booking, nil
}

func (s *BookingService) List(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.bookings.ListForUser(ctx, userID, bookingListLimit)
}

// Tracking returns the current snapshot, preferring the cache.
func (s *BookingService) Tracking(ctx context.Context, who models.Identity, bookingID string) (models.Tracking, error) {
	booking, err := s.snapshot(ctx, bookingID)
	if err != nil {
		return models.Tracking{}, err
	}
	if err := canView(who, booking); err != nil {
		return models.Tracking{}, err
	}
	return booking.Tracking, nil
}

// Watch authorizes who for the booking and streams its tracking updates.
func (s *BookingService) Watch(ctx context.Context, who models.Identity, bookingID string) (models.Tracking, <-chan models.Tracking, func() error, error) {
	current, err := s.Tracking(ctx, who, bookingID)
	if err != nil {
		return models.Tracking{}, nil, nil, err
	}
	updates, stop := s.feed.Subscribe(ctx, bookingID)
	return current, updates, stop, nil
}

type TrackingInput struct {
	Status     *models.BookingStatus `json:"status" validate:"omitempty,bookingstatus"`
	Latitude   *float64              `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude  *float64              `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	ETAMinutes *int                  `json:"etaMinutes" validate:"omitempty,gte=0,lte=1440"`
	Note       *string               `json:"note"`
}

// UpdateTracking applies a cleaner's progress report. Status changes follow
// the booking transition table and are written only if the booking has not
// moved in the meantime.
func (s *BookingService) UpdateTracking(ctx context.Context, who models.Identity, bookingID string, input TrackingInput) (models.Tracking, error) {
	if err := validation.Struct(input); err != nil {
		return models.Tracking{}, err
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return models.Tracking{}, err
	}
	if booking.CleanerUser != who.ID {
		return models.Tracking{}, forbidden("only the assigned cleaner can update tracking")
	}
	if booking.Status.Terminal() {
		return models.Tracking{}, conflict("booking is " + string(booking.Status))
	}

	next := booking.Tracking
	next.UpdatedAt = s.now().UTC()
	if input.Status != nil && *input.Status != booking.Status {
		if err := models.CanTransition(booking.Status, *input.Status, models.ActorCleaner); err != nil {
			return models.Tracking{}, conflict(fmt.Sprintf("%v, allowed next: %v", err, models.NextStatuses(booking.Status, models.ActorCleaner)))
		}
		next.Status = *input.Status
	}
	if input.Latitude != nil {
		next.Latitude = input.Latitude
	}
	if input.Longitude != nil {
		next.Longitude = input.Longitude
	}
	if input.ETAMinutes != nil {
		next.ETAMinutes = input.ETAMinutes
	}
	if input.Note != nil {
		next.Note = sanitize.Truncate(sanitize.Field(*input.Note), maxTrackingNote)
	}

	if err := s.save(ctx, booking, next, models.ActorCleaner); err != nil {
		return models.Tracking{}, err
	}

	if next.Status == models.BookingCompleted {
		if err := s.profiles.IncrementCompletedJobs(ctx, booking.CleanerID); err != nil {
			s.log.Error().Err(err).Str("booking_id", booking.ID).Msg("increment completed jobs failed")
		}
	}
	return next, nil
}

// Cancel lets the booking's client withdraw before the cleaner is on the way.
func (s *BookingService) Cancel(ctx context.Context, who models.Identity, bookingID string) (models.Booking, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	if booking.ClientID != who.ID {
		return models.Booking{}, forbidden("only the client can cancel this booking")
	}
	if err := models.CanTransition(booking.Status, models.BookingCancelled, models.ActorClient); err != nil {
		return models.Booking{}, conflict(err.Error())
	}

	next := booking.Tracking
	next.Status = models.BookingCancelled
	next.UpdatedAt = s.now().UTC()
	if err := s.save(ctx, booking, next, models.ActorClient); err != nil {
		return models.Booking{}, err
	}

	booking.Status = next.Status
	booking.Tracking = next
	booking.UpdatedAt = next.UpdatedAt
	return booking, nil
}

func (s *BookingService) save(ctx context.Context, booking models.Booking, next models.Tracking, actor models.BookingActor) error {
	err := s.bookings.SaveTracking(ctx, booking.Status, next)
	switch {
	case errors.Is(err, repository.ErrBookingStale):
		return conflict("booking was updated by someone else, reload and retry")
	case errors.Is(err, repository.ErrBookingNotFound):
		return notFound("booking not found")
	case err != nil:
		return err
	}

	previous := booking.Status
	booking.Status = next.Status
	booking.Tracking = next
	booking.UpdatedAt = next.UpdatedAt
	s.cache(ctx, booking)
	if err := s.feed.Publish(ctx, next); err != nil {
		s.log.Warn().Err(err).Str("booking_id", booking.ID).Msg("publish tracking failed")
	}

	if previous != next.Status {
		event := events.New(events.BookingStatusChanged, booking.ID)
		event.Data["from"] = string(previous)
		event.Data["to"] = string(next.Status)
		event.Data["actor"] = string(actor)
		if actor == models.ActorClient {
			event.Recipient = booking.CleanerUser
			event.ActorID = booking.ClientID
		} else {
			event.Recipient = booking.ClientID
			event.ActorID = booking.CleanerUser
		}
		publish(ctx, s.events, s.log, event)
	}
	return nil
}

func (s *BookingService) load(ctx context.Context, bookingID string) (models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, strings.TrimSpace(bookingID))
	if errors.Is(err, repository.ErrBookingNotFound) {
		return models.Booking{}, notFound("booking not found")
	}
	return booking, err
}

func (s *BookingService) snapshot(ctx context.Context, bookingID string) (models.Booking, error) {
	cached, ok, err := s.feed.Get(ctx, bookingID)
	if err != nil {
		s.log.Warn().Err(err).Str("booking_id", bookingID).Msg("tracking cache read failed")
	}
	if ok {
		return cached, nil
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return models.Booking{}, err
	}
	s.cache(ctx, booking)
	return booking, nil
}

func (s *BookingService) cache(ctx context.Context, booking models.Booking) {
	if err := s.feed.Put(ctx, booking); err != nil {
		s.log.Warn().Err(err).Str("booking_id", booking.ID).Msg("tracking cache write failed")
	}
}

func canView(who models.Identity, b models.Booking) error {
	switch {
	case who.Role == models.UserRoleAdmin:
		return nil
	case who.ID == b.ClientID, who.ID == b.CleanerUser:
		return nil
	default:
		return forbidden("not a party to this booking")
	}
}
