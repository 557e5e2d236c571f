package service

import (
	"context"
	"errors"
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

// ProfileService covers what cleaners do with their own profile and the
// public cleaner directory.
type ProfileService struct {
	profiles ProfileStore
	events   events.Publisher
	log      zerolog.Logger
	now      func() time.Time
}

func NewProfileService(profiles ProfileStore, publisher events.Publisher, log zerolog.Logger) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		events:   publisher,
		log:      log,
		now:      time.Now,
	}
}

type ProfileInput struct {
	FirstName   string   `json:"firstName" validate:"required,max=50"`
	LastName    string   `json:"lastName" validate:"required,max=50"`
	Address     string   `json:"address" validate:"max=200"`
	City        string   `json:"city" validate:"required,max=100"`
	Bio         string   `json:"bio"`
	Email       string   `json:"email" validate:"omitempty,email,max=254"`
	Services    []string `json:"services" validate:"max=20,dive,max=50"`
	IsAvailable *bool    `json:"isAvailable"`
}

// clean sanitizes every free-text field in place.
func (in *ProfileInput) clean() {
	in.FirstName = sanitize.Field(in.FirstName)
	in.LastName = sanitize.Field(in.LastName)
	in.Address = sanitize.Field(in.Address)
	in.City = sanitize.Field(in.City)
	in.Email = strings.ToLower(sanitize.Field(in.Email))
	in.Bio = sanitize.Bio(in.Bio)
	in.Services = sanitize.List(in.Services)
}

// ProfileUpdate carries the fields a cleaner sent. Omitted fields keep their
// stored values.
type ProfileUpdate struct {
	FirstName   *string  `json:"firstName"`
	LastName    *string  `json:"lastName"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	Bio         *string  `json:"bio"`
	Email       *string  `json:"email"`
	Services    []string `json:"services"`
	IsAvailable *bool    `json:"isAvailable"`
}

// fields sanitizes the present fields.
func (in ProfileUpdate) fields() models.ProfileFields {
	f := models.ProfileFields{
		FirstName: cleaned(in.FirstName, sanitize.Field),
		LastName:  cleaned(in.LastName, sanitize.Field),
		Address:   cleaned(in.Address, sanitize.Field),
		City:      cleaned(in.City, sanitize.Field),
		Bio:       cleaned(in.Bio, sanitize.Bio),
		Email:     cleaned(in.Email, func(s string) string { return strings.ToLower(sanitize.Field(s)) }),
		Available: in.IsAvailable,
	}
	if in.Services != nil {
		f.Services = sanitize.List(in.Services)
	}
	return f
}

func cleaned(s *string, clean func(string) string) *string {
	if s == nil {
		return nil
	}
	v := clean(*s)
	return &v
}

// overlay returns p with f applied, in the shape Create validates.
func overlay(p models.CleanerProfile, f models.ProfileFields) ProfileInput {
	in := ProfileInput{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Address:     p.Address,
		City:        p.City,
		Bio:         p.Bio,
		Email:       p.Email,
		Services:    p.Services,
		IsAvailable: f.Available,
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&in.FirstName, f.FirstName)
	set(&in.LastName, f.LastName)
	set(&in.Address, f.Address)
	set(&in.City, f.City)
	set(&in.Bio, f.Bio)
	set(&in.Email, f.Email)
	if f.Services != nil {
		in.Services = f.Services
	}
	return in
}

// Create submits the caller's profile for review. A user has at most one.
func (s *ProfileService) Create(ctx context.Context, userID string, input ProfileInput) (models.CleanerProfile, error) {
	input.clean()
	if err := validation.Struct(input); err != nil {
		return models.CleanerProfile{}, err
	}

	available := true
	if input.IsAvailable != nil {
		available = *input.IsAvailable
	}
	now := s.now().UTC()
	profile := models.CleanerProfile{
		ID:        ids.New(),
		UserID:    userID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Address:   input.Address,
		City:      input.City,
		Bio:       input.Bio,
		Email:     input.Email,
		Services:  input.Services,
		Available: available,
		Status:    models.ApprovalPending,
		History:   []models.HistoryEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrProfileExists) {
			return models.CleanerProfile{}, conflict("cleaner profile already exists")
		}
		return models.CleanerProfile{}, err
	}

	event := events.New(events.ProfileSubmitted, profile.ID)
	event.Recipient = userID
	event.ActorID = userID
	event.Data["city"] = profile.City
	publish(ctx, s.events, s.log, event)

	return profile, nil
}

func (s *ProfileService) Own(ctx context.Context, userID string) (models.CleanerProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return models.CleanerProfile{}, profileError(err)
	}
	return s.withHistory(ctx, profile)
}

// Update applies the sent fields to the caller's profile. The result must
// still satisfy the rules Create enforces. Approval state is untouched.
func (s *ProfileService) Update(ctx context.Context, userID string, input ProfileUpdate) (models.CleanerProfile, error) {
	current, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return models.CleanerProfile{}, profileError(err)
	}
	fields := input.fields()
	if err := validation.Struct(overlay(current, fields)); err != nil {
		return models.CleanerProfile{}, err
	}

	profile, err := s.profiles.UpdateFields(ctx, userID, fields)
	if err != nil {
		return models.CleanerProfile{}, profileError(err)
	}
	return s.withHistory(ctx, profile)
}

func (s *ProfileService) List(ctx context.Context, filter models.CleanerFilter) ([]models.CleanerProfile, error) {
	filter.City = strings.TrimSpace(filter.City)
	filter.Service = strings.TrimSpace(filter.Service)
	return s.profiles.ListAvailable(ctx, filter)
}

func (s *ProfileService) Get(ctx context.Context, id string) (models.CleanerProfile, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return models.CleanerProfile{}, profileError(err)
	}
	return profile, nil
}

func (s *ProfileService) withHistory(ctx context.Context, profile models.CleanerProfile) (models.CleanerProfile, error) {
	history, err := s.profiles.History(ctx, profile.ID)
	if err != nil {
		return models.CleanerProfile{}, err
	}
	profile.History = history
	return profile, nil
}

func profileError(err error) error {
	if errors.Is(err, repository.ErrProfileNotFound) {
		return notFound("cleaner profile not found")
	}
	return err
}

// publish logs publish failures instead of returning them.
func publish(ctx context.Context, p events.Publisher, log zerolog.Logger, event events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		log.Warn().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("subject", event.Subject).
			Msg("publish event failed")
	}
}
