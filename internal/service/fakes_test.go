package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cleanhub/internal/events"
	"cleanhub/internal/models"
	"cleanhub/internal/repository"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]models.User{}}
}

func (f *fakeUsers) Create(_ context.Context, user models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Phone == user.Phone {
			return repository.ErrDuplicatePhone
		}
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) FindByPhone(_ context.Context, phone string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Phone == phone {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) FindByName(_ context.Context, name string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var found *models.User
	for _, u := range f.users {
		if u.Name != name {
			continue
		}
		if found == nil || u.CreatedAt.Before(found.CreatedAt) {
			u := u
			found = &u
		}
	}
	if found == nil {
		return models.User{}, repository.ErrUserNotFound
	}
	return *found, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateName(_ context.Context, id string, name string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	u.Name = name
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) UpdateProfileImage(_ context.Context, id string, url string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	u.ProfileImage = url
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) delete(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
}

func (f *fakeUsers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeDevices struct {
	tokens map[string]models.DeviceToken
}

func newFakeDevices() *fakeDevices {
	return &fakeDevices{tokens: map[string]models.DeviceToken{}}
}

func (f *fakeDevices) Upsert(_ context.Context, token models.DeviceToken) error {
	f.tokens[token.UserID+"/"+token.Token] = token
	return nil
}

func (f *fakeDevices) Delete(_ context.Context, userID string, token string) error {
	key := userID + "/" + token
	if _, ok := f.tokens[key]; !ok {
		return repository.ErrDeviceTokenNotFound
	}
	delete(f.tokens, key)
	return nil
}

// fakeProfiles applies decisions through models.CleanerProfile.Apply, the
// same rule the SQL statement encodes.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.CleanerProfile
}

func newFakeProfiles(profiles ...models.CleanerProfile) *fakeProfiles {
	f := &fakeProfiles{profiles: map[string]*models.CleanerProfile{}}
	for _, p := range profiles {
		p := p
		f.profiles[p.ID] = &p
	}
	return f
}

func (f *fakeProfiles) Create(_ context.Context, p models.CleanerProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.profiles {
		if existing.UserID == p.UserID {
			return repository.ErrProfileExists
		}
	}
	p.History = nil
	f.profiles[p.ID] = &p
	return nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (models.CleanerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return models.CleanerProfile{}, repository.ErrProfileNotFound
	}
	return stripHistory(*p), nil
}

func (f *fakeProfiles) GetByUserID(_ context.Context, userID string) (models.CleanerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.UserID == userID {
			return stripHistory(*p), nil
		}
	}
	return models.CleanerProfile{}, repository.ErrProfileNotFound
}

func (f *fakeProfiles) UpdateFields(_ context.Context, userID string, fields models.ProfileFields) (models.CleanerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.UserID != userID {
			continue
		}
		setString(&p.FirstName, fields.FirstName)
		setString(&p.LastName, fields.LastName)
		setString(&p.Address, fields.Address)
		setString(&p.City, fields.City)
		setString(&p.Bio, fields.Bio)
		setString(&p.Email, fields.Email)
		if fields.Services != nil {
			p.Services = fields.Services
		}
		if fields.Available != nil {
			p.Available = *fields.Available
		}
		return stripHistory(*p), nil
	}
	return models.CleanerProfile{}, repository.ErrProfileNotFound
}

func (f *fakeProfiles) ApplyDecision(_ context.Context, profileID string, d models.Decision) (models.CleanerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profileID]
	if !ok {
		return models.CleanerProfile{}, repository.ErrProfileNotFound
	}
	if err := decide(p, d); err != nil {
		return models.CleanerProfile{}, err
	}
	return stripHistory(*p), nil
}

// decide follows the UPDATE in ProfileRepository.ApplyDecision: a repeated
// status is refused, a rejection keeps an earlier verified flag and every
// transition appends one history entry.
func decide(p *models.CleanerProfile, d models.Decision) error {
	if d.Status != models.ApprovalApproved && d.Status != models.ApprovalRejected {
		return models.ErrInvalidDecision
	}
	if p.Status == d.Status {
		return models.ErrStatusUnchanged
	}
	at := d.At
	p.Status = d.Status
	p.AdminNotes = d.EffectiveNotes()
	if d.Status == models.ApprovalApproved {
		p.Verified = true
		p.ApprovedAt = &at
	} else {
		p.RejectedAt = &at
		p.RejectionReason = d.Reason
	}
	p.UpdatedAt = at
	p.History = append(p.History, models.HistoryEntry{
		Status:    d.Status,
		Notes:     d.EffectiveNotes(),
		AdminID:   d.AdminID,
		ChangedAt: at,
	})
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func (f *fakeProfiles) History(_ context.Context, profileID string) ([]models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profileID]
	if !ok {
		return []models.HistoryEntry{}, nil
	}
	return append([]models.HistoryEntry{}, p.History...), nil
}

func (f *fakeProfiles) ListPending(_ context.Context, filter models.PendingFilter) ([]models.CleanerProfile, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.CleanerProfile
	for _, p := range f.profiles {
		if p.Status != models.ApprovalPending {
			continue
		}
		if filter.City != "" && !strings.Contains(strings.ToLower(p.City), strings.ToLower(filter.City)) {
			continue
		}
		if filter.Service != "" && !p.OffersService(filter.Service) {
			continue
		}
		matched = append(matched, stripHistory(*p))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (f *fakeProfiles) ListAvailable(_ context.Context, filter models.CleanerFilter) ([]models.CleanerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.CleanerProfile{}
	for _, p := range f.profiles {
		if !p.Available || p.Rating < filter.MinRating {
			continue
		}
		if filter.Service != "" && !p.OffersService(filter.Service) {
			continue
		}
		out = append(out, stripHistory(*p))
	}
	return out, nil
}

func (f *fakeProfiles) CountByStatus(context.Context) (map[models.ApprovalStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[models.ApprovalStatus]int{}
	for _, p := range f.profiles {
		counts[p.Status]++
	}
	return counts, nil
}

func (f *fakeProfiles) IncrementCompletedJobs(_ context.Context, profileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profileID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.CompletedJobs++
	return nil
}

func (f *fakeProfiles) historyLen(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles[id].History)
}

func stripHistory(p models.CleanerProfile) models.CleanerProfile {
	p.History = nil
	return p
}

type fakeBookings struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
	stale    bool
}

func newFakeBookings(bookings ...models.Booking) *fakeBookings {
	f := &fakeBookings{bookings: map[string]models.Booking{}}
	for _, b := range bookings {
		f.bookings[b.ID] = b
	}
	return f
}

func (f *fakeBookings) Create(_ context.Context, b models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID] = b
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id string) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookings) ListForUser(_ context.Context, userID string, _ int) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Booking{}
	for _, b := range f.bookings {
		if b.ClientID == userID || b.CleanerUser == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBookings) SaveTracking(_ context.Context, expected models.BookingStatus, t models.Tracking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[t.BookingID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if f.stale || b.Status != expected {
		return repository.ErrBookingStale
	}
	b.Status = t.Status
	b.Tracking = t
	b.UpdatedAt = t.UpdatedAt
	f.bookings[b.ID] = b
	return nil
}

type fakeFeed struct {
	mu        sync.Mutex
	cached    map[string]models.Booking
	published []models.Tracking
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{cached: map[string]models.Booking{}}
}

func (f *fakeFeed) Get(_ context.Context, bookingID string) (models.Booking, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.cached[bookingID]
	return b, ok, nil
}

func (f *fakeFeed) Put(_ context.Context, b models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cached[b.ID] = b
	return nil
}

func (f *fakeFeed) Publish(_ context.Context, t models.Tracking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, t)
	return nil
}

func (f *fakeFeed) Subscribe(context.Context, string) (<-chan models.Tracking, func() error) {
	ch := make(chan models.Tracking)
	return ch, func() error { close(ch); return nil }
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeNotifications struct {
	items []models.Notification
}

func (f *fakeNotifications) Create(_ context.Context, n models.Notification) error {
	f.items = append(f.items, n)
	return nil
}

func (f *fakeNotifications) ListByUser(_ context.Context, userID string, limit int) ([]models.Notification, error) {
	out := []models.Notification{}
	for _, n := range f.items {
		if n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, userID, id string, at time.Time) error {
	for i, n := range f.items {
		if n.ID == id && n.UserID == userID {
			f.items[i].ReadAt = &at
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

type fakeAvatarStore struct {
	keys []string
}

func (f *fakeAvatarStore) PutAvatar(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.keys = append(f.keys, key)
	return "http://objects.test/cleanhub-avatars/" + key, nil
}
