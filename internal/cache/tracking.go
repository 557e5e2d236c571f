package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cleanhub/internal/models"
)

// TrackingStore caches the latest tracking snapshot of each booking in a
// redis hash and fans updates out over pub/sub.
type TrackingStore struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewTrackingStore(client *redis.Client, ttl time.Duration, log zerolog.Logger) *TrackingStore {
	return &TrackingStore{client: client, ttl: ttl, log: log}
}

func trackingKey(bookingID string) string {
	return "booking:" + bookingID + ":tracking"
}

func trackingChannel(bookingID string) string {
	return "tracking:" + bookingID
}

// Get returns the cached booking snapshot. The bool is false on a miss.
func (s *TrackingStore) Get(ctx context.Context, bookingID string) (models.Booking, bool, error) {
	fields, err := s.client.HGetAll(ctx, trackingKey(bookingID)).Result()
	if err != nil {
		return models.Booking{}, false, fmt.Errorf("hgetall: %w", err)
	}
	if len(fields) == 0 {
		return models.Booking{}, false, nil
	}
	b, err := decodeSnapshot(bookingID, fields)
	if err != nil {
		return models.Booking{}, false, err
	}
	return b, true, nil
}

func (s *TrackingStore) Put(ctx context.Context, b models.Booking) error {
	key := trackingKey(b.ID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, encodeSnapshot(b))
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache tracking: %w", err)
	}
	return nil
}

func (s *TrackingStore) Publish(ctx context.Context, t models.Tracking) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, trackingChannel(t.BookingID), data).Err(); err != nil {
		return fmt.Errorf("publish tracking: %w", err)
	}
	return nil
}

// Subscribe streams tracking updates for one booking until ctx ends or the
// returned stop func is called.
func (s *TrackingStore) Subscribe(ctx context.Context, bookingID string) (<-chan models.Tracking, func() error) {
	sub := s.client.Subscribe(ctx, trackingChannel(bookingID))
	out := make(chan models.Tracking, 8)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var t models.Tracking
			if err := json.Unmarshal([]byte(msg.Payload), &t); err != nil {
				s.log.Warn().Err(err).Str("booking_id", bookingID).Msg("bad tracking payload")
				continue
			}
			select {
			case out <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, sub.Close
}

func encodeSnapshot(b models.Booking) map[string]any {
	fields := map[string]any{
		"client_id":    b.ClientID,
		"cleaner_id":   b.CleanerID,
		"cleaner_user": b.CleanerUser,
		"service":      b.Service,
		"status":       string(b.Status),
		"note":         b.Tracking.Note,
		"updated_at":   b.Tracking.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if b.Tracking.Latitude != nil {
		fields["lat"] = strconv.FormatFloat(*b.Tracking.Latitude, 'f', -1, 64)
	}
	if b.Tracking.Longitude != nil {
		fields["lng"] = strconv.FormatFloat(*b.Tracking.Longitude, 'f', -1, 64)
	}
	if b.Tracking.ETAMinutes != nil {
		fields["eta"] = strconv.Itoa(*b.Tracking.ETAMinutes)
	}
	return fields
}

func decodeSnapshot(bookingID string, fields map[string]string) (models.Booking, error) {
	b := models.Booking{
		ID:          bookingID,
		ClientID:    fields["client_id"],
		CleanerID:   fields["cleaner_id"],
		CleanerUser: fields["cleaner_user"],
		Service:     fields["service"],
		Status:      models.BookingStatus(fields["status"]),
	}
	b.Tracking = models.Tracking{
		BookingID: bookingID,
		Status:    b.Status,
		Note:      fields["note"],
	}

	updated, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return models.Booking{}, fmt.Errorf("cached updated_at: %w", err)
	}
	b.Tracking.UpdatedAt = updated

	if v, ok := fields["lat"]; ok {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return models.Booking{}, fmt.Errorf("cached lat: %w", err)
		}
		b.Tracking.Latitude = &lat
	}
	if v, ok := fields["lng"]; ok {
		lng, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return models.Booking{}, fmt.Errorf("cached lng: %w", err)
		}
		b.Tracking.Longitude = &lng
	}
	if v, ok := fields["eta"]; ok {
		eta, err := strconv.Atoi(v)
		if err != nil {
			return models.Booking{}, fmt.Errorf("cached eta: %w", err)
		}
		b.Tracking.ETAMinutes = &eta
	}
	return b, nil
}
