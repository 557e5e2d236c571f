// Package events carries domain events from the API to the worker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cleanhub/internal/ids"
)

type Type string

const (
	ProfileSubmitted     Type = "profile.submitted"
	ProfileApproved      Type = "profile.approved"
	ProfileRejected      Type = "profile.rejected"
	BookingCreated       Type = "booking.created"
	BookingStatusChanged Type = "booking.status_changed"

	// Scheduled maintenance tasks share the stream with domain events.
	PendingReminder    Type = "pending_reminder"
	DeviceTokenCleanup Type = "device_token_cleanup"
)

// Event is the envelope written to the stream. Subject is the profile or
// booking id; Recipient is the user the event concerns, if any.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	Subject    string            `json:"subject,omitempty"`
	Recipient  string            `json:"recipient,omitempty"`
	ActorID    string            `json:"actorId,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

func New(t Type, subject string) Event {
	return Event{
		ID:         ids.New(),
		Type:       t,
		Subject:    subject,
		Data:       map[string]string{},
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event. Used when no stream is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every target and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const (
	fieldType    = "type"
	fieldPayload = "payload"
)

// Values encodes e as stream entry fields.
func (e Event) Values() (map[string]any, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return map[string]any{
		fieldType:    string(e.Type),
		fieldPayload: string(payload),
	}, nil
}

// Decode reverses Values.
func Decode(values map[string]any) (Event, error) {
	raw, ok := values[fieldPayload].(string)
	if !ok {
		return Event{}, fmt.Errorf("event payload missing")
	}
	var e Event
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event type missing")
	}
	return e, nil
}
