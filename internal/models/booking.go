package models

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingRequested  BookingStatus = "requested"
	BookingAccepted   BookingStatus = "accepted"
	BookingEnRoute    BookingStatus = "en_route"
	BookingArrived    BookingStatus = "arrived"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingRequested, BookingAccepted, BookingEnRoute, BookingArrived,
		BookingInProgress, BookingCompleted, BookingCancelled:
		return true
	default:
		return false
	}
}

// Terminal statuses accept no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// BookingActor is the side of a booking that drives a transition.
type BookingActor string

const (
	ActorClient  BookingActor = "client"
	ActorCleaner BookingActor = "cleaner"
)

type bookingTransition struct {
	From  BookingStatus
	To    BookingStatus
	Actor BookingActor
}

var bookingTransitions = []bookingTransition{
	{From: BookingRequested, To: BookingAccepted, Actor: ActorCleaner},
	{From: BookingRequested, To: BookingCancelled, Actor: ActorCleaner},
	{From: BookingRequested, To: BookingCancelled, Actor: ActorClient},
	{From: BookingAccepted, To: BookingEnRoute, Actor: ActorCleaner},
	{From: BookingAccepted, To: BookingCancelled, Actor: ActorCleaner},
	{From: BookingAccepted, To: BookingCancelled, Actor: ActorClient},
	{From: BookingEnRoute, To: BookingArrived, Actor: ActorCleaner},
	{From: BookingArrived, To: BookingInProgress, Actor: ActorCleaner},
	{From: BookingInProgress, To: BookingCompleted, Actor: ActorCleaner},
}

var bookingTransitionSet = func() map[bookingTransition]struct{} {
	m := make(map[bookingTransition]struct{}, len(bookingTransitions))
	for _, t := range bookingTransitions {
		m[t] = struct{}{}
	}
	return m
}()

// CanTransition returns nil when actor may move a booking from one status to the other.
func CanTransition(from, to BookingStatus, actor BookingActor) error {
	if _, ok := bookingTransitionSet[bookingTransition{From: from, To: to, Actor: actor}]; ok {
		return nil
	}
	return fmt.Errorf("%s cannot move booking from %s to %s", actor, from, to)
}

// NextStatuses lists the statuses reachable from s by actor.
func NextStatuses(s BookingStatus, actor BookingActor) []BookingStatus {
	var next []BookingStatus
	for _, t := range bookingTransitions {
		if t.From == s && t.Actor == actor {
			next = append(next, t.To)
		}
	}
	return next
}

type Booking struct {
	ID          string        `json:"id"`
	ClientID    string        `json:"clientId"`
	CleanerID   string        `json:"cleanerId"`
	CleanerUser string        `json:"-"`
	Service     string        `json:"service"`
	Address     string        `json:"address"`
	ScheduledAt time.Time     `json:"scheduledAt"`
	Status      BookingStatus `json:"status"`
	Tracking    Tracking      `json:"tracking"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Tracking is the live state the client app polls.
type Tracking struct {
	BookingID  string        `json:"bookingId"`
	Status     BookingStatus `json:"status"`
	Latitude   *float64      `json:"latitude,omitempty"`
	Longitude  *float64      `json:"longitude,omitempty"`
	ETAMinutes *int          `json:"etaMinutes,omitempty"`
	Note       string        `json:"note,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}
