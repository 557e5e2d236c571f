package models

import (
	"errors"
	"time"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}

var (
	ErrStatusUnchanged = errors.New("profile already has the requested status")
	ErrInvalidDecision = errors.New("decision must approve or reject")
)

type CleanerProfile struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	FirstName       string         `json:"firstName"`
	LastName        string         `json:"lastName"`
	Address         string         `json:"address"`
	City            string         `json:"city"`
	Bio             string         `json:"bio"`
	Email           string         `json:"email"`
	Services        []string       `json:"services"`
	Available       bool           `json:"isAvailable"`
	Rating          float64        `json:"rating"`
	CompletedJobs   int            `json:"completedJobs"`
	Status          ApprovalStatus `json:"approvalStatus"`
	Verified        bool           `json:"isVerified"`
	ApprovedAt      *time.Time     `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time     `json:"rejectedAt,omitempty"`
	AdminNotes      string         `json:"adminNotes,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	History         []HistoryEntry `json:"approvalHistory,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// HistoryEntry records one approval state change. Entries are never edited.
type HistoryEntry struct {
	Status    ApprovalStatus `json:"status"`
	Notes     string         `json:"notes"`
	AdminID   string         `json:"changedBy"`
	ChangedAt time.Time      `json:"changedAt"`
}

// Decision is an admin's approve or reject action on a profile.
type Decision struct {
	Status  ApprovalStatus
	AdminID string
	Notes   string
	Reason  string
	At      time.Time
}

// EffectiveNotes is what gets stored as admin notes and in the history entry.
// Rejections fall back to the reason when no notes were given.
func (d Decision) EffectiveNotes() string {
	if d.Status == ApprovalRejected && d.Notes == "" {
		return d.Reason
	}
	return d.Notes
}

// OffersService reports whether service is one of the profile's categories.
func (p CleanerProfile) OffersService(service string) bool {
	for _, s := range p.Services {
		if s == service {
			return true
		}
	}
	return false
}

// ProfileFields are the cleaner-editable parts of a profile. Nil means
// unchanged.
type ProfileFields struct {
	FirstName *string
	LastName  *string
	Address   *string
	City      *string
	Bio       *string
	Email     *string
	Services  []string
	Available *bool
}

type PendingFilter struct {
	City    string
	Service string
	Page    int
	Limit   int
}

type CleanerFilter struct {
	City      string
	Service   string
	MinRating float64
}

type ProfilePage struct {
	Items []CleanerProfile `json:"profiles"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Pages int              `json:"pages"`
}

// PageCount is ceil(total/limit), zero for an empty result.
func PageCount(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
