package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleanhub/internal/events"
	"cleanhub/internal/models"
)

func pendingProfile(id, userID, city string, created time.Time) models.CleanerProfile {
	return models.CleanerProfile{
		ID:        id,
		UserID:    userID,
		FirstName: "Cleaner",
		LastName:  id,
		City:      city,
		Services:  []string{"house_cleaning"},
		Available: true,
		Status:    models.ApprovalPending,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newTestApprovalService(profiles ...models.CleanerProfile) (*ApprovalService, *fakeProfiles, *recordingPublisher) {
	store := newFakeProfiles(profiles...)
	pub := &recordingPublisher{}
	svc := NewApprovalService(store, pub, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC) }
	return svc, store, pub
}

func TestApproveMovesPendingToApproved(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc, store, pub := newTestApprovalService(pendingProfile("p1", "u1", "Nairobi", created))

	profile, err := svc.Approve(context.Background(), "admin1", "p1", "documents verified")
	require.NoError(t, err)

	assert.Equal(t, models.ApprovalApproved, profile.Status)
	assert.True(t, profile.Verified)
	require.NotNil(t, profile.ApprovedAt)
	assert.Equal(t, "documents verified", profile.AdminNotes)
	require.Len(t, profile.History, 1)
	assert.Equal(t, models.HistoryEntry{
		Status:    models.ApprovalApproved,
		Notes:     "documents verified",
		AdminID:   "admin1",
		ChangedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC),
	}, profile.History[0])
	assert.Equal(t, 1, store.historyLen("p1"))
	assert.Equal(t, []events.Type{events.ProfileApproved}, pub.types())
	assert.Equal(t, "u1", pub.events[0].Recipient)
}

func TestSecondApproveConflictsWithoutHistory(t *testing.T) {
	svc, store, pub := newTestApprovalService(pendingProfile("p1", "u1", "Nairobi", time.Now()))

	_, err := svc.Approve(context.Background(), "admin1", "p1", "")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "admin2", "p1", "again")
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "profile already approved", err.Error())
	assert.Equal(t, 1, store.historyLen("p1"))
	assert.Len(t, pub.types(), 1)
}

func TestRejectThenApproveAppendsInOrder(t *testing.T) {
	svc, _, _ := newTestApprovalService(pendingProfile("p1", "u1", "Nairobi", time.Now()))

	rejected, err := svc.Reject(context.Background(), "admin1", "p1", "blurry id photo", "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, rejected.Status)
	assert.Equal(t, "blurry id photo", rejected.RejectionReason)
	assert.Equal(t, "blurry id photo", rejected.AdminNotes)
	assert.False(t, rejected.Verified)

	approved, err := svc.Approve(context.Background(), "admin2", "p1", "new photo ok")
	require.NoError(t, err)
	require.Len(t, approved.History, 2)
	assert.Equal(t, models.ApprovalRejected, approved.History[0].Status)
	assert.Equal(t, "admin1", approved.History[0].AdminID)
	assert.Equal(t, models.ApprovalApproved, approved.History[1].Status)
	assert.Equal(t, "admin2", approved.History[1].AdminID)
}

func TestRejectKeepsEarlierVerifiedFlag(t *testing.T) {
	svc, _, _ := newTestApprovalService(pendingProfile("p1", "u1", "Nairobi", time.Now()))

	_, err := svc.Approve(context.Background(), "admin1", "p1", "")
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), "admin1", "p1", "complaints", "see ticket 12")
	require.NoError(t, err)
	assert.True(t, rejected.Verified)
	assert.Equal(t, "see ticket 12", rejected.AdminNotes)
	assert.Equal(t, "complaints", rejected.RejectionReason)

	_, err = svc.Reject(context.Background(), "admin1", "p1", "again", "")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestDecisionOnMissingProfile(t *testing.T) {
	svc, _, pub := newTestApprovalService()

	_, err := svc.Approve(context.Background(), "admin1", "missing", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Reject(context.Background(), "admin1", "missing", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, pub.types())
}

func TestDecisionSurvivesPublishFailure(t *testing.T) {
	svc, _, pub := newTestApprovalService(pendingProfile("p1", "u1", "Nairobi", time.Now()))
	pub.err = errors.New("stream unavailable")

	profile, err := svc.Approve(context.Background(), "admin1", "p1", "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, profile.Status)
}

func TestDecisionNotesAreSanitized(t *testing.T) {
	svc, _, _ := newTestApprovalService(pendingProfile("p1", "u1", "Nairobi", time.Now()))

	profile, err := svc.Reject(context.Background(), "admin1", "p1", "<b>fake</b> id", "<script>x()</script>check")
	require.NoError(t, err)
	assert.Equal(t, "fake id", profile.RejectionReason)
	assert.Equal(t, "check", profile.AdminNotes)
}

func TestListPendingFiltersCityCaseInsensitively(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var profiles []models.CleanerProfile
	for i := 0; i < 25; i++ {
		city := "Nairobi"
		if i%5 == 0 {
			city = "Mombasa"
		}
		if i%2 == 0 {
			city = "NAIROBI west"
		}
		profiles = append(profiles, pendingProfile(fmt.Sprintf("p%02d", i), fmt.Sprintf("u%02d", i), city, base.Add(time.Duration(i)*time.Hour)))
	}
	approved := pendingProfile("done", "u-done", "Nairobi", base)
	approved.Status = models.ApprovalApproved
	profiles = append(profiles, approved)

	svc, _, _ := newTestApprovalService(profiles...)

	page, err := svc.ListPending(context.Background(), models.PendingFilter{City: "nairobi", Page: 1, Limit: 10})
	require.NoError(t, err)

	// 25 pending, of which i%5==0 && odd (5, 15) are Mombasa.
	assert.Equal(t, 23, page.Total)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Items, 10)
	for _, p := range page.Items {
		assert.Contains(t, []string{"Nairobi", "NAIROBI west"}, p.City)
		assert.Equal(t, models.ApprovalPending, p.Status)
	}
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[9].CreatedAt))

	last, err := svc.ListPending(context.Background(), models.PendingFilter{City: "nairobi", Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, last.Items, 3)
}

func TestListPendingDefaultsAndCaps(t *testing.T) {
	svc, _, _ := newTestApprovalService(pendingProfile("p1", "u1", "Kisumu", time.Now()))

	page, err := svc.ListPending(context.Background(), models.PendingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 1, page.Pages)

	page, err = svc.ListPending(context.Background(), models.PendingFilter{Page: 1, Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestHistoryAndStats(t *testing.T) {
	svc, _, _ := newTestApprovalService(
		pendingProfile("p1", "u1", "Nairobi", time.Now()),
		pendingProfile("p2", "u2", "Nairobi", time.Now()),
	)
	_, err := svc.Approve(context.Background(), "admin1", "p1", "")
	require.NoError(t, err)

	history, err := svc.History(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.History(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats[models.ApprovalApproved])
	assert.Equal(t, 1, stats[models.ApprovalPending])
}
