package moderation

import (
	"context"
	"testing"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/booking"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/chachabrian/mooveit-carpool/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReport(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewService(s, events.Nop{}, storetest.Logger())
	ctx := context.Background()
	alice := storetest.User(t, s, "alice")
	bob := storetest.User(t, s, "bob")
	trip := storetest.Trip(t, s, bob.ID, 2)
	missing := uint(9999)

	r, err := svc.CreateReport(ctx, alice.ID, CreateReportInput{
		Type:           models.ReportTypeUser,
		ReportedUserID: &bob.ID,
		ReportedTripID: &trip.ID,
		Reason:         models.ReportReasonNoShow,
		Description:    "  never showed up  ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, r.Status)
	assert.Equal(t, "never showed up", r.Description)
	assert.Nil(t, r.ReportedTripID, "only the id matching the type is kept")

	tests := []struct {
		name string
		in   CreateReportInput
		want error
	}{
		{"missing user id", CreateReportInput{Type: models.ReportTypeUser, Reason: models.ReportReasonSpam, Description: "x"}, apperr.ErrInvalidRequest},
		{"missing trip id", CreateReportInput{Type: models.ReportTypeTrip, Reason: models.ReportReasonSpam, Description: "x"}, apperr.ErrInvalidRequest},
		{"missing message id", CreateReportInput{Type: models.ReportTypeMessage, Reason: models.ReportReasonSpam, Description: "x"}, apperr.ErrInvalidRequest},
		{"unknown type", CreateReportInput{Type: "REVIEW", Reason: models.ReportReasonSpam, Description: "x"}, apperr.ErrInvalidRequest},
		{"unknown trip", CreateReportInput{Type: models.ReportTypeTrip, ReportedTripID: &missing, Reason: models.ReportReasonFraud, Description: "x"}, apperr.ErrNotFound},
		{"self report", CreateReportInput{Type: models.ReportTypeUser, ReportedUserID: &alice.ID, Reason: models.ReportReasonFraud, Description: "x"}, apperr.ErrForbidden},
		{"unknown reason", CreateReportInput{Type: models.ReportTypeTrip, ReportedTripID: &trip.ID, Reason: "BORING", Description: "x"}, apperr.ErrInvalidRequest},
		{"empty description", CreateReportInput{Type: models.ReportTypeTrip, ReportedTripID: &trip.ID, Reason: models.ReportReasonFraud, Description: " "}, apperr.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateReport(ctx, alice.ID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdateAndDeleteReport(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewService(s, events.Nop{}, storetest.Logger())
	ctx := context.Background()
	alice := storetest.User(t, s, "alice")
	bob := storetest.User(t, s, "bob")
	admin := storetest.Admin(t, s, "admin")

	newReport := func() *models.Report {
		r, err := svc.CreateReport(ctx, alice.ID, CreateReportInput{
			Type:           models.ReportTypeUser,
			ReportedUserID: &bob.ID,
			Reason:         models.ReportReasonHarassment,
			Description:    "rude messages",
		})
		require.NoError(t, err)
		return r
	}
	r1 := newReport()
	r2 := newReport()

	_, err := svc.UpdateStatus(ctx, r1.ID, bob.ID, UpdateReportInput{Status: models.ReportStatusResolved})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.UpdateStatus(ctx, r1.ID, admin.ID, UpdateReportInput{Status: "DONE"})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)

	review, err := svc.UpdateStatus(ctx, r1.ID, admin.ID, UpdateReportInput{Status: models.ReportStatusUnderReview})
	require.NoError(t, err)
	assert.Nil(t, review.ResolvedAt)

	resolved, err := svc.UpdateStatus(ctx, r1.ID, admin.ID, UpdateReportInput{Status: models.ReportStatusResolved, AdminNotes: "warned"})
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	require.NotNil(t, resolved.ReviewedByAdminID)
	assert.Equal(t, admin.ID, *resolved.ReviewedByAdminID)
	assert.Equal(t, "warned", resolved.AdminNotes)

	assert.ErrorIs(t, svc.DeleteReport(ctx, r1.ID, alice.ID), apperr.ErrInvalidState)
	assert.ErrorIs(t, svc.DeleteReport(ctx, r2.ID, bob.ID), apperr.ErrForbidden)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, r2.ID, pending[0].ID)

	unresolved, err := svc.Unresolved(ctx)
	require.NoError(t, err)
	assert.Len(t, unresolved, 1)

	about, err := svc.AboutUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, about, 2)

	counts, err := svc.CountByStatus(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.ReportStatusPending])
	assert.EqualValues(t, 1, counts[models.ReportStatusResolved])

	require.NoError(t, svc.DeleteReport(ctx, r2.ID, alice.ID))
	mine, err := svc.ByReporter(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestStats(t *testing.T) {
	s := store.NewMemoryStore()
	svc := NewService(s, events.Nop{}, storetest.Logger())
	ledger := booking.NewLedger(s, events.Nop{}, storetest.Logger())
	ctx := context.Background()
	driver := storetest.User(t, s, "driver")
	alice := storetest.User(t, s, "alice")
	trip := storetest.Trip(t, s, driver.ID, 3)

	b, err := ledger.CreateBooking(ctx, alice.ID, trip.ID, 1, "")
	require.NoError(t, err)
	_, err = ledger.CreateBooking(ctx, alice.ID, trip.ID, 1, "")
	require.NoError(t, err)
	_, err = ledger.RejectBooking(ctx, b.ID, driver.ID)
	require.NoError(t, err)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Users)
	assert.EqualValues(t, 1, st.Trips[models.TripStatusActive])
	assert.EqualValues(t, 1, st.Bookings[models.BookingStatusPending])
	assert.EqualValues(t, 1, st.Bookings[models.BookingStatusRejected])
	assert.Empty(t, st.Reports)
}
