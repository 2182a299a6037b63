package booking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/chachabrian/mooveit-carpool/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  *store.MemoryStore
	ledger *Ledger
	events *events.Recorder
	driver *models.User
	p1, p2 *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	rec := &events.Recorder{}
	return &fixture{
		store:  s,
		ledger: NewLedger(s, rec, storetest.Logger()),
		events: rec,
		driver: storetest.User(t, s, "driver"),
		p1:     storetest.User(t, s, "alice"),
		p2:     storetest.User(t, s, "bob"),
	}
}

// assertSeats checks the seat conservation rule for the trip.
func (f *fixture) assertSeats(t *testing.T, tripID uint, wantAvailable int) {
	t.Helper()
	trip := storetest.GetTrip(t, f.store, tripID)
	held := storetest.HeldSeats(t, f.store, tripID)
	assert.Equal(t, wantAvailable, trip.AvailableSeats)
	assert.Equal(t, trip.TotalSeats-held, trip.AvailableSeats)
	assert.LessOrEqual(t, held, trip.TotalSeats)
}

func TestCreateBookingReservesSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 3)

	b, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 2, "two of us")
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, b.Status)
	assert.Equal(t, 2, b.SeatsBooked)
	f.assertSeats(t, trip.ID, 1)

	_, err = f.ledger.CreateBooking(ctx, f.p2.ID, trip.ID, 2, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
	f.assertSeats(t, trip.ID, 1)

	assert.Equal(t, []string{events.BookingCreated}, f.events.Types())
	ev := f.events.Events()[0]
	require.NotNil(t, ev.Notification)
	assert.Equal(t, f.driver.ID, ev.Notification.UserID)
	assert.Equal(t, models.NotificationBookingRequest, ev.Notification.Type)
}

func TestRejectRestoresSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 3)

	b, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 2, "")
	require.NoError(t, err)

	rejected, err := f.ledger.RejectBooking(ctx, b.ID, f.driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusRejected, rejected.Status)
	f.assertSeats(t, trip.ID, 3)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 2)

	tests := []struct {
		name        string
		passengerID uint
		tripID      uint
		seats       int
		want        error
	}{
		{"unknown trip", f.p1.ID, 9999, 1, apperr.ErrNotFound},
		{"unknown passenger", 9999, trip.ID, 1, apperr.ErrNotFound},
		{"zero seats", f.p1.ID, trip.ID, 0, apperr.ErrInvalidRequest},
		{"negative seats", f.p1.ID, trip.ID, -1, apperr.ErrInvalidRequest},
		{"more than available", f.p1.ID, trip.ID, 3, apperr.ErrInvalidRequest},
		{"driver books own trip", f.driver.ID, trip.ID, 1, apperr.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CreateBooking(ctx, tt.passengerID, tt.tripID, tt.seats, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
	f.assertSeats(t, trip.ID, 2)
	assert.Empty(t, f.events.Events())
}

func TestCreateBookingOnInactiveTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trips := NewTripService(f.store, f.events, storetest.Logger())
	trip := storetest.Trip(t, f.store, f.driver.ID, 2)

	_, err := trips.CancelTrip(ctx, trip.ID, f.driver.ID)
	require.NoError(t, err)

	_, err = f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 1, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestAcceptBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 4)
	b, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 3, "")
	require.NoError(t, err)

	_, err = f.ledger.AcceptBooking(ctx, b.ID, f.p2.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	accepted, err := f.ledger.AcceptBooking(ctx, b.ID, f.driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusAccepted, accepted.Status)
	f.assertSeats(t, trip.ID, 1)

	_, err = f.ledger.AcceptBooking(ctx, b.ID, f.driver.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.ledger.RejectBooking(ctx, b.ID, f.driver.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	f.assertSeats(t, trip.ID, 1)

	_, err = f.ledger.AcceptBooking(ctx, 9999, f.driver.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 4)

	pending, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 1, "")
	require.NoError(t, err)
	accepted, err := f.ledger.CreateBooking(ctx, f.p2.ID, trip.ID, 2, "")
	require.NoError(t, err)
	_, err = f.ledger.AcceptBooking(ctx, accepted.ID, f.driver.ID)
	require.NoError(t, err)
	f.assertSeats(t, trip.ID, 1)

	_, err = f.ledger.CancelBooking(ctx, pending.ID, f.p2.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.ledger.CancelBooking(ctx, pending.ID, f.p1.ID)
	require.NoError(t, err)
	f.assertSeats(t, trip.ID, 2)

	cancelled, err := f.ledger.CancelBooking(ctx, accepted.ID, f.p2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusCancelled, cancelled.Status)
	f.assertSeats(t, trip.ID, 4)

	_, err = f.ledger.CancelBooking(ctx, accepted.ID, f.p2.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	f.assertSeats(t, trip.ID, 4)
}

func TestTerminalBookingsStayTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 4)

	rejected, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 1, "")
	require.NoError(t, err)
	_, err = f.ledger.RejectBooking(ctx, rejected.ID, f.driver.ID)
	require.NoError(t, err)

	cancelled, err := f.ledger.CreateBooking(ctx, f.p2.ID, trip.ID, 1, "")
	require.NoError(t, err)
	_, err = f.ledger.CancelBooking(ctx, cancelled.ID, f.p2.ID)
	require.NoError(t, err)

	for _, id := range []uint{rejected.ID, cancelled.ID} {
		_, err = f.ledger.AcceptBooking(ctx, id, f.driver.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
		_, err = f.ledger.RejectBooking(ctx, id, f.driver.ID)
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	}
	_, err = f.ledger.CancelBooking(ctx, rejected.ID, f.p1.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	f.assertSeats(t, trip.ID, 4)
}

func TestConcurrentBookingOfLastSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 1)

	passengers := []*models.User{f.p1, f.p2}
	errs := make([]error, len(passengers))
	var wg sync.WaitGroup
	for i, p := range passengers {
		wg.Add(1)
		go func(i int, p *models.User) {
			defer wg.Done()
			_, errs[i] = f.ledger.CreateBooking(ctx, p.ID, trip.ID, 1, "")
		}(i, p)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
	}
	assert.Equal(t, 1, succeeded)
	f.assertSeats(t, trip.ID, 0)
}

func TestConcurrentMixedOperationsConserveSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 8)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := f.p1
			if i%2 == 1 {
				p = f.p2
			}
			b, err := f.ledger.CreateBooking(ctx, p.ID, trip.ID, 1+i%3, "")
			if err != nil {
				return
			}
			switch i % 4 {
			case 0:
				_, _ = f.ledger.RejectBooking(ctx, b.ID, f.driver.ID)
			case 1:
				_, _ = f.ledger.CancelBooking(ctx, b.ID, p.ID)
			case 2:
				_, _ = f.ledger.AcceptBooking(ctx, b.ID, f.driver.ID)
			}
		}(i)
	}
	wg.Wait()

	audit, err := f.ledger.SeatAudit(ctx, trip.ID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent)
	assert.LessOrEqual(t, audit.HeldSeats, 8)
}

func TestBulkOperationsReportPerItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 6)
	other := storetest.Trip(t, f.store, f.p2.ID, 4)

	b1, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 1, "")
	require.NoError(t, err)
	b2, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 2, "")
	require.NoError(t, err)
	foreign, err := f.ledger.CreateBooking(ctx, f.p1.ID, other.ID, 1, "")
	require.NoError(t, err)
	_, err = f.ledger.AcceptBooking(ctx, b2.ID, f.driver.ID)
	require.NoError(t, err)

	results := f.ledger.AcceptMany(ctx, []uint{b1.ID, b2.ID, foreign.ID, 9999}, f.driver.ID)
	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, apperr.ErrInvalidState)
	assert.ErrorIs(t, results[2].Err, apperr.ErrForbidden)
	assert.ErrorIs(t, results[3].Err, apperr.ErrNotFound)
	assert.Equal(t, 1, apperr.Succeeded(results))

	results = f.ledger.CancelMany(ctx, []uint{b1.ID, b2.ID}, f.p1.ID)
	assert.Equal(t, 2, apperr.Succeeded(results))
	f.assertSeats(t, trip.ID, 6)

	results = f.ledger.RejectMany(ctx, []uint{foreign.ID}, f.p2.ID)
	assert.Equal(t, 1, apperr.Succeeded(results))
	f.assertSeats(t, other.ID, 4)
}

func TestFailedTransactionLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 3)
	boom := errors.New("boom")

	err := f.store.WithTx(ctx, func(tx store.Tx) error {
		tr, err := tx.GetTripForUpdate(ctx, trip.ID)
		require.NoError(t, err)
		tr.AvailableSeats = 0
		require.NoError(t, tx.SaveTrip(ctx, tr))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	f.assertSeats(t, trip.ID, 3)
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trip := storetest.Trip(t, f.store, f.driver.ID, 5)

	first, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 1, "")
	require.NoError(t, err)
	second, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 1, "")
	require.NoError(t, err)

	mine, err := f.ledger.BookingsByPassenger(ctx, f.p1.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	_, err = f.ledger.BookingsByTrip(ctx, trip.ID, f.p1.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	byTrip, err := f.ledger.BookingsByTrip(ctx, trip.ID, f.driver.ID)
	require.NoError(t, err)
	assert.Len(t, byTrip, 2)

	_, err = f.ledger.Get(ctx, first.ID, f.p2.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	got, err := f.ledger.Get(ctx, first.ID, f.driver.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}
