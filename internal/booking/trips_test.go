package booking

import (
	"context"
	"testing"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/chachabrian/mooveit-carpool/internal/store/storetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTrip() CreateTripInput {
	return CreateTripInput{
		DepartureLocation: "Place Mohammed V",
		DepartureCity:     " Casablanca ",
		ArrivalLocation:   "Agdal",
		ArrivalCity:       "Rabat",
		DepartureTime:     time.Now().Add(48 * time.Hour),
		TotalSeats:        3,
		PricePerSeat:      decimal.RequireFromString("45.50"),
	}
}

func TestCreateTrip(t *testing.T) {
	f := newFixture(t)
	trips := NewTripService(f.store, f.events, storetest.Logger())

	trip, err := trips.CreateTrip(context.Background(), f.driver.ID, validTrip())
	require.NoError(t, err)
	assert.Equal(t, "Casablanca", trip.DepartureCity)
	assert.Equal(t, 3, trip.AvailableSeats)
	assert.Equal(t, models.TripStatusActive, trip.Status)
	assert.True(t, decimal.RequireFromString("45.5").Equal(trip.PricePerSeat))
}

func TestCreateTripValidation(t *testing.T) {
	f := newFixture(t)
	trips := NewTripService(f.store, f.events, storetest.Logger())

	tests := []struct {
		name   string
		mutate func(in *CreateTripInput)
	}{
		{"no seats", func(in *CreateTripInput) { in.TotalSeats = 0 }},
		{"too many seats", func(in *CreateTripInput) { in.TotalSeats = 9 }},
		{"negative price", func(in *CreateTripInput) { in.PricePerSeat = decimal.NewFromInt(-1) }},
		{"past departure", func(in *CreateTripInput) { in.DepartureTime = time.Now().Add(-time.Hour) }},
		{"missing city", func(in *CreateTripInput) { in.ArrivalCity = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validTrip()
			tt.mutate(&in)
			_, err := trips.CreateTrip(context.Background(), f.driver.ID, in)
			assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
		})
	}

	_, err := trips.CreateTrip(context.Background(), 9999, validTrip())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSearchTrips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trips := NewTripService(f.store, f.events, storetest.Logger())

	later := validTrip()
	later.DepartureTime = time.Now().Add(72 * time.Hour)
	tLater, err := trips.CreateTrip(ctx, f.driver.ID, later)
	require.NoError(t, err)
	tSooner, err := trips.CreateTrip(ctx, f.driver.ID, validTrip())
	require.NoError(t, err)

	full := storetest.Trip(t, f.store, f.driver.ID, 1)
	_, err = f.ledger.CreateBooking(ctx, f.p1.ID, full.ID, 1, "")
	require.NoError(t, err)

	other := validTrip()
	other.ArrivalCity = "Fes"
	_, err = trips.CreateTrip(ctx, f.driver.ID, other)
	require.NoError(t, err)

	found, err := trips.SearchTrips(ctx, "casablanca", "RABAT")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, tSooner.ID, found[0].ID)
	assert.Equal(t, tLater.ID, found[1].ID)

	mine, err := trips.TripsByDriver(ctx, f.driver.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 4)
}

func TestCancelTripReleasesBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trips := NewTripService(f.store, f.events, storetest.Logger())
	trip := storetest.Trip(t, f.store, f.driver.ID, 4)

	b1, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 1, "")
	require.NoError(t, err)
	b2, err := f.ledger.CreateBooking(ctx, f.p2.ID, trip.ID, 2, "")
	require.NoError(t, err)
	_, err = f.ledger.AcceptBooking(ctx, b2.ID, f.driver.ID)
	require.NoError(t, err)

	_, err = trips.CancelTrip(ctx, trip.ID, f.p1.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	cancelled, err := trips.CancelTrip(ctx, trip.ID, f.driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCancelled, cancelled.Status)
	f.assertSeats(t, trip.ID, 4)

	for _, id := range []uint{b1.ID, b2.ID} {
		var b *models.Booking
		require.NoError(t, f.store.WithTx(ctx, func(tx store.Tx) error {
			b, err = tx.GetBooking(ctx, id)
			return err
		}))
		assert.Equal(t, models.BookingStatusCancelled, b.Status)
	}

	_, err = trips.CancelTrip(ctx, trip.ID, f.driver.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	_, err = trips.CompleteTrip(ctx, trip.ID, f.driver.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestCompleteTripNotifiesAcceptedPassengers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	trips := NewTripService(f.store, f.events, storetest.Logger())
	trip := storetest.Trip(t, f.store, f.driver.ID, 4)

	accepted, err := f.ledger.CreateBooking(ctx, f.p1.ID, trip.ID, 1, "")
	require.NoError(t, err)
	_, err = f.ledger.AcceptBooking(ctx, accepted.ID, f.driver.ID)
	require.NoError(t, err)
	_, err = f.ledger.CreateBooking(ctx, f.p2.ID, trip.ID, 1, "")
	require.NoError(t, err)

	done, err := trips.CompleteTrip(ctx, trip.ID, f.driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, done.Status)

	var completed []events.Event
	for _, ev := range f.events.Events() {
		if ev.Type == events.TripCompleted {
			completed = append(completed, ev)
		}
	}
	require.Len(t, completed, 1)
	assert.Equal(t, []uint{f.p1.ID}, completed[0].Recipients)
}
