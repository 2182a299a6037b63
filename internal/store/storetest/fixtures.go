// Package storetest seeds a MemoryStore for service tests.
package storetest

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func Logger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func User(t *testing.T, s store.Store, first string) *models.User {
	t.Helper()
	u := &models.User{
		Email:        first + "@example.com",
		PasswordHash: "x",
		FirstName:    first,
		LastName:     "Test",
		Role:         models.UserRoleUser,
	}
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateUser(context.Background(), u)
	}))
	return u
}

func Admin(t *testing.T, s store.Store, first string) *models.User {
	t.Helper()
	u := User(t, s, first)
	u.Role = models.UserRoleAdmin
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.SaveUser(context.Background(), u)
	}))
	return u
}

// Trip inserts an active trip departing tomorrow with all seats free.
func Trip(t *testing.T, s store.Store, driverID uint, seats int) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		DriverID:          driverID,
		DepartureLocation: "Gare Centrale",
		DepartureCity:     "Casablanca",
		ArrivalLocation:   "Bab Rouah",
		ArrivalCity:       "Rabat",
		DepartureTime:     time.Now().Add(24 * time.Hour),
		TotalSeats:        seats,
		AvailableSeats:    seats,
		PricePerSeat:      decimal.NewFromInt(50),
		Status:            models.TripStatusActive,
	}
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.CreateTrip(context.Background(), trip)
	}))
	return trip
}

func GetTrip(t *testing.T, s store.Store, id uint) *models.Trip {
	t.Helper()
	var trip *models.Trip
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		var err error
		trip, err = tx.GetTrip(context.Background(), id)
		return err
	}))
	return trip
}

func GetUser(t *testing.T, s store.Store, id uint) *models.User {
	t.Helper()
	var u *models.User
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		var err error
		u, err = tx.GetUser(context.Background(), id)
		return err
	}))
	return u
}

// HeldSeats sums the seats of the trip's pending and accepted bookings.
func HeldSeats(t *testing.T, s store.Store, tripID uint) int {
	t.Helper()
	held := 0
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		active, err := tx.FindActiveBookingsByTrip(context.Background(), tripID)
		for _, b := range active {
			held += b.SeatsBooked
		}
		return err
	}))
	return held
}
