// Package booking owns seat reservations against a trip's capacity.
//
// Every operation runs in one transaction that holds the trip row lock, so
// that for each trip
//
//	availableSeats == totalSeats - sum(seatsBooked of pending and accepted bookings)
//
// holds after every commit, whatever the number of concurrent callers.
package booking

import (
	"context"
	"fmt"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/inbox"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/sirupsen/logrus"
)

type Ledger struct {
	store  store.Store
	events events.Publisher
	log    *logrus.Logger
}

func NewLedger(s store.Store, pub events.Publisher, log *logrus.Logger) *Ledger {
	return &Ledger{store: s, events: pub, log: log}
}

// CreateBooking reserves seats on an active trip for passengerID. The booking
// starts pending and the seats are taken immediately.
func (l *Ledger) CreateBooking(ctx context.Context, passengerID, tripID uint, seats int, message string) (*models.Booking, error) {
	var (
		b     *models.Booking
		trip  *models.Trip
		notif *models.Notification
	)
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if trip, err = tx.GetTripForUpdate(ctx, tripID); err != nil {
			return err
		}
		passenger, err := tx.GetUser(ctx, passengerID)
		if err != nil {
			return err
		}
		if seats < 1 {
			return apperr.InvalidRequest("seats must be at least 1, got %d", seats)
		}
		if seats > trip.AvailableSeats {
			return apperr.InvalidRequest("requested %d seats, only %d available", seats, trip.AvailableSeats)
		}
		if passengerID == trip.DriverID {
			return apperr.Forbidden("driver cannot book their own trip")
		}
		if !trip.IsActive() {
			return apperr.InvalidState("trip %d is %s", trip.ID, trip.Status)
		}

		b = &models.Booking{
			TripID:      trip.ID,
			PassengerID: passengerID,
			SeatsBooked: seats,
			Status:      models.BookingStatusPending,
			Message:     message,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		trip.AvailableSeats -= seats
		if err := tx.SaveTrip(ctx, trip); err != nil {
			return err
		}
		notif = inbox.BookingRequest(trip.DriverID, b, passenger)
		return inbox.Record(ctx, tx, notif)
	})
	if err != nil {
		return nil, err
	}

	l.log.WithFields(logrus.Fields{
		"booking_id":      b.ID,
		"trip_id":         trip.ID,
		"passenger_id":    passengerID,
		"seats":           seats,
		"available_seats": trip.AvailableSeats,
	}).Info("booking created")
	l.events.Publish(ctx, events.Event{
		Type:         events.BookingCreated,
		Recipients:   []uint{trip.DriverID},
		Data:         b,
		Notification: notif,
	})
	return b, nil
}

// transition loads booking id with its trip locked, lets check validate the
// caller, and applies the new status. Seats go back to the trip when the
// booking stops holding them.
func (l *Ledger) transition(
	ctx context.Context,
	id uint,
	to models.BookingStatus,
	check func(b *models.Booking, trip *models.Trip) error,
	notify func(b *models.Booking, trip *models.Trip) *models.Notification,
) (*models.Booking, *models.Trip, *models.Notification, error) {
	var (
		b     *models.Booking
		trip  *models.Trip
		notif *models.Notification
	)
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if b, err = tx.GetBooking(ctx, id); err != nil {
			return err
		}
		if trip, err = tx.GetTripForUpdate(ctx, b.TripID); err != nil {
			return err
		}
		// Re-read under the trip lock so the status check sees the latest write.
		if b, err = tx.GetBooking(ctx, id); err != nil {
			return err
		}
		if err := check(b, trip); err != nil {
			return err
		}

		if b.Status.Holds() && !to.Holds() {
			trip.AvailableSeats += b.SeatsBooked
			if trip.AvailableSeats > trip.TotalSeats {
				return fmt.Errorf("trip %d seat counter overflow: %d > %d", trip.ID, trip.AvailableSeats, trip.TotalSeats)
			}
			if err := tx.SaveTrip(ctx, trip); err != nil {
				return err
			}
		}
		b.Status = to
		if err := tx.SaveBooking(ctx, b); err != nil {
			return err
		}
		if notify != nil {
			notif = notify(b, trip)
			return inbox.Record(ctx, tx, notif)
		}
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return b, trip, notif, nil
}

func driverOnlyPending(driverID uint) func(b *models.Booking, trip *models.Trip) error {
	return func(b *models.Booking, trip *models.Trip) error {
		if trip.DriverID != driverID {
			return apperr.Forbidden("only the trip's driver can decide on booking %d", b.ID)
		}
		if b.Status != models.BookingStatusPending {
			return apperr.InvalidState("booking %d is %s, not pending", b.ID, b.Status)
		}
		return nil
	}
}

// AcceptBooking confirms a pending booking. Seats were already taken at
// creation so the trip counter does not move.
func (l *Ledger) AcceptBooking(ctx context.Context, bookingID, driverID uint) (*models.Booking, error) {
	b, trip, notif, err := l.transition(ctx, bookingID, models.BookingStatusAccepted,
		driverOnlyPending(driverID),
		inbox.BookingConfirmed,
	)
	if err != nil {
		return nil, err
	}
	l.logTransition(b, trip, "booking accepted")
	l.events.Publish(ctx, events.Event{
		Type:         events.BookingAccepted,
		Recipients:   []uint{b.PassengerID},
		Data:         b,
		Notification: notif,
	})
	return b, nil
}

// RejectBooking refuses a pending booking and gives its seats back.
func (l *Ledger) RejectBooking(ctx context.Context, bookingID, driverID uint) (*models.Booking, error) {
	b, trip, notif, err := l.transition(ctx, bookingID, models.BookingStatusRejected,
		driverOnlyPending(driverID),
		func(b *models.Booking, trip *models.Trip) *models.Notification {
			return inbox.BookingCancelled(b.PassengerID, b,
				fmt.Sprintf("Your booking from %s to %s was declined by the driver", trip.DepartureCity, trip.ArrivalCity))
		},
	)
	if err != nil {
		return nil, err
	}
	l.logTransition(b, trip, "booking rejected")
	l.events.Publish(ctx, events.Event{
		Type:         events.BookingRejected,
		Recipients:   []uint{b.PassengerID},
		Data:         b,
		Notification: notif,
	})
	return b, nil
}

// CancelBooking withdraws a pending or accepted booking on behalf of its
// passenger and gives its seats back.
func (l *Ledger) CancelBooking(ctx context.Context, bookingID, passengerID uint) (*models.Booking, error) {
	b, trip, notif, err := l.transition(ctx, bookingID, models.BookingStatusCancelled,
		func(b *models.Booking, _ *models.Trip) error {
			if b.PassengerID != passengerID {
				return apperr.Forbidden("booking %d belongs to another passenger", b.ID)
			}
			if !b.Status.Holds() {
				return apperr.InvalidState("booking %d is already %s", b.ID, b.Status)
			}
			return nil
		},
		func(b *models.Booking, trip *models.Trip) *models.Notification {
			return inbox.BookingCancelled(trip.DriverID, b,
				fmt.Sprintf("A passenger cancelled %d seat(s) on your trip to %s", b.SeatsBooked, trip.ArrivalCity))
		},
	)
	if err != nil {
		return nil, err
	}
	l.logTransition(b, trip, "booking cancelled")
	l.events.Publish(ctx, events.Event{
		Type:         events.BookingCancelled,
		Recipients:   []uint{trip.DriverID},
		Data:         b,
		Notification: notif,
	})
	return b, nil
}

func (l *Ledger) logTransition(b *models.Booking, trip *models.Trip, msg string) {
	l.log.WithFields(logrus.Fields{
		"booking_id":      b.ID,
		"trip_id":         trip.ID,
		"seats":           b.SeatsBooked,
		"available_seats": trip.AvailableSeats,
	}).Info(msg)
}

// AcceptMany, RejectMany and CancelMany run the single operation for each id
// in its own transaction. A failing id never stops the batch; its error is
// reported in the matching result.
func (l *Ledger) AcceptMany(ctx context.Context, ids []uint, driverID uint) []apperr.ItemResult {
	return l.each(ids, func(id uint) error {
		_, err := l.AcceptBooking(ctx, id, driverID)
		return err
	})
}

func (l *Ledger) RejectMany(ctx context.Context, ids []uint, driverID uint) []apperr.ItemResult {
	return l.each(ids, func(id uint) error {
		_, err := l.RejectBooking(ctx, id, driverID)
		return err
	})
}

func (l *Ledger) CancelMany(ctx context.Context, ids []uint, passengerID uint) []apperr.ItemResult {
	return l.each(ids, func(id uint) error {
		_, err := l.CancelBooking(ctx, id, passengerID)
		return err
	})
}

func (l *Ledger) each(ids []uint, op func(id uint) error) []apperr.ItemResult {
	results := make([]apperr.ItemResult, 0, len(ids))
	for _, id := range ids {
		err := op(id)
		if err != nil {
			l.log.WithError(err).WithField("booking_id", id).Debug("batch item skipped")
		}
		results = append(results, apperr.ItemResult{ID: id, Err: err})
	}
	return results
}

// Audit compares a trip's stored seat counter with the one implied by its
// active bookings.
type Audit struct {
	TripID         uint `json:"tripId"`
	TotalSeats     int  `json:"totalSeats"`
	AvailableSeats int  `json:"availableSeats"`
	HeldSeats      int  `json:"heldSeats"`
	ExpectedSeats  int  `json:"expectedAvailableSeats"`
	Consistent     bool `json:"consistent"`
}

func (l *Ledger) SeatAudit(ctx context.Context, tripID uint) (*Audit, error) {
	var a *Audit
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		trip, err := tx.GetTripForUpdate(ctx, tripID)
		if err != nil {
			return err
		}
		active, err := tx.FindActiveBookingsByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		held := 0
		for _, b := range active {
			held += b.SeatsBooked
		}
		a = &Audit{
			TripID:         trip.ID,
			TotalSeats:     trip.TotalSeats,
			AvailableSeats: trip.AvailableSeats,
			HeldSeats:      held,
			ExpectedSeats:  trip.TotalSeats - held,
		}
		a.Consistent = a.ExpectedSeats == a.AvailableSeats && held <= trip.TotalSeats
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !a.Consistent {
		l.log.WithFields(logrus.Fields{
			"trip_id":  a.TripID,
			"stored":   a.AvailableSeats,
			"expected": a.ExpectedSeats,
		}).Warn("seat counter drift")
	}
	return a, nil
}

func (l *Ledger) Get(ctx context.Context, bookingID, userID uint) (*models.Booking, error) {
	var b *models.Booking
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if b, err = tx.GetBooking(ctx, bookingID); err != nil {
			return err
		}
		if b.PassengerID == userID {
			return nil
		}
		trip, err := tx.GetTrip(ctx, b.TripID)
		if err != nil {
			return err
		}
		if trip.DriverID != userID {
			return apperr.Forbidden("booking %d is not yours", bookingID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (l *Ledger) BookingsByPassenger(ctx context.Context, passengerID uint) ([]models.Booking, error) {
	var out []models.Booking
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListBookings(ctx, store.BookingFilter{PassengerID: passengerID})
		return err
	})
	return out, err
}

// BookingsByTrip lists a trip's bookings for its driver.
func (l *Ledger) BookingsByTrip(ctx context.Context, tripID, driverID uint) ([]models.Booking, error) {
	var out []models.Booking
	err := l.store.WithTx(ctx, func(tx store.Tx) error {
		trip, err := tx.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}
		if trip.DriverID != driverID {
			return apperr.Forbidden("only the driver can list bookings of trip %d", tripID)
		}
		out, err = tx.ListBookings(ctx, store.BookingFilter{TripID: tripID})
		return err
	})
	return out, err
}
