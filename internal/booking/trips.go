package booking

import (
	"context"
	"strings"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/inbox"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxDescriptionLength = 500

// TripService publishes trips and drives their lifecycle. Seat counters are
// only touched here when a trip is cancelled, through the same row lock the
// ledger uses.
type TripService struct {
	store  store.Store
	events events.Publisher
	log    *logrus.Logger
	now    func() time.Time
}

func NewTripService(s store.Store, pub events.Publisher, log *logrus.Logger) *TripService {
	return &TripService{store: s, events: pub, log: log, now: time.Now}
}

type CreateTripInput struct {
	DepartureLocation string
	DepartureCity     string
	ArrivalLocation   string
	ArrivalCity       string
	DepartureTime     time.Time
	TotalSeats        int
	PricePerSeat      decimal.Decimal
	Description       string
}

func (in *CreateTripInput) validate(now time.Time) error {
	in.DepartureCity = strings.TrimSpace(in.DepartureCity)
	in.ArrivalCity = strings.TrimSpace(in.ArrivalCity)
	in.DepartureLocation = strings.TrimSpace(in.DepartureLocation)
	in.ArrivalLocation = strings.TrimSpace(in.ArrivalLocation)
	in.Description = strings.TrimSpace(in.Description)

	switch {
	case in.DepartureCity == "" || in.ArrivalCity == "":
		return apperr.InvalidRequest("departure and arrival cities are required")
	case in.DepartureLocation == "" || in.ArrivalLocation == "":
		return apperr.InvalidRequest("departure and arrival locations are required")
	case in.TotalSeats < models.MinTripSeats || in.TotalSeats > models.MaxTripSeats:
		return apperr.InvalidRequest("total seats must be between %d and %d", models.MinTripSeats, models.MaxTripSeats)
	case in.PricePerSeat.IsNegative():
		return apperr.InvalidRequest("price per seat cannot be negative")
	case !in.DepartureTime.After(now):
		return apperr.InvalidRequest("departure time must be in the future")
	case len(in.Description) > maxDescriptionLength:
		return apperr.InvalidRequest("description is limited to %d characters", maxDescriptionLength)
	}
	return nil
}

func (s *TripService) CreateTrip(ctx context.Context, driverID uint, in CreateTripInput) (*models.Trip, error) {
	if err := in.validate(s.now()); err != nil {
		return nil, err
	}
	trip := &models.Trip{
		DriverID:          driverID,
		DepartureLocation: in.DepartureLocation,
		DepartureCity:     in.DepartureCity,
		ArrivalLocation:   in.ArrivalLocation,
		ArrivalCity:       in.ArrivalCity,
		DepartureTime:     in.DepartureTime,
		TotalSeats:        in.TotalSeats,
		AvailableSeats:    in.TotalSeats,
		PricePerSeat:      in.PricePerSeat.Round(2),
		Description:       in.Description,
		Status:            models.TripStatusActive,
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, driverID); err != nil {
			return err
		}
		return tx.CreateTrip(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"trip_id":   trip.ID,
		"driver_id": driverID,
		"seats":     trip.TotalSeats,
		"route":     trip.DepartureCity + " -> " + trip.ArrivalCity,
	}).Info("trip created")
	s.events.Publish(ctx, events.Event{Type: events.TripCreated, Data: trip})
	return trip, nil
}

func (s *TripService) GetTrip(ctx context.Context, id uint) (*models.Trip, error) {
	var trip *models.Trip
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		trip, err = tx.GetTrip(ctx, id)
		return err
	})
	return trip, err
}

func (s *TripService) list(ctx context.Context, f store.TripFilter) ([]models.Trip, error) {
	var out []models.Trip
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListTrips(ctx, f)
		return err
	})
	return out, err
}

// SearchTrips returns bookable trips between two cities, soonest first. City
// matching ignores case; an empty city matches any.
func (s *TripService) SearchTrips(ctx context.Context, departureCity, arrivalCity string) ([]models.Trip, error) {
	return s.list(ctx, store.TripFilter{
		DepartureCity:  strings.TrimSpace(departureCity),
		ArrivalCity:    strings.TrimSpace(arrivalCity),
		Status:         models.TripStatusActive,
		DepartingAfter: s.now(),
		WithSeatsOnly:  true,
	})
}

func (s *TripService) ActiveTrips(ctx context.Context) ([]models.Trip, error) {
	return s.list(ctx, store.TripFilter{Status: models.TripStatusActive, DepartingAfter: s.now()})
}

func (s *TripService) TripsByDriver(ctx context.Context, driverID uint) ([]models.Trip, error) {
	return s.list(ctx, store.TripFilter{DriverID: driverID})
}

func (s *TripService) ownActiveTrip(ctx context.Context, tx store.Tx, tripID, driverID uint) (*models.Trip, error) {
	trip, err := tx.GetTripForUpdate(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.DriverID != driverID {
		return nil, apperr.Forbidden("trip %d belongs to another driver", tripID)
	}
	if !trip.IsActive() {
		return nil, apperr.InvalidState("trip %d is already %s", tripID, trip.Status)
	}
	return trip, nil
}

// CancelTrip cancels the trip and every booking still holding seats on it, in
// one transaction.
func (s *TripService) CancelTrip(ctx context.Context, tripID, driverID uint) (*models.Trip, error) {
	var (
		trip      *models.Trip
		cancelled []models.Booking
		notes     []*models.Notification
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if trip, err = s.ownActiveTrip(ctx, tx, tripID, driverID); err != nil {
			return err
		}
		if cancelled, err = tx.FindActiveBookingsByTrip(ctx, tripID); err != nil {
			return err
		}
		for i := range cancelled {
			b := &cancelled[i]
			trip.AvailableSeats += b.SeatsBooked
			b.Status = models.BookingStatusCancelled
			if err := tx.SaveBooking(ctx, b); err != nil {
				return err
			}
			n := inbox.BookingCancelled(b.PassengerID, b,
				"The driver cancelled the trip from "+trip.DepartureCity+" to "+trip.ArrivalCity)
			if err := inbox.Record(ctx, tx, n); err != nil {
				return err
			}
			notes = append(notes, n)
		}
		trip.Status = models.TripStatusCancelled
		return tx.SaveTrip(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"trip_id":            trip.ID,
		"bookings_cancelled": len(cancelled),
		"available_seats":    trip.AvailableSeats,
	}).Info("trip cancelled")
	s.events.Publish(ctx, events.Event{Type: events.TripCancelled, Data: trip})
	for i := range cancelled {
		s.events.Publish(ctx, events.Event{
			Type:         events.BookingCancelled,
			Recipients:   []uint{cancelled[i].PassengerID},
			Data:         &cancelled[i],
			Notification: notes[i],
		})
	}
	return trip, nil
}

// CompleteTrip closes an active trip. Passengers with an accepted booking are
// invited to review the driver.
func (s *TripService) CompleteTrip(ctx context.Context, tripID, driverID uint) (*models.Trip, error) {
	var (
		trip  *models.Trip
		notes []*models.Notification
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if trip, err = s.ownActiveTrip(ctx, tx, tripID, driverID); err != nil {
			return err
		}
		active, err := tx.FindActiveBookingsByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		for _, b := range active {
			if b.Status != models.BookingStatusAccepted {
				continue
			}
			n := inbox.TripCompleted(b.PassengerID, trip)
			if err := inbox.Record(ctx, tx, n); err != nil {
				return err
			}
			notes = append(notes, n)
		}
		trip.Status = models.TripStatusCompleted
		return tx.SaveTrip(ctx, trip)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("trip_id", trip.ID).Info("trip completed")
	for _, n := range notes {
		s.events.Publish(ctx, events.Event{
			Type:         events.TripCompleted,
			Recipients:   []uint{n.UserID},
			Data:         trip,
			Notification: n,
		})
	}
	if len(notes) == 0 {
		s.events.Publish(ctx, events.Event{Type: events.TripCompleted, Data: trip})
	}
	return trip, nil
}
