// Package store is the persistence boundary of the carpool core. Every
// operation runs inside Store.WithTx; the Tx handed to the callback sees a
// consistent view and its writes become visible together or not at all.
//
// Lookups of a missing id return an error wrapping apperr.ErrNotFound.
package store

import (
	"context"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/models"
)

type Store interface {
	// WithTx runs fn in a single transaction. A non-nil error from fn rolls
	// the transaction back and is returned unchanged.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	UserRepo
	TripRepo
	BookingRepo
	ReviewRepo
	MessageRepo
	NotificationRepo
	ReportRepo
}

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	// GetUserForUpdate locks the user row until the transaction ends.
	GetUserForUpdate(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	CountUsers(ctx context.Context) (int64, error)
}

type TripFilter struct {
	DriverID       uint
	DepartureCity  string // case-insensitive exact match
	ArrivalCity    string // case-insensitive exact match
	Status         models.TripStatus
	DepartingAfter time.Time
	WithSeatsOnly  bool
}

type TripRepo interface {
	CreateTrip(ctx context.Context, t *models.Trip) error
	GetTrip(ctx context.Context, id uint) (*models.Trip, error)
	// GetTripForUpdate locks the trip row until the transaction ends.
	GetTripForUpdate(ctx context.Context, id uint) (*models.Trip, error)
	SaveTrip(ctx context.Context, t *models.Trip) error
	// ListTrips returns matching trips ordered by departure time.
	ListTrips(ctx context.Context, f TripFilter) ([]models.Trip, error)
	CountTripsByStatus(ctx context.Context) (map[models.TripStatus]int64, error)
}

type BookingFilter struct {
	TripID      uint
	PassengerID uint
}

type BookingRepo interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id uint) (*models.Booking, error)
	SaveBooking(ctx context.Context, b *models.Booking) error
	// FindActiveBookingsByTrip returns the pending and accepted bookings of a trip.
	FindActiveBookingsByTrip(ctx context.Context, tripID uint) ([]models.Booking, error)
	// ListBookings returns matching bookings, newest first.
	ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error)
	CountBookingsByStatus(ctx context.Context) (map[models.BookingStatus]int64, error)
}

type ReviewFilter struct {
	ReviewerID     uint
	ReviewedUserID uint
	TripID         uint
}

type ReviewRepo interface {
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id uint) (*models.Review, error)
	DeleteReview(ctx context.Context, id uint) error
	FindReviewsByReviewedUserAndType(ctx context.Context, userID uint, t models.ReviewType) ([]models.Review, error)
	ExistsReview(ctx context.Context, reviewerID, reviewedUserID, tripID uint) (bool, error)
	// ListReviews returns matching reviews, newest first.
	ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error)
}

// MessageFilter selects messages. ParticipantID matches either side; combined
// with PeerID it selects the conversation between the two users.
type MessageFilter struct {
	SenderID      uint
	ReceiverID    uint
	ParticipantID uint
	PeerID        uint
	TripID        uint
	UnreadOnly    bool
	NewestFirst   bool
}

type MessageRepo interface {
	CreateMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	SaveMessage(ctx context.Context, m *models.Message) error
	DeleteMessage(ctx context.Context, id uint) error
	ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error)
	CountUnreadMessages(ctx context.Context, receiverID uint) (int64, error)
}

type NotificationFilter struct {
	UserID          uint
	RelatedEntityID uint
	Type            models.NotificationType
	UnreadOnly      bool
	Limit           int
}

type NotificationRepo interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id uint) (*models.Notification, error)
	SaveNotification(ctx context.Context, n *models.Notification) error
	DeleteNotification(ctx context.Context, id uint) error
	// ListNotifications returns matching notifications, newest first.
	ListNotifications(ctx context.Context, f NotificationFilter) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uint) (int64, error)
	MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetNotificationPreference(ctx context.Context, userID uint) (*models.NotificationPreference, error)
	SaveNotificationPreference(ctx context.Context, p *models.NotificationPreference) error
}

type ReportFilter struct {
	ReporterID     uint
	ReportedUserID uint
	ReviewedBy     uint
	Type           models.ReportType
	Reason         models.ReportReason
	Status         models.ReportStatus
	UnresolvedOnly bool
}

type ReportRepo interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id uint) (*models.Report, error)
	SaveReport(ctx context.Context, r *models.Report) error
	DeleteReport(ctx context.Context, id uint) error
	// ListReports returns matching reports, newest first.
	ListReports(ctx context.Context, f ReportFilter) ([]models.Report, error)
	CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int64, error)
}
