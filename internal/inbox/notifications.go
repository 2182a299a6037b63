package inbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/sirupsen/logrus"
)

// Record validates n and inserts it inside an already open transaction. Other
// services call it so that the notification commits with the change it
// describes.
func Record(ctx context.Context, tx store.Tx, n *models.Notification) error {
	if _, err := tx.GetUser(ctx, n.UserID); err != nil {
		return err
	}
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	if n.Title == "" {
		return apperr.InvalidRequest("notification title cannot be empty")
	}
	if n.Message == "" {
		return apperr.InvalidRequest("notification message cannot be empty")
	}
	if n.Type == "" {
		n.Type = models.NotificationSystem
	}
	n.IsRead = false
	n.ReadAt = nil
	return tx.CreateNotification(ctx, n)
}

func related(id uint) *uint {
	return &id
}

func BookingRequest(driverID uint, b *models.Booking, passenger *models.User) *models.Notification {
	return &models.Notification{
		UserID:          driverID,
		Title:           "New booking request",
		Message:         fmt.Sprintf("%s requested %d seat(s) on your trip", passenger.FullName(), b.SeatsBooked),
		Type:            models.NotificationBookingRequest,
		RelatedEntityID: related(b.ID),
	}
}

func BookingConfirmed(b *models.Booking, trip *models.Trip) *models.Notification {
	return &models.Notification{
		UserID:          b.PassengerID,
		Title:           "Booking confirmed",
		Message:         fmt.Sprintf("Your booking from %s to %s was accepted", trip.DepartureCity, trip.ArrivalCity),
		Type:            models.NotificationBookingConfirmed,
		RelatedEntityID: related(b.ID),
	}
}

// BookingCancelled notifies userID that booking b will not happen. reason is
// shown as is.
func BookingCancelled(userID uint, b *models.Booking, reason string) *models.Notification {
	return &models.Notification{
		UserID:          userID,
		Title:           "Booking cancelled",
		Message:         reason,
		Type:            models.NotificationBookingCancelled,
		RelatedEntityID: related(b.ID),
	}
}

func MessageReceived(m *models.Message, sender *models.User) *models.Notification {
	return &models.Notification{
		UserID:          m.ReceiverID,
		Title:           "New message",
		Message:         fmt.Sprintf("%s sent you a message", sender.FullName()),
		Type:            models.NotificationMessageReceived,
		RelatedEntityID: related(m.ID),
	}
}

func ReviewReceived(r *models.Review, reviewer *models.User) *models.Notification {
	return &models.Notification{
		UserID:          r.ReviewedUserID,
		Title:           "New review",
		Message:         fmt.Sprintf("%s rated you %d/5", reviewer.FullName(), r.Rating),
		Type:            models.NotificationReviewReceived,
		RelatedEntityID: related(r.ID),
	}
}

func TripCompleted(passengerID uint, trip *models.Trip) *models.Notification {
	return &models.Notification{
		UserID:          passengerID,
		Title:           "Trip completed",
		Message:         fmt.Sprintf("Your trip from %s to %s is complete, you can now leave a review", trip.DepartureCity, trip.ArrivalCity),
		Type:            models.NotificationTripCompleted,
		RelatedEntityID: related(trip.ID),
	}
}

// NotificationService is the read/acknowledge side of the notification inbox.
type NotificationService struct {
	store store.Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewNotificationService(s store.Store, log *logrus.Logger) *NotificationService {
	return &NotificationService{store: s, log: log, now: time.Now}
}

type CreateNotificationInput struct {
	UserID          uint
	Title           string
	Message         string
	Type            models.NotificationType
	RelatedEntityID *uint
}

func (s *NotificationService) Create(ctx context.Context, in CreateNotificationInput) (*models.Notification, error) {
	n := &models.Notification{
		UserID:          in.UserID,
		Title:           in.Title,
		Message:         in.Message,
		Type:            in.Type,
		RelatedEntityID: in.RelatedEntityID,
	}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		return Record(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListOptions narrows a user's notification listing. Zero values mean no filter.
type ListOptions struct {
	UnreadOnly bool
	Type       models.NotificationType
	Limit      int
}

// List returns the user's notifications, most recent first.
func (s *NotificationService) List(ctx context.Context, userID uint, opts ListOptions) ([]models.Notification, error) {
	var out []models.Notification
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListNotifications(ctx, store.NotificationFilter{
			UserID:     userID,
			UnreadOnly: opts.UnreadOnly,
			Type:       opts.Type,
			Limit:      opts.Limit,
		})
		return err
	})
	return out, err
}

func (s *NotificationService) ByRelatedEntity(ctx context.Context, entityID uint) ([]models.Notification, error) {
	var out []models.Notification
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListNotifications(ctx, store.NotificationFilter{RelatedEntityID: entityID})
		return err
	})
	return out, err
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.CountUnreadNotifications(ctx, userID)
		return err
	})
	return n, err
}

func ownNotification(ctx context.Context, tx store.Tx, id, userID uint) (*models.Notification, error) {
	n, err := tx.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperr.Forbidden("notification %d belongs to another user", id)
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) (*models.Notification, error) {
	var n *models.Notification
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if n, err = ownNotification(ctx, tx, id, userID); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		at := s.now()
		n.IsRead = true
		n.ReadAt = &at
		return tx.SaveNotification(ctx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// MarkManyRead marks each notification independently; a failure on one id
// does not stop the others.
func (s *NotificationService) MarkManyRead(ctx context.Context, ids []uint, userID uint) []apperr.ItemResult {
	results := make([]apperr.ItemResult, 0, len(ids))
	for _, id := range ids {
		_, err := s.MarkRead(ctx, id, userID)
		results = append(results, apperr.ItemResult{ID: id, Err: err})
	}
	return results
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.MarkAllNotificationsRead(ctx, userID, s.now())
		return err
	})
	return n, err
}

func (s *NotificationService) Delete(ctx context.Context, id, userID uint) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := ownNotification(ctx, tx, id, userID); err != nil {
			return err
		}
		return tx.DeleteNotification(ctx, id)
	})
}

// CleanupOldRead removes read notifications created before cutoff.
func (s *NotificationService) CleanupOldRead(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteReadNotificationsBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{"deleted": n, "cutoff": cutoff}).Info("cleaned up read notifications")
	}
	return n, nil
}

// RunCleanup deletes read notifications older than retention every interval
// until ctx is done.
func (s *NotificationService) RunCleanup(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupOldRead(ctx, s.now().Add(-retention)); err != nil {
				s.log.WithError(err).Warn("notification cleanup failed")
			}
		}
	}
}

// Preferences returns the user's stored preferences or the defaults.
func (s *NotificationService) Preferences(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	var p *models.NotificationPreference
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		p, err = LoadPreferences(ctx, tx, userID)
		return err
	})
	return p, err
}

// LoadPreferences is Preferences inside an open transaction.
func LoadPreferences(ctx context.Context, tx store.Tx, userID uint) (*models.NotificationPreference, error) {
	p, err := tx.GetNotificationPreference(ctx, userID)
	if apperr.Kind(err) == apperr.ErrNotFound {
		return models.DefaultPreferences(userID), nil
	}
	return p, err
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, userID uint, p models.NotificationPreference) (*models.NotificationPreference, error) {
	p.UserID = userID
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if existing, err := tx.GetNotificationPreference(ctx, userID); err == nil {
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
		} else if apperr.Kind(err) != apperr.ErrNotFound {
			return err
		}
		return tx.SaveNotificationPreference(ctx, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RegisterToken stores the device token used for push delivery.
func (s *NotificationService) RegisterToken(ctx context.Context, userID uint, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperr.InvalidRequest("token is required")
	}
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		u.FCMToken = token
		return tx.SaveUser(ctx, u)
	})
}
