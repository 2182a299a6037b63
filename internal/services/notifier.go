package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/inbox"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// EventQueue hands events to a message broker.
type EventQueue interface {
	Publish(ctx context.Context, msg EventMessage) error
}

// NotifierDeps lists the delivery channels. Every field except Store and
// Log is optional.
type NotifierDeps struct {
	Store      store.Store
	Hub        *Hub
	Redis      *redis.Client
	Cache      *TripCache
	Queue      EventQueue
	Push       PushSender
	Mail       MailSender
	InstanceID string
	BaseURL    string
	Log        *logrus.Logger
}

// Notifier implements events.Publisher. Broadcast channels (websocket,
// redis, amqp) are fed synchronously; push and email run in the background
// and are awaited by Wait.
type Notifier struct {
	deps NotifierDeps
	wg   sync.WaitGroup
}

func NewNotifier(deps NotifierDeps) *Notifier {
	return &Notifier{deps: deps}
}

var _ events.Publisher = (*Notifier)(nil)

func (n *Notifier) Publish(ctx context.Context, ev events.Event) {
	msg := EventMessage{
		Type:       ev.Type,
		Recipients: ev.Recipients,
		Data:       ev.Data,
		Origin:     n.deps.InstanceID,
		Timestamp:  time.Now().Unix(),
	}
	entry := n.deps.Log.WithField("event", ev.Type)

	if n.deps.Hub != nil {
		n.deps.Hub.Deliver(msg)
	}
	if n.deps.Redis != nil {
		if err := PublishEvent(ctx, n.deps.Redis, msg); err != nil {
			entry.WithError(err).Warn("failed to publish event to redis")
		}
	}
	if n.deps.Queue != nil {
		if err := n.deps.Queue.Publish(ctx, msg); err != nil {
			entry.WithError(err).Warn("failed to publish event to broker")
		}
	}
	if n.deps.Cache != nil && invalidatesSearch(ev.Type) {
		if err := n.deps.Cache.Invalidate(ctx); err != nil {
			entry.WithError(err).Warn("failed to invalidate trip search cache")
		}
	}

	if ev.Notification != nil && (n.deps.Push != nil || n.deps.Mail != nil) {
		note := *ev.Notification
		bg := context.WithoutCancel(ctx)
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.deliverPersonal(bg, note)
		}()
	}
}

// Wait blocks until background push and email deliveries finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func invalidatesSearch(eventType string) bool {
	return strings.HasPrefix(eventType, "trip.") || strings.HasPrefix(eventType, "booking.")
}

func emailWorthy(t models.NotificationType) bool {
	switch t {
	case models.NotificationBookingRequest, models.NotificationBookingConfirmed, models.NotificationBookingCancelled:
		return true
	}
	return false
}

func (n *Notifier) deliverPersonal(ctx context.Context, note models.Notification) {
	var (
		user  *models.User
		prefs *models.NotificationPreference
	)
	err := n.deps.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if user, err = tx.GetUser(ctx, note.UserID); err != nil {
			return err
		}
		prefs, err = inbox.LoadPreferences(ctx, tx, note.UserID)
		return err
	})
	entry := n.deps.Log.WithFields(logrus.Fields{"user_id": note.UserID, "notification_id": note.ID})
	if err != nil {
		entry.WithError(err).Warn("failed to load notification recipient")
		return
	}

	if n.deps.Push != nil && user.FCMToken != "" && prefs.Allows(note.Type) {
		payload := NotificationPayload{
			Title: note.Title,
			Body:  note.Message,
			Data:  map[string]string{"type": string(note.Type)},
			Tag:   string(note.Type),
		}
		if note.RelatedEntityID != nil {
			payload.Data["relatedEntityId"] = strconv.FormatUint(uint64(*note.RelatedEntityID), 10)
		}
		if err := n.deps.Push.SendNotificationToToken(ctx, user.FCMToken, payload); err != nil {
			entry.WithError(err).Warn("failed to send push notification")
		}
	}

	if n.deps.Mail != nil && prefs.EmailEnabled && emailWorthy(note.Type) {
		body := RenderNotificationEmail(user.FullName(), note.Title, note.Message, n.deps.BaseURL)
		if err := n.deps.Mail.Send(user.Email, note.Title+" - MooveIt", body); err != nil {
			entry.WithError(err).Warn("failed to send notification email")
		}
	}
}
