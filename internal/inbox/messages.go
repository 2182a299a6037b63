// Package inbox holds user-to-user messages and the per-user notification feed.
package inbox

import (
	"context"
	"strings"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/sirupsen/logrus"
)

type MessageService struct {
	store  store.Store
	events events.Publisher
	log    *logrus.Logger
}

func NewMessageService(s store.Store, pub events.Publisher, log *logrus.Logger) *MessageService {
	return &MessageService{store: s, events: pub, log: log}
}

type SendMessageInput struct {
	ReceiverID uint
	TripID     *uint
	Content    string
}

// Send stores a message and a MESSAGE_RECEIVED notification for the receiver.
func (s *MessageService) Send(ctx context.Context, senderID uint, in SendMessageInput) (*models.Message, error) {
	var (
		msg          *models.Message
		notification *models.Notification
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		sender, err := tx.GetUser(ctx, senderID)
		if err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, in.ReceiverID); err != nil {
			return err
		}
		if in.TripID != nil {
			if _, err := tx.GetTrip(ctx, *in.TripID); err != nil {
				return err
			}
		}
		content := strings.TrimSpace(in.Content)
		if content == "" {
			return apperr.InvalidRequest("message content cannot be empty")
		}
		if senderID == in.ReceiverID {
			return apperr.Forbidden("cannot send a message to yourself")
		}

		msg = &models.Message{
			SenderID:   senderID,
			ReceiverID: in.ReceiverID,
			TripID:     in.TripID,
			Content:    content,
		}
		if err := tx.CreateMessage(ctx, msg); err != nil {
			return err
		}
		notification = MessageReceived(msg, sender)
		return Record(ctx, tx, notification)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"message_id":  msg.ID,
		"sender_id":   msg.SenderID,
		"receiver_id": msg.ReceiverID,
	}).Debug("message sent")
	s.events.Publish(ctx, events.Event{
		Type:         events.MessageSent,
		Recipients:   []uint{msg.ReceiverID},
		Data:         msg,
		Notification: notification,
	})
	return msg, nil
}

// Get returns a message to one of its two participants.
func (s *MessageService) Get(ctx context.Context, id, userID uint) (*models.Message, error) {
	var msg *models.Message
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if msg, err = tx.GetMessage(ctx, id); err != nil {
			return err
		}
		if msg.SenderID != userID && msg.ReceiverID != userID {
			return apperr.Forbidden("message %d is not yours", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) list(ctx context.Context, f store.MessageFilter) ([]models.Message, error) {
	var out []models.Message
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListMessages(ctx, f)
		return err
	})
	return out, err
}

// Conversation returns the messages exchanged by the two users in
// chronological order, restricted to one trip when tripID is non-zero.
func (s *MessageService) Conversation(ctx context.Context, userID, peerID, tripID uint) ([]models.Message, error) {
	return s.list(ctx, store.MessageFilter{ParticipantID: userID, PeerID: peerID, TripID: tripID})
}

func (s *MessageService) Sent(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.list(ctx, store.MessageFilter{SenderID: userID, NewestFirst: true})
}

func (s *MessageService) Received(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.list(ctx, store.MessageFilter{ReceiverID: userID, NewestFirst: true})
}

func (s *MessageService) Unread(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.list(ctx, store.MessageFilter{ReceiverID: userID, UnreadOnly: true, NewestFirst: true})
}

// All returns every message the user sent or received, newest first.
func (s *MessageService) All(ctx context.Context, userID uint) ([]models.Message, error) {
	return s.list(ctx, store.MessageFilter{ParticipantID: userID, NewestFirst: true})
}

func (s *MessageService) TripMessages(ctx context.Context, tripID uint) ([]models.Message, error) {
	return s.list(ctx, store.MessageFilter{TripID: tripID})
}

func (s *MessageService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.CountUnreadMessages(ctx, userID)
		return err
	})
	return n, err
}

// MarkRead is only allowed to the receiver.
func (s *MessageService) MarkRead(ctx context.Context, id, userID uint) (*models.Message, error) {
	var msg *models.Message
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if msg, err = tx.GetMessage(ctx, id); err != nil {
			return err
		}
		if msg.ReceiverID != userID {
			return apperr.Forbidden("only the receiver can mark message %d as read", id)
		}
		if msg.IsRead {
			return nil
		}
		msg.IsRead = true
		return tx.SaveMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) MarkManyRead(ctx context.Context, ids []uint, userID uint) []apperr.ItemResult {
	results := make([]apperr.ItemResult, 0, len(ids))
	for _, id := range ids {
		_, err := s.MarkRead(ctx, id, userID)
		results = append(results, apperr.ItemResult{ID: id, Err: err})
	}
	return results
}

// Delete is only allowed to the sender.
func (s *MessageService) Delete(ctx context.Context, id, userID uint) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		msg, err := tx.GetMessage(ctx, id)
		if err != nil {
			return err
		}
		if msg.SenderID != userID {
			return apperr.Forbidden("only the sender can delete message %d", id)
		}
		return tx.DeleteMessage(ctx, id)
	})
}
