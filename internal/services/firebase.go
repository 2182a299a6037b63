package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PushSender delivers one push notification to a device token.
type PushSender interface {
	SendNotificationToToken(ctx context.Context, token string, payload NotificationPayload) error
}

// Pusher sends notifications through Firebase Cloud Messaging. A Pusher
// without a messaging client skips every send.
type Pusher struct {
	client *messaging.Client
	log    *logrus.Logger
}

// InitFirebase initializes the Firebase Admin SDK. An empty service account
// path disables push notifications.
func InitFirebase(ctx context.Context, serviceAccountPath string, log *logrus.Logger) (*Pusher, error) {
	if serviceAccountPath == "" {
		log.Warn("FIREBASE_SERVICE_ACCOUNT_PATH not set, push notifications disabled")
		return &Pusher{log: log}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %v", err)
	}

	log.Info("Firebase Cloud Messaging initialized")
	return &Pusher{client: client, log: log}, nil
}

func (p *Pusher) Enabled() bool {
	return p.client != nil
}

// NotificationPayload represents the notification data
type NotificationPayload struct {
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	ChannelID string            `json:"channelId,omitempty"` // Android notification channel
	Tag       string            `json:"tag,omitempty"`       // collapses repeated pushes about the same entity
}

// buildMessage converts a payload into the FCM message for token
func buildMessage(token string, payload NotificationPayload) *messaging.Message {
	channelID := payload.ChannelID
	if channelID == "" {
		channelID = "carpool_default"
	}
	badge := 1

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID:             channelID,
				Tag:                   payload.Tag,
				Priority:              messaging.PriorityHigh,
				DefaultSound:          true,
				DefaultVibrateTimings: true,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:          "default",
					Badge:          &badge,
					MutableContent: true,
				},
			},
		},
	}
}

// SendNotificationToToken sends a notification to a specific FCM token
func (p *Pusher) SendNotificationToToken(ctx context.Context, token string, payload NotificationPayload) error {
	if p.client == nil {
		p.log.Debug("firebase not initialized, skipping push")
		return nil
	}

	response, err := p.client.Send(ctx, buildMessage(token, payload))
	if err != nil {
		return fmt.Errorf("error sending message: %v", err)
	}

	p.log.WithField("response", response).Debug("push notification sent")
	return nil
}
