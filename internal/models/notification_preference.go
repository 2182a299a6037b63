package models

import (
	"time"
)

// NotificationPreference represents user notification preferences
type NotificationPreference struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// General push notification toggle
	PushEnabled bool `gorm:"column:push_enabled" json:"pushEnabled"`

	// Specific notification preferences
	BookingAlerts bool `gorm:"column:booking_alerts" json:"bookingAlerts"`
	MessageAlerts bool `gorm:"column:message_alerts" json:"messageAlerts"`
	ReviewAlerts  bool `gorm:"column:review_alerts" json:"reviewAlerts"`

	EmailEnabled bool `gorm:"column:email_enabled" json:"emailEnabled"`
}

// TableName specifies the table name for NotificationPreference
func (NotificationPreference) TableName() string {
	return "notification_preferences"
}

// DefaultPreferences returns default notification preferences for a new user
func DefaultPreferences(userID uint) *NotificationPreference {
	return &NotificationPreference{
		UserID:        userID,
		PushEnabled:   true,
		BookingAlerts: true,
		MessageAlerts: true,
		ReviewAlerts:  true,
		EmailEnabled:  true,
	}
}

// Allows reports whether a push of the given notification type should be delivered.
func (p *NotificationPreference) Allows(t NotificationType) bool {
	if !p.PushEnabled {
		return false
	}
	switch t {
	case NotificationBookingRequest, NotificationBookingConfirmed, NotificationBookingCancelled,
		NotificationTripCompleted, NotificationTripReminder:
		return p.BookingAlerts
	case NotificationMessageReceived:
		return p.MessageAlerts
	case NotificationReviewReceived:
		return p.ReviewAlerts
	}
	return true
}
