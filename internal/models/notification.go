package models

import "time"

type NotificationType string

const (
	NotificationBookingRequest   NotificationType = "BOOKING_REQUEST"
	NotificationBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationBookingCancelled NotificationType = "BOOKING_CANCELLED"
	NotificationTripReminder     NotificationType = "TRIP_REMINDER"
	NotificationMessageReceived  NotificationType = "MESSAGE_RECEIVED"
	NotificationReviewReceived   NotificationType = "REVIEW_RECEIVED"
	NotificationTripCompleted    NotificationType = "TRIP_COMPLETED"
	NotificationPaymentReceived  NotificationType = "PAYMENT_RECEIVED"
	NotificationSystem           NotificationType = "SYSTEM"
)

type Notification struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	UserID          uint             `gorm:"not null;index" json:"userId"`
	Title           string           `gorm:"not null" json:"title"`
	Message         string           `gorm:"type:text;not null" json:"message"`
	Type            NotificationType `gorm:"column:notification_type;not null;index" json:"notificationType"`
	RelatedEntityID *uint            `gorm:"index" json:"relatedEntityId,omitempty"`
	IsRead          bool             `gorm:"not null;default:false" json:"isRead"`
	CreatedAt       time.Time        `gorm:"index" json:"createdAt"`
	ReadAt          *time.Time       `json:"readAt,omitempty"`
}

// TableName specifies the table name
func (Notification) TableName() string {
	return "notifications"
}
