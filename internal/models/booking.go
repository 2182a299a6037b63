package models

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusRejected  BookingStatus = "rejected"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Holds reports whether a booking in this status still reserves seats on its trip.
func (s BookingStatus) Holds() bool {
	return s == BookingStatusPending || s == BookingStatusAccepted
}

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusRejected || s == BookingStatusCancelled
}

type Booking struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	TripID      uint          `gorm:"not null;index" json:"tripId"`
	PassengerID uint          `gorm:"not null;index" json:"passengerId"`
	SeatsBooked int           `gorm:"not null;check:seats_booked >= 1" json:"seatsBooked"`
	Status      BookingStatus `gorm:"not null;default:'pending';index" json:"status"`
	Message     string        `gorm:"type:text" json:"message,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}
