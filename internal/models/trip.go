package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TripStatus string

const (
	TripStatusActive    TripStatus = "active"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

const (
	MinTripSeats = 1
	MaxTripSeats = 8
)

// Trip is a ride offered by a driver. AvailableSeats is only changed by the
// booking ledger.
type Trip struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	DriverID          uint            `gorm:"not null;index" json:"driverId"`
	DepartureLocation string          `gorm:"not null" json:"departureLocation"`
	DepartureCity     string          `gorm:"not null;index" json:"departureCity"`
	ArrivalLocation   string          `gorm:"not null" json:"arrivalLocation"`
	ArrivalCity       string          `gorm:"not null;index" json:"arrivalCity"`
	DepartureTime     time.Time       `gorm:"not null;index" json:"departureTime"`
	TotalSeats        int             `gorm:"not null;check:total_seats BETWEEN 1 AND 8" json:"totalSeats"`
	AvailableSeats    int             `gorm:"not null;check:available_seats >= 0" json:"availableSeats"`
	PricePerSeat      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"pricePerSeat"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`
	Status            TripStatus      `gorm:"not null;default:'active';index" json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// TableName specifies the table name
func (Trip) TableName() string {
	return "trips"
}

func (t *Trip) IsActive() bool {
	return t.Status == TripStatusActive
}
