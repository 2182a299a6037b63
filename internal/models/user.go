package models

import (
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	gorm.Model               // This embeds ID, CreatedAt, UpdatedAt, and DeletedAt
	Email        string      `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Password     string      `gorm:"-" json:"-"` // Temporary field for password handling
	PasswordHash string      `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string      `gorm:"column:first_name;not null" json:"firstName"`
	LastName     string      `gorm:"column:last_name;not null" json:"lastName"`
	PhoneNumber  string      `gorm:"column:phone_number" json:"phoneNumber"`
	Bio          string      `gorm:"column:bio;type:text" json:"bio"`
	PhotoURL     string      `gorm:"column:photo_url" json:"photoUrl"`
	FCMToken     string      `gorm:"column:fcm_token" json:"-"`
	Role         UserRole    `gorm:"column:role;not null;default:'user'" json:"role"`

	// Derived from the reviews table, only written by the rating aggregator.
	AverageRatingDriver    decimal.NullDecimal `gorm:"column:average_rating_driver;type:numeric(3,2)" json:"averageRatingDriver"`
	TotalTripsDriver       int                 `gorm:"column:total_trips_driver;not null;default:0" json:"totalTripsDriver"`
	AverageRatingPassenger decimal.NullDecimal `gorm:"column:average_rating_passenger;type:numeric(3,2)" json:"averageRatingPassenger"`
	TotalTripsPassenger    int                 `gorm:"column:total_trips_passenger;not null;default:0" json:"totalTripsPassenger"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	u.Password = ""
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// Rating returns the aggregate average and count for one review type.
func (u *User) Rating(t ReviewType) (decimal.NullDecimal, int) {
	if t == ReviewTypeDriver {
		return u.AverageRatingDriver, u.TotalTripsDriver
	}
	return u.AverageRatingPassenger, u.TotalTripsPassenger
}

// SetRating overwrites the aggregate fields for one review type.
func (u *User) SetRating(t ReviewType, avg decimal.NullDecimal, total int) {
	if t == ReviewTypeDriver {
		u.AverageRatingDriver = avg
		u.TotalTripsDriver = total
		return
	}
	u.AverageRatingPassenger = avg
	u.TotalTripsPassenger = total
}
