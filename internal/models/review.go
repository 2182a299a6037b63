package models

import "time"

type ReviewType string

const (
	ReviewTypeDriver    ReviewType = "DRIVER"
	ReviewTypePassenger ReviewType = "PASSENGER"
)

func (t ReviewType) Valid() bool {
	return t == ReviewTypeDriver || t == ReviewTypePassenger
}

const (
	MinRating = 1
	MaxRating = 5
)

// Review is created once and never updated; it can only be deleted by its author.
type Review struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	ReviewerID     uint       `gorm:"not null;index;uniqueIndex:idx_review_triple" json:"reviewerId"`
	ReviewedUserID uint       `gorm:"not null;index:idx_reviewed_type;uniqueIndex:idx_review_triple" json:"reviewedUserId"`
	TripID         *uint      `gorm:"index;uniqueIndex:idx_review_triple" json:"tripId,omitempty"`
	Rating         int        `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment        string     `gorm:"type:text" json:"comment,omitempty"`
	ReviewType     ReviewType `gorm:"not null;index:idx_reviewed_type" json:"reviewType"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
