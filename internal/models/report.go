package models

import "time"

type ReportType string

const (
	ReportTypeUser    ReportType = "USER"
	ReportTypeTrip    ReportType = "TRIP"
	ReportTypeMessage ReportType = "MESSAGE"
)

type ReportReason string

const (
	ReportReasonFraud                ReportReason = "FRAUD"
	ReportReasonHarassment           ReportReason = "HARASSMENT"
	ReportReasonSpam                 ReportReason = "SPAM"
	ReportReasonInappropriateContent ReportReason = "INAPPROPRIATE_CONTENT"
	ReportReasonNoShow               ReportReason = "NO_SHOW"
	ReportReasonCancellationAbuse    ReportReason = "CANCELLATION_ABUSE"
	ReportReasonSafetyConcern        ReportReason = "SAFETY_CONCERN"
	ReportReasonOther                ReportReason = "OTHER"
)

func (r ReportReason) Valid() bool {
	switch r {
	case ReportReasonFraud, ReportReasonHarassment, ReportReasonSpam, ReportReasonInappropriateContent,
		ReportReasonNoShow, ReportReasonCancellationAbuse, ReportReasonSafetyConcern, ReportReasonOther:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportStatusPending     ReportStatus = "PENDING"
	ReportStatusUnderReview ReportStatus = "UNDER_REVIEW"
	ReportStatusResolved    ReportStatus = "RESOLVED"
	ReportStatusDismissed   ReportStatus = "DISMISSED"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportStatusPending, ReportStatusUnderReview, ReportStatusResolved, ReportStatusDismissed:
		return true
	}
	return false
}

// Closed reports whether the report no longer needs moderation.
func (s ReportStatus) Closed() bool {
	return s == ReportStatusResolved || s == ReportStatusDismissed
}

type Report struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	ReporterID        uint         `gorm:"not null;index" json:"reporterId"`
	ReportType        ReportType   `gorm:"not null" json:"reportType"`
	ReportedUserID    *uint        `gorm:"index" json:"reportedUserId,omitempty"`
	ReportedTripID    *uint        `gorm:"index" json:"reportedTripId,omitempty"`
	ReportedMessageID *uint        `gorm:"index" json:"reportedMessageId,omitempty"`
	Reason            ReportReason `gorm:"column:report_reason;not null" json:"reportReason"`
	Description       string       `gorm:"type:text;not null" json:"description"`
	Status            ReportStatus `gorm:"column:report_status;not null;default:'PENDING';index" json:"reportStatus"`
	AdminNotes        string       `gorm:"type:text" json:"adminNotes,omitempty"`
	ReviewedByAdminID *uint        `json:"reviewedByAdminId,omitempty"`
	CreatedAt         time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
	ResolvedAt        *time.Time   `json:"resolvedAt,omitempty"`
}

// TableName specifies the table name
func (Report) TableName() string {
	return "reports"
}
