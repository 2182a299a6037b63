// Package moderation handles user reports and the admin dashboard.
package moderation

import (
	"context"
	"strings"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/sirupsen/logrus"
)

type Service struct {
	store  store.Store
	events events.Publisher
	log    *logrus.Logger
	now    func() time.Time
}

func NewService(s store.Store, pub events.Publisher, log *logrus.Logger) *Service {
	return &Service{store: s, events: pub, log: log, now: time.Now}
}

type CreateReportInput struct {
	Type              models.ReportType
	ReportedUserID    *uint
	ReportedTripID    *uint
	ReportedMessageID *uint
	Reason            models.ReportReason
	Description       string
}

// target checks that the id matching the report type is set and exists, and
// returns a report carrying only that id.
func target(ctx context.Context, tx store.Tx, in CreateReportInput) (*models.Report, error) {
	r := &models.Report{ReportType: in.Type}
	switch in.Type {
	case models.ReportTypeUser:
		if in.ReportedUserID == nil {
			return nil, apperr.InvalidRequest("reported user id is required for user reports")
		}
		if _, err := tx.GetUser(ctx, *in.ReportedUserID); err != nil {
			return nil, err
		}
		r.ReportedUserID = in.ReportedUserID
	case models.ReportTypeTrip:
		if in.ReportedTripID == nil {
			return nil, apperr.InvalidRequest("reported trip id is required for trip reports")
		}
		if _, err := tx.GetTrip(ctx, *in.ReportedTripID); err != nil {
			return nil, err
		}
		r.ReportedTripID = in.ReportedTripID
	case models.ReportTypeMessage:
		if in.ReportedMessageID == nil {
			return nil, apperr.InvalidRequest("reported message id is required for message reports")
		}
		if _, err := tx.GetMessage(ctx, *in.ReportedMessageID); err != nil {
			return nil, err
		}
		r.ReportedMessageID = in.ReportedMessageID
	default:
		return nil, apperr.InvalidRequest("unknown report type %q", in.Type)
	}
	return r, nil
}

func (s *Service) CreateReport(ctx context.Context, reporterID uint, in CreateReportInput) (*models.Report, error) {
	var r *models.Report
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(ctx, reporterID); err != nil {
			return err
		}
		var err error
		if r, err = target(ctx, tx, in); err != nil {
			return err
		}
		if in.Type == models.ReportTypeUser && *in.ReportedUserID == reporterID {
			return apperr.Forbidden("cannot report yourself")
		}
		if !in.Reason.Valid() {
			return apperr.InvalidRequest("unknown report reason %q", in.Reason)
		}
		description := strings.TrimSpace(in.Description)
		if description == "" {
			return apperr.InvalidRequest("report description cannot be empty")
		}

		r.ReporterID = reporterID
		r.Reason = in.Reason
		r.Description = description
		r.Status = models.ReportStatusPending
		return tx.CreateReport(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"report_id":   r.ID,
		"reporter_id": reporterID,
		"type":        r.ReportType,
		"reason":      r.Reason,
	}).Info("report filed")
	s.events.Publish(ctx, events.Event{Type: events.ReportCreated, Data: r})
	return r, nil
}

func (s *Service) GetReport(ctx context.Context, id uint) (*models.Report, error) {
	var r *models.Report
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		r, err = tx.GetReport(ctx, id)
		return err
	})
	return r, err
}

// ListReports returns reports matching f, newest first.
func (s *Service) ListReports(ctx context.Context, f store.ReportFilter) ([]models.Report, error) {
	var out []models.Report
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListReports(ctx, f)
		return err
	})
	return out, err
}

func (s *Service) ByReporter(ctx context.Context, reporterID uint) ([]models.Report, error) {
	return s.ListReports(ctx, store.ReportFilter{ReporterID: reporterID})
}

func (s *Service) AboutUser(ctx context.Context, userID uint) ([]models.Report, error) {
	return s.ListReports(ctx, store.ReportFilter{ReportedUserID: userID})
}

func (s *Service) ByStatus(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	return s.ListReports(ctx, store.ReportFilter{Status: status})
}

func (s *Service) Pending(ctx context.Context) ([]models.Report, error) {
	return s.ByStatus(ctx, models.ReportStatusPending)
}

func (s *Service) Unresolved(ctx context.Context) ([]models.Report, error) {
	return s.ListReports(ctx, store.ReportFilter{UnresolvedOnly: true})
}

func (s *Service) CountByStatus(ctx context.Context) (map[models.ReportStatus]int64, error) {
	var out map[models.ReportStatus]int64
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.CountReportsByStatus(ctx)
		return err
	})
	return out, err
}

type UpdateReportInput struct {
	Status     models.ReportStatus
	AdminNotes string
}

// UpdateStatus records an admin decision. Closing statuses stamp ResolvedAt.
func (s *Service) UpdateStatus(ctx context.Context, reportID, adminID uint, in UpdateReportInput) (*models.Report, error) {
	if !in.Status.Valid() {
		return nil, apperr.InvalidRequest("unknown report status %q", in.Status)
	}
	var r *models.Report
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if r, err = tx.GetReport(ctx, reportID); err != nil {
			return err
		}
		admin, err := tx.GetUser(ctx, adminID)
		if err != nil {
			return err
		}
		if !admin.IsAdmin() {
			return apperr.Forbidden("user %d is not an admin", adminID)
		}
		r.Status = in.Status
		r.AdminNotes = strings.TrimSpace(in.AdminNotes)
		r.ReviewedByAdminID = &admin.ID
		if in.Status.Closed() {
			at := s.now()
			r.ResolvedAt = &at
		} else {
			r.ResolvedAt = nil
		}
		return tx.SaveReport(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"report_id": r.ID,
		"admin_id":  adminID,
		"status":    r.Status,
	}).Info("report status updated")
	s.events.Publish(ctx, events.Event{
		Type:       events.ReportUpdated,
		Recipients: []uint{r.ReporterID},
		Data:       r,
	})
	return r, nil
}

// DeleteReport lets a reporter withdraw a report nobody has looked at yet.
func (s *Service) DeleteReport(ctx context.Context, reportID, reporterID uint) error {
	return s.store.WithTx(ctx, func(tx store.Tx) error {
		r, err := tx.GetReport(ctx, reportID)
		if err != nil {
			return err
		}
		if r.ReporterID != reporterID {
			return apperr.Forbidden("report %d was filed by another user", reportID)
		}
		if r.Status != models.ReportStatusPending {
			return apperr.InvalidState("report %d is %s, only pending reports can be deleted", reportID, r.Status)
		}
		return tx.DeleteReport(ctx, reportID)
	})
}
