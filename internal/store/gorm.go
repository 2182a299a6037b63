package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore runs transactions against a relational database through gorm.
// Row locks are taken with SELECT ... FOR UPDATE.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func (t *gormTx) q(ctx context.Context) *gorm.DB {
	return t.db.WithContext(ctx)
}

func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %v", entity, id)
	}
	return err
}

func (t *gormTx) CreateUser(ctx context.Context, u *models.User) error {
	return t.q(ctx).Create(u).Error
}

func (t *gormTx) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := t.q(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

func (t *gormTx) GetUserForUpdate(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := t.q(ctx).Clauses(forUpdate).First(&u, id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

func (t *gormTx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := t.q(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return &u, nil
}

func (t *gormTx) SaveUser(ctx context.Context, u *models.User) error {
	return t.q(ctx).Save(u).Error
}

func (t *gormTx) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := t.q(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (t *gormTx) CreateTrip(ctx context.Context, trip *models.Trip) error {
	return t.q(ctx).Create(trip).Error
}

func (t *gormTx) GetTrip(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := t.q(ctx).First(&trip, id).Error; err != nil {
		return nil, notFound(err, "trip", id)
	}
	return &trip, nil
}

func (t *gormTx) GetTripForUpdate(ctx context.Context, id uint) (*models.Trip, error) {
	var trip models.Trip
	if err := t.q(ctx).Clauses(forUpdate).First(&trip, id).Error; err != nil {
		return nil, notFound(err, "trip", id)
	}
	return &trip, nil
}

func (t *gormTx) SaveTrip(ctx context.Context, trip *models.Trip) error {
	return t.q(ctx).Save(trip).Error
}

func (t *gormTx) ListTrips(ctx context.Context, f TripFilter) ([]models.Trip, error) {
	q := t.q(ctx).Model(&models.Trip{})
	if f.DriverID != 0 {
		q = q.Where("driver_id = ?", f.DriverID)
	}
	if f.DepartureCity != "" {
		q = q.Where("LOWER(departure_city) = ?", strings.ToLower(f.DepartureCity))
	}
	if f.ArrivalCity != "" {
		q = q.Where("LOWER(arrival_city) = ?", strings.ToLower(f.ArrivalCity))
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.DepartingAfter.IsZero() {
		q = q.Where("departure_time > ?", f.DepartingAfter)
	}
	if f.WithSeatsOnly {
		q = q.Where("available_seats > 0")
	}
	var trips []models.Trip
	err := q.Order("departure_time ASC").Find(&trips).Error
	return trips, err
}

type statusCount struct {
	Status string
	Count  int64
}

func (t *gormTx) countByStatus(ctx context.Context, model any, column string) ([]statusCount, error) {
	var rows []statusCount
	err := t.q(ctx).Model(model).
		Select(column + " AS status, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	return rows, err
}

func (t *gormTx) CountTripsByStatus(ctx context.Context) (map[models.TripStatus]int64, error) {
	rows, err := t.countByStatus(ctx, &models.Trip{}, "status")
	if err != nil {
		return nil, err
	}
	out := make(map[models.TripStatus]int64, len(rows))
	for _, r := range rows {
		out[models.TripStatus(r.Status)] = r.Count
	}
	return out, nil
}

func (t *gormTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	return t.q(ctx).Create(b).Error
}

func (t *gormTx) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var b models.Booking
	if err := t.q(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err, "booking", id)
	}
	return &b, nil
}

func (t *gormTx) SaveBooking(ctx context.Context, b *models.Booking) error {
	return t.q(ctx).Save(b).Error
}

func (t *gormTx) FindActiveBookingsByTrip(ctx context.Context, tripID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := t.q(ctx).
		Where("trip_id = ? AND status IN ?", tripID, []models.BookingStatus{models.BookingStatusPending, models.BookingStatusAccepted}).
		Order("id ASC").
		Find(&bookings).Error
	return bookings, err
}

func (t *gormTx) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	q := t.q(ctx).Model(&models.Booking{})
	if f.TripID != 0 {
		q = q.Where("trip_id = ?", f.TripID)
	}
	if f.PassengerID != 0 {
		q = q.Where("passenger_id = ?", f.PassengerID)
	}
	var bookings []models.Booking
	err := q.Order("created_at DESC").Order("id DESC").Find(&bookings).Error
	return bookings, err
}

func (t *gormTx) CountBookingsByStatus(ctx context.Context) (map[models.BookingStatus]int64, error) {
	rows, err := t.countByStatus(ctx, &models.Booking{}, "status")
	if err != nil {
		return nil, err
	}
	out := make(map[models.BookingStatus]int64, len(rows))
	for _, r := range rows {
		out[models.BookingStatus(r.Status)] = r.Count
	}
	return out, nil
}

func (t *gormTx) CreateReview(ctx context.Context, r *models.Review) error {
	err := t.q(ctx).Create(r).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("review already exists")
	}
	return err
}

func (t *gormTx) GetReview(ctx context.Context, id uint) (*models.Review, error) {
	var r models.Review
	if err := t.q(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err, "review", id)
	}
	return &r, nil
}

func (t *gormTx) DeleteReview(ctx context.Context, id uint) error {
	res := t.q(ctx).Delete(&models.Review{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("review %d", id)
	}
	return nil
}

func (t *gormTx) FindReviewsByReviewedUserAndType(ctx context.Context, userID uint, rt models.ReviewType) ([]models.Review, error) {
	var reviews []models.Review
	err := t.q(ctx).
		Where("reviewed_user_id = ? AND review_type = ?", userID, rt).
		Order("id ASC").
		Find(&reviews).Error
	return reviews, err
}

func (t *gormTx) ExistsReview(ctx context.Context, reviewerID, reviewedUserID, tripID uint) (bool, error) {
	var n int64
	err := t.q(ctx).Model(&models.Review{}).
		Where("reviewer_id = ? AND reviewed_user_id = ? AND trip_id = ?", reviewerID, reviewedUserID, tripID).
		Count(&n).Error
	return n > 0, err
}

func (t *gormTx) ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	q := t.q(ctx).Model(&models.Review{})
	if f.ReviewerID != 0 {
		q = q.Where("reviewer_id = ?", f.ReviewerID)
	}
	if f.ReviewedUserID != 0 {
		q = q.Where("reviewed_user_id = ?", f.ReviewedUserID)
	}
	if f.TripID != 0 {
		q = q.Where("trip_id = ?", f.TripID)
	}
	var reviews []models.Review
	err := q.Order("created_at DESC").Order("id DESC").Find(&reviews).Error
	return reviews, err
}

func (t *gormTx) CreateMessage(ctx context.Context, m *models.Message) error {
	return t.q(ctx).Create(m).Error
}

func (t *gormTx) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var m models.Message
	if err := t.q(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err, "message", id)
	}
	return &m, nil
}

func (t *gormTx) SaveMessage(ctx context.Context, m *models.Message) error {
	return t.q(ctx).Save(m).Error
}

func (t *gormTx) DeleteMessage(ctx context.Context, id uint) error {
	return t.q(ctx).Delete(&models.Message{}, id).Error
}

func (t *gormTx) ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	q := t.q(ctx).Model(&models.Message{})
	if f.SenderID != 0 {
		q = q.Where("sender_id = ?", f.SenderID)
	}
	if f.ReceiverID != 0 {
		q = q.Where("receiver_id = ?", f.ReceiverID)
	}
	switch {
	case f.ParticipantID != 0 && f.PeerID != 0:
		q = q.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			f.ParticipantID, f.PeerID, f.PeerID, f.ParticipantID)
	case f.ParticipantID != 0:
		q = q.Where("sender_id = ? OR receiver_id = ?", f.ParticipantID, f.ParticipantID)
	}
	if f.TripID != 0 {
		q = q.Where("trip_id = ?", f.TripID)
	}
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	order := "created_at ASC, id ASC"
	if f.NewestFirst {
		order = "created_at DESC, id DESC"
	}
	var messages []models.Message
	err := q.Order(order).Find(&messages).Error
	return messages, err
}

func (t *gormTx) CountUnreadMessages(ctx context.Context, receiverID uint) (int64, error) {
	var n int64
	err := t.q(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&n).Error
	return n, err
}

func (t *gormTx) CreateNotification(ctx context.Context, n *models.Notification) error {
	return t.q(ctx).Create(n).Error
}

func (t *gormTx) GetNotification(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := t.q(ctx).First(&n, id).Error; err != nil {
		return nil, notFound(err, "notification", id)
	}
	return &n, nil
}

func (t *gormTx) SaveNotification(ctx context.Context, n *models.Notification) error {
	return t.q(ctx).Save(n).Error
}

func (t *gormTx) DeleteNotification(ctx context.Context, id uint) error {
	return t.q(ctx).Delete(&models.Notification{}, id).Error
}

func (t *gormTx) ListNotifications(ctx context.Context, f NotificationFilter) ([]models.Notification, error) {
	q := t.q(ctx).Model(&models.Notification{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.RelatedEntityID != 0 {
		q = q.Where("related_entity_id = ?", f.RelatedEntityID)
	}
	if f.Type != "" {
		q = q.Where("notification_type = ?", f.Type)
	}
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var notifications []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").Find(&notifications).Error
	return notifications, err
}

func (t *gormTx) CountUnreadNotifications(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := t.q(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (t *gormTx) MarkAllNotificationsRead(ctx context.Context, userID uint, at time.Time) (int64, error) {
	res := t.q(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (t *gormTx) DeleteReadNotificationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := t.q(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (t *gormTx) GetNotificationPreference(ctx context.Context, userID uint) (*models.NotificationPreference, error) {
	var p models.NotificationPreference
	if err := t.q(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, notFound(err, "notification preference for user", userID)
	}
	return &p, nil
}

func (t *gormTx) SaveNotificationPreference(ctx context.Context, p *models.NotificationPreference) error {
	return t.q(ctx).Save(p).Error
}

func (t *gormTx) CreateReport(ctx context.Context, r *models.Report) error {
	return t.q(ctx).Create(r).Error
}

func (t *gormTx) GetReport(ctx context.Context, id uint) (*models.Report, error) {
	var r models.Report
	if err := t.q(ctx).First(&r, id).Error; err != nil {
		return nil, notFound(err, "report", id)
	}
	return &r, nil
}

func (t *gormTx) SaveReport(ctx context.Context, r *models.Report) error {
	return t.q(ctx).Save(r).Error
}

func (t *gormTx) DeleteReport(ctx context.Context, id uint) error {
	return t.q(ctx).Delete(&models.Report{}, id).Error
}

func (t *gormTx) ListReports(ctx context.Context, f ReportFilter) ([]models.Report, error) {
	q := t.q(ctx).Model(&models.Report{})
	if f.ReporterID != 0 {
		q = q.Where("reporter_id = ?", f.ReporterID)
	}
	if f.ReportedUserID != 0 {
		q = q.Where("reported_user_id = ?", f.ReportedUserID)
	}
	if f.ReviewedBy != 0 {
		q = q.Where("reviewed_by_admin_id = ?", f.ReviewedBy)
	}
	if f.Type != "" {
		q = q.Where("report_type = ?", f.Type)
	}
	if f.Reason != "" {
		q = q.Where("report_reason = ?", f.Reason)
	}
	if f.Status != "" {
		q = q.Where("report_status = ?", f.Status)
	}
	if f.UnresolvedOnly {
		q = q.Where("report_status IN ?", []models.ReportStatus{models.ReportStatusPending, models.ReportStatusUnderReview})
	}
	var reports []models.Report
	err := q.Order("created_at DESC").Order("id DESC").Find(&reports).Error
	return reports, err
}

func (t *gormTx) CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int64, error) {
	rows, err := t.countByStatus(ctx, &models.Report{}, "report_status")
	if err != nil {
		return nil, err
	}
	out := make(map[models.ReportStatus]int64, len(rows))
	for _, r := range rows {
		out[models.ReportStatus(r.Status)] = r.Count
	}
	return out, nil
}
