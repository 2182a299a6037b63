package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/models"
)

// MemoryStore keeps every record in process. Transactions are serialized by a
// single mutex and work on a private copy of the data that replaces the live
// copy only when the callback succeeds.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

type memData struct {
	users         map[uint]models.User
	trips         map[uint]models.Trip
	bookings      map[uint]models.Booking
	reviews       map[uint]models.Review
	messages      map[uint]models.Message
	notifications map[uint]models.Notification
	preferences   map[uint]models.NotificationPreference // keyed by user id
	reports       map[uint]models.Report
	seq           uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			users:         map[uint]models.User{},
			trips:         map[uint]models.Trip{},
			bookings:      map[uint]models.Booking{},
			reviews:       map[uint]models.Review{},
			messages:      map[uint]models.Message{},
			notifications: map[uint]models.Notification{},
			preferences:   map[uint]models.NotificationPreference{},
			reports:       map[uint]models.Report{},
		},
		now: time.Now,
	}
}

// SetClock replaces the time source used for CreatedAt/UpdatedAt stamps.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(&memTx{d: work, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func cloneMap[V any](m map[uint]V) map[uint]V {
	out := make(map[uint]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memData) clone() *memData {
	return &memData{
		users:         cloneMap(d.users),
		trips:         cloneMap(d.trips),
		bookings:      cloneMap(d.bookings),
		reviews:       cloneMap(d.reviews),
		messages:      cloneMap(d.messages),
		notifications: cloneMap(d.notifications),
		preferences:   cloneMap(d.preferences),
		reports:       cloneMap(d.reports),
		seq:           d.seq,
	}
}

type memTx struct {
	d   *memData
	now func() time.Time
}

func (t *memTx) nextID() uint {
	t.d.seq++
	return t.d.seq
}

// collect returns the values of m that satisfy keep, ordered by id.
func collect[V any](m map[uint]V, keep func(V) bool) []V {
	ids := make([]uint, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]V, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func reverse[V any](s []V) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// Users

func (t *memTx) CreateUser(_ context.Context, u *models.User) error {
	for _, existing := range t.d.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperr.Conflict("email %s already registered", u.Email)
		}
	}
	now := t.now()
	u.ID = t.nextID()
	u.CreatedAt, u.UpdatedAt = now, now
	t.d.users[u.ID] = *u
	return nil
}

func (t *memTx) GetUser(_ context.Context, id uint) (*models.User, error) {
	u, ok := t.d.users[id]
	if !ok {
		return nil, apperr.NotFound("user %d", id)
	}
	return &u, nil
}

func (t *memTx) GetUserForUpdate(ctx context.Context, id uint) (*models.User, error) {
	return t.GetUser(ctx, id)
}

func (t *memTx) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range t.d.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user %s", email)
}

func (t *memTx) SaveUser(_ context.Context, u *models.User) error {
	if _, ok := t.d.users[u.ID]; !ok {
		return apperr.NotFound("user %d", u.ID)
	}
	u.UpdatedAt = t.now()
	t.d.users[u.ID] = *u
	return nil
}

func (t *memTx) CountUsers(context.Context) (int64, error) {
	return int64(len(t.d.users)), nil
}

// Trips

func (t *memTx) CreateTrip(_ context.Context, trip *models.Trip) error {
	now := t.now()
	trip.ID = t.nextID()
	trip.CreatedAt, trip.UpdatedAt = now, now
	t.d.trips[trip.ID] = *trip
	return nil
}

func (t *memTx) GetTrip(_ context.Context, id uint) (*models.Trip, error) {
	trip, ok := t.d.trips[id]
	if !ok {
		return nil, apperr.NotFound("trip %d", id)
	}
	return &trip, nil
}

func (t *memTx) GetTripForUpdate(ctx context.Context, id uint) (*models.Trip, error) {
	return t.GetTrip(ctx, id)
}

func (t *memTx) SaveTrip(_ context.Context, trip *models.Trip) error {
	if _, ok := t.d.trips[trip.ID]; !ok {
		return apperr.NotFound("trip %d", trip.ID)
	}
	trip.UpdatedAt = t.now()
	t.d.trips[trip.ID] = *trip
	return nil
}

func (t *memTx) ListTrips(_ context.Context, f TripFilter) ([]models.Trip, error) {
	trips := collect(t.d.trips, func(trip models.Trip) bool {
		switch {
		case f.DriverID != 0 && trip.DriverID != f.DriverID:
			return false
		case f.DepartureCity != "" && !strings.EqualFold(trip.DepartureCity, f.DepartureCity):
			return false
		case f.ArrivalCity != "" && !strings.EqualFold(trip.ArrivalCity, f.ArrivalCity):
			return false
		case f.Status != "" && trip.Status != f.Status:
			return false
		case !f.DepartingAfter.IsZero() && !trip.DepartureTime.After(f.DepartingAfter):
			return false
		case f.WithSeatsOnly && trip.AvailableSeats <= 0:
			return false
		}
		return true
	})
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].DepartureTime.Before(trips[j].DepartureTime)
	})
	return trips, nil
}

func (t *memTx) CountTripsByStatus(context.Context) (map[models.TripStatus]int64, error) {
	out := map[models.TripStatus]int64{}
	for _, trip := range t.d.trips {
		out[trip.Status]++
	}
	return out, nil
}

// Bookings

func (t *memTx) CreateBooking(_ context.Context, b *models.Booking) error {
	now := t.now()
	b.ID = t.nextID()
	b.CreatedAt, b.UpdatedAt = now, now
	t.d.bookings[b.ID] = *b
	return nil
}

func (t *memTx) GetBooking(_ context.Context, id uint) (*models.Booking, error) {
	b, ok := t.d.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking %d", id)
	}
	return &b, nil
}

func (t *memTx) SaveBooking(_ context.Context, b *models.Booking) error {
	if _, ok := t.d.bookings[b.ID]; !ok {
		return apperr.NotFound("booking %d", b.ID)
	}
	b.UpdatedAt = t.now()
	t.d.bookings[b.ID] = *b
	return nil
}

func (t *memTx) FindActiveBookingsByTrip(_ context.Context, tripID uint) ([]models.Booking, error) {
	return collect(t.d.bookings, func(b models.Booking) bool {
		return b.TripID == tripID && b.Status.Holds()
	}), nil
}

func (t *memTx) ListBookings(_ context.Context, f BookingFilter) ([]models.Booking, error) {
	bookings := collect(t.d.bookings, func(b models.Booking) bool {
		return (f.TripID == 0 || b.TripID == f.TripID) &&
			(f.PassengerID == 0 || b.PassengerID == f.PassengerID)
	})
	reverse(bookings)
	return bookings, nil
}

func (t *memTx) CountBookingsByStatus(context.Context) (map[models.BookingStatus]int64, error) {
	out := map[models.BookingStatus]int64{}
	for _, b := range t.d.bookings {
		out[b.Status]++
	}
	return out, nil
}

// Reviews

func (t *memTx) CreateReview(ctx context.Context, r *models.Review) error {
	if r.TripID != nil {
		exists, _ := t.ExistsReview(ctx, r.ReviewerID, r.ReviewedUserID, *r.TripID)
		if exists {
			return apperr.Conflict("review already exists")
		}
	}
	r.ID = t.nextID()
	r.CreatedAt = t.now()
	t.d.reviews[r.ID] = *r
	return nil
}

func (t *memTx) GetReview(_ context.Context, id uint) (*models.Review, error) {
	r, ok := t.d.reviews[id]
	if !ok {
		return nil, apperr.NotFound("review %d", id)
	}
	return &r, nil
}

func (t *memTx) DeleteReview(_ context.Context, id uint) error {
	if _, ok := t.d.reviews[id]; !ok {
		return apperr.NotFound("review %d", id)
	}
	delete(t.d.reviews, id)
	return nil
}

func (t *memTx) FindReviewsByReviewedUserAndType(_ context.Context, userID uint, rt models.ReviewType) ([]models.Review, error) {
	return collect(t.d.reviews, func(r models.Review) bool {
		return r.ReviewedUserID == userID && r.ReviewType == rt
	}), nil
}

func (t *memTx) ExistsReview(_ context.Context, reviewerID, reviewedUserID, tripID uint) (bool, error) {
	for _, r := range t.d.reviews {
		if r.ReviewerID == reviewerID && r.ReviewedUserID == reviewedUserID &&
			r.TripID != nil && *r.TripID == tripID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) ListReviews(_ context.Context, f ReviewFilter) ([]models.Review, error) {
	reviews := collect(t.d.reviews, func(r models.Review) bool {
		return (f.ReviewerID == 0 || r.ReviewerID == f.ReviewerID) &&
			(f.ReviewedUserID == 0 || r.ReviewedUserID == f.ReviewedUserID) &&
			(f.TripID == 0 || (r.TripID != nil && *r.TripID == f.TripID))
	})
	reverse(reviews)
	return reviews, nil
}

// Messages

func (t *memTx) CreateMessage(_ context.Context, m *models.Message) error {
	m.ID = t.nextID()
	m.CreatedAt = t.now()
	t.d.messages[m.ID] = *m
	return nil
}

func (t *memTx) GetMessage(_ context.Context, id uint) (*models.Message, error) {
	m, ok := t.d.messages[id]
	if !ok {
		return nil, apperr.NotFound("message %d", id)
	}
	return &m, nil
}

func (t *memTx) SaveMessage(_ context.Context, m *models.Message) error {
	if _, ok := t.d.messages[m.ID]; !ok {
		return apperr.NotFound("message %d", m.ID)
	}
	t.d.messages[m.ID] = *m
	return nil
}

func (t *memTx) DeleteMessage(_ context.Context, id uint) error {
	delete(t.d.messages, id)
	return nil
}

func (t *memTx) ListMessages(_ context.Context, f MessageFilter) ([]models.Message, error) {
	messages := collect(t.d.messages, func(m models.Message) bool {
		switch {
		case f.SenderID != 0 && m.SenderID != f.SenderID:
			return false
		case f.ReceiverID != 0 && m.ReceiverID != f.ReceiverID:
			return false
		case f.ParticipantID != 0 && f.PeerID != 0:
			if !(m.SenderID == f.ParticipantID && m.ReceiverID == f.PeerID) &&
				!(m.SenderID == f.PeerID && m.ReceiverID == f.ParticipantID) {
				return false
			}
		case f.ParticipantID != 0 && m.SenderID != f.ParticipantID && m.ReceiverID != f.ParticipantID:
			return false
		}
		if f.TripID != 0 && (m.TripID == nil || *m.TripID != f.TripID) {
			return false
		}
		return !f.UnreadOnly || !m.IsRead
	})
	if f.NewestFirst {
		reverse(messages)
	}
	return messages, nil
}

func (t *memTx) CountUnreadMessages(_ context.Context, receiverID uint) (int64, error) {
	var n int64
	for _, m := range t.d.messages {
		if m.ReceiverID == receiverID && !m.IsRead {
			n++
		}
	}
	return n, nil
}

// Notifications

func (t *memTx) CreateNotification(_ context.Context, n *models.Notification) error {
	n.ID = t.nextID()
	n.CreatedAt = t.now()
	t.d.notifications[n.ID] = *n
	return nil
}

func (t *memTx) GetNotification(_ context.Context, id uint) (*models.Notification, error) {
	n, ok := t.d.notifications[id]
	if !ok {
		return nil, apperr.NotFound("notification %d", id)
	}
	return &n, nil
}

func (t *memTx) SaveNotification(_ context.Context, n *models.Notification) error {
	if _, ok := t.d.notifications[n.ID]; !ok {
		return apperr.NotFound("notification %d", n.ID)
	}
	t.d.notifications[n.ID] = *n
	return nil
}

func (t *memTx) DeleteNotification(_ context.Context, id uint) error {
	delete(t.d.notifications, id)
	return nil
}

func (t *memTx) ListNotifications(_ context.Context, f NotificationFilter) ([]models.Notification, error) {
	notifications := collect(t.d.notifications, func(n models.Notification) bool {
		switch {
		case f.UserID != 0 && n.UserID != f.UserID:
			return false
		case f.RelatedEntityID != 0 && (n.RelatedEntityID == nil || *n.RelatedEntityID != f.RelatedEntityID):
			return false
		case f.Type != "" && n.Type != f.Type:
			return false
		}
		return !f.UnreadOnly || !n.IsRead
	})
	reverse(notifications)
	if f.Limit > 0 && len(notifications) > f.Limit {
		notifications = notifications[:f.Limit]
	}
	return notifications, nil
}

func (t *memTx) CountUnreadNotifications(_ context.Context, userID uint) (int64, error) {
	var n int64
	for _, notification := range t.d.notifications {
		if notification.UserID == userID && !notification.IsRead {
			n++
		}
	}
	return n, nil
}

func (t *memTx) MarkAllNotificationsRead(_ context.Context, userID uint, at time.Time) (int64, error) {
	var n int64
	for id, notification := range t.d.notifications {
		if notification.UserID == userID && !notification.IsRead {
			readAt := at
			notification.IsRead = true
			notification.ReadAt = &readAt
			t.d.notifications[id] = notification
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteReadNotificationsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, notification := range t.d.notifications {
		if notification.IsRead && notification.CreatedAt.Before(cutoff) {
			delete(t.d.notifications, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) GetNotificationPreference(_ context.Context, userID uint) (*models.NotificationPreference, error) {
	p, ok := t.d.preferences[userID]
	if !ok {
		return nil, apperr.NotFound("notification preference for user %d", userID)
	}
	return &p, nil
}

func (t *memTx) SaveNotificationPreference(_ context.Context, p *models.NotificationPreference) error {
	now := t.now()
	if existing, ok := t.d.preferences[p.UserID]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = t.nextID()
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	t.d.preferences[p.UserID] = *p
	return nil
}

// Reports

func (t *memTx) CreateReport(_ context.Context, r *models.Report) error {
	now := t.now()
	r.ID = t.nextID()
	r.CreatedAt, r.UpdatedAt = now, now
	t.d.reports[r.ID] = *r
	return nil
}

func (t *memTx) GetReport(_ context.Context, id uint) (*models.Report, error) {
	r, ok := t.d.reports[id]
	if !ok {
		return nil, apperr.NotFound("report %d", id)
	}
	return &r, nil
}

func (t *memTx) SaveReport(_ context.Context, r *models.Report) error {
	if _, ok := t.d.reports[r.ID]; !ok {
		return apperr.NotFound("report %d", r.ID)
	}
	r.UpdatedAt = t.now()
	t.d.reports[r.ID] = *r
	return nil
}

func (t *memTx) DeleteReport(_ context.Context, id uint) error {
	delete(t.d.reports, id)
	return nil
}

func (t *memTx) ListReports(_ context.Context, f ReportFilter) ([]models.Report, error) {
	reports := collect(t.d.reports, func(r models.Report) bool {
		switch {
		case f.ReporterID != 0 && r.ReporterID != f.ReporterID:
			return false
		case f.ReportedUserID != 0 && (r.ReportedUserID == nil || *r.ReportedUserID != f.ReportedUserID):
			return false
		case f.ReviewedBy != 0 && (r.ReviewedByAdminID == nil || *r.ReviewedByAdminID != f.ReviewedBy):
			return false
		case f.Type != "" && r.ReportType != f.Type:
			return false
		case f.Reason != "" && r.Reason != f.Reason:
			return false
		case f.Status != "" && r.Status != f.Status:
			return false
		case f.UnresolvedOnly && r.Status.Closed():
			return false
		}
		return true
	})
	reverse(reports)
	return reports, nil
}

func (t *memTx) CountReportsByStatus(context.Context) (map[models.ReportStatus]int64, error) {
	out := map[models.ReportStatus]int64{}
	for _, r := range t.d.reports {
		out[r.Status]++
	}
	return out, nil
}
