package moderation

import (
	"context"

	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
)

type Stats struct {
	Users    int64                          `json:"users"`
	Trips    map[models.TripStatus]int64    `json:"trips"`
	Bookings map[models.BookingStatus]int64 `json:"bookings"`
	Reports  map[models.ReportStatus]int64  `json:"reports"`
}

// Stats reads every dashboard counter from one snapshot.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if st.Users, err = tx.CountUsers(ctx); err != nil {
			return err
		}
		if st.Trips, err = tx.CountTripsByStatus(ctx); err != nil {
			return err
		}
		if st.Bookings, err = tx.CountBookingsByStatus(ctx); err != nil {
			return err
		}
		st.Reports, err = tx.CountReportsByStatus(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}
