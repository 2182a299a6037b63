// Package rating keeps the per-user rating aggregates in step with the
// reviews table.
package rating

import (
	"context"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/inbox"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// ResetOnEmpty clears the average and zeroes the count when the last
	// review of a type is deleted. When false the previous values stay.
	ResetOnEmpty bool
}

type Aggregator struct {
	store  store.Store
	events events.Publisher
	log    *logrus.Logger
	opts   Options
}

func NewAggregator(s store.Store, pub events.Publisher, log *logrus.Logger, opts Options) *Aggregator {
	return &Aggregator{store: s, events: pub, log: log, opts: opts}
}

type CreateReviewInput struct {
	ReviewedUserID uint
	TripID         *uint
	Rating         int
	Comment        string
	ReviewType     models.ReviewType
}

func (a *Aggregator) CreateReview(ctx context.Context, reviewerID uint, in CreateReviewInput) (*models.Review, error) {
	var (
		review *models.Review
		notif  *models.Notification
	)
	err := a.store.WithTx(ctx, func(tx store.Tx) error {
		reviewer, err := tx.GetUser(ctx, reviewerID)
		if err != nil {
			return err
		}
		// Lock the reviewed user first so concurrent recomputes for the same
		// user run one after the other.
		if _, err := tx.GetUserForUpdate(ctx, in.ReviewedUserID); err != nil {
			return err
		}
		if in.TripID != nil {
			if _, err := tx.GetTrip(ctx, *in.TripID); err != nil {
				return err
			}
		}
		if in.Rating < models.MinRating || in.Rating > models.MaxRating {
			return apperr.InvalidRequest("rating must be between %d and %d, got %d", models.MinRating, models.MaxRating, in.Rating)
		}
		if !in.ReviewType.Valid() {
			return apperr.InvalidRequest("unknown review type %q", in.ReviewType)
		}
		if reviewerID == in.ReviewedUserID {
			return apperr.Forbidden("cannot review yourself")
		}
		if in.TripID != nil {
			exists, err := tx.ExistsReview(ctx, reviewerID, in.ReviewedUserID, *in.TripID)
			if err != nil {
				return err
			}
			if exists {
				return apperr.Conflict("user %d already reviewed user %d for trip %d", reviewerID, in.ReviewedUserID, *in.TripID)
			}
		}

		review = &models.Review{
			ReviewerID:     reviewerID,
			ReviewedUserID: in.ReviewedUserID,
			TripID:         in.TripID,
			Rating:         in.Rating,
			Comment:        in.Comment,
			ReviewType:     in.ReviewType,
		}
		if err := tx.CreateReview(ctx, review); err != nil {
			return err
		}
		if err := a.recompute(ctx, tx, in.ReviewedUserID, in.ReviewType); err != nil {
			return err
		}
		notif = inbox.ReviewReceived(review, reviewer)
		return inbox.Record(ctx, tx, notif)
	})
	if err != nil {
		return nil, err
	}

	a.log.WithFields(logrus.Fields{
		"review_id":   review.ID,
		"reviewer_id": reviewerID,
		"user_id":     review.ReviewedUserID,
		"rating":      review.Rating,
		"type":        review.ReviewType,
	}).Info("review created")
	a.events.Publish(ctx, events.Event{
		Type:         events.ReviewCreated,
		Recipients:   []uint{review.ReviewedUserID},
		Data:         review,
		Notification: notif,
	})
	return review, nil
}

// DeleteReview removes a review on behalf of its author and recomputes the
// reviewed user's aggregate for that type.
func (a *Aggregator) DeleteReview(ctx context.Context, reviewID, requesterID uint) error {
	var review *models.Review
	err := a.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if review, err = tx.GetReview(ctx, reviewID); err != nil {
			return err
		}
		if review.ReviewerID != requesterID {
			return apperr.Forbidden("only the author can delete review %d", reviewID)
		}
		if _, err := tx.GetUserForUpdate(ctx, review.ReviewedUserID); err != nil {
			return err
		}
		if err := tx.DeleteReview(ctx, reviewID); err != nil {
			return err
		}
		return a.recompute(ctx, tx, review.ReviewedUserID, review.ReviewType)
	})
	if err != nil {
		return err
	}

	a.log.WithFields(logrus.Fields{
		"review_id": reviewID,
		"user_id":   review.ReviewedUserID,
		"type":      review.ReviewType,
	}).Info("review deleted")
	a.events.Publish(ctx, events.Event{Type: events.ReviewDeleted, Data: review})
	return nil
}

func (a *Aggregator) recompute(ctx context.Context, tx store.Tx, userID uint, t models.ReviewType) error {
	reviews, err := tx.FindReviewsByReviewedUserAndType(ctx, userID, t)
	if err != nil {
		return err
	}
	user, err := tx.GetUserForUpdate(ctx, userID)
	if err != nil {
		return err
	}

	ratings := make([]int, len(reviews))
	for i, r := range reviews {
		ratings[i] = r.Rating
	}
	avg, ok := Average(ratings)
	switch {
	case ok:
		user.SetRating(t, decimal.NullDecimal{Decimal: avg, Valid: true}, len(reviews))
	case a.opts.ResetOnEmpty:
		user.SetRating(t, decimal.NullDecimal{}, 0)
	default:
		return nil
	}
	return tx.SaveUser(ctx, user)
}

// Average is the mean of ratings rounded half-up to two decimals. ok is false
// for an empty slice.
func Average(ratings []int) (avg decimal.Decimal, ok bool) {
	if len(ratings) == 0 {
		return decimal.Decimal{}, false
	}
	sum := int64(0)
	for _, r := range ratings {
		sum += int64(r)
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(int64(len(ratings))), 2), true
}

func (a *Aggregator) list(ctx context.Context, f store.ReviewFilter) ([]models.Review, error) {
	var out []models.Review
	err := a.store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListReviews(ctx, f)
		return err
	})
	return out, err
}

func (a *Aggregator) ReviewsForUser(ctx context.Context, userID uint) ([]models.Review, error) {
	return a.list(ctx, store.ReviewFilter{ReviewedUserID: userID})
}

func (a *Aggregator) ReviewsByReviewer(ctx context.Context, reviewerID uint) ([]models.Review, error) {
	return a.list(ctx, store.ReviewFilter{ReviewerID: reviewerID})
}

func (a *Aggregator) ReviewsByTrip(ctx context.Context, tripID uint) ([]models.Review, error) {
	return a.list(ctx, store.ReviewFilter{TripID: tripID})
}
