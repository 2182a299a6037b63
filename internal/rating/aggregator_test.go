package rating

import (
	"context"
	"sync"
	"testing"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/chachabrian/mooveit-carpool/internal/events"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/chachabrian/mooveit-carpool/internal/store/storetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAggregator(t *testing.T, opts Options) (*Aggregator, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewAggregator(s, &events.Recorder{}, storetest.Logger(), opts), s
}

func driverReview(reviewed uint, rating int) CreateReviewInput {
	return CreateReviewInput{ReviewedUserID: reviewed, Rating: rating, ReviewType: models.ReviewTypeDriver}
}

func assertRating(t *testing.T, s store.Store, userID uint, rt models.ReviewType, want string, wantTotal int) {
	t.Helper()
	u := storetest.GetUser(t, s, userID)
	avg, total := u.Rating(rt)
	require.True(t, avg.Valid, "average should be set")
	assert.True(t, decimal.RequireFromString(want).Equal(avg.Decimal), "average %s, want %s", avg.Decimal, want)
	assert.Equal(t, wantTotal, total)
}

func TestAverage(t *testing.T) {
	tests := []struct {
		ratings []int
		want    string
	}{
		{[]int{4, 2}, "3.00"},
		{[]int{5}, "5.00"},
		{[]int{1, 2, 2}, "1.67"},
		{[]int{5, 5, 4}, "4.67"},
		{[]int{1, 1, 2}, "1.33"},
		// 4.125 rounds half-up to 4.13
		{[]int{5, 5, 5, 5, 4, 4, 3, 2}, "4.13"},
	}
	for _, tt := range tests {
		avg, ok := Average(tt.ratings)
		require.True(t, ok)
		assert.Equal(t, tt.want, avg.StringFixed(2))
	}

	_, ok := Average(nil)
	assert.False(t, ok)
}

func TestCreateAndDeleteReviewRecomputes(t *testing.T) {
	agg, s := newAggregator(t, Options{})
	ctx := context.Background()
	a := storetest.User(t, s, "a")
	b := storetest.User(t, s, "b")
	c := storetest.User(t, s, "c")

	_, err := agg.CreateReview(ctx, a.ID, driverReview(b.ID, 4))
	require.NoError(t, err)
	low, err := agg.CreateReview(ctx, c.ID, driverReview(b.ID, 2))
	require.NoError(t, err)
	assertRating(t, s, b.ID, models.ReviewTypeDriver, "3.00", 2)

	passengerAvg, passengerTotal := storetest.GetUser(t, s, b.ID).Rating(models.ReviewTypePassenger)
	assert.False(t, passengerAvg.Valid)
	assert.Zero(t, passengerTotal)

	require.NoError(t, agg.DeleteReview(ctx, low.ID, c.ID))
	assertRating(t, s, b.ID, models.ReviewTypeDriver, "4.00", 1)
}

func TestRecomputeOnlyTouchesReviewType(t *testing.T) {
	agg, s := newAggregator(t, Options{})
	ctx := context.Background()
	a := storetest.User(t, s, "a")
	b := storetest.User(t, s, "b")

	_, err := agg.CreateReview(ctx, a.ID, driverReview(b.ID, 5))
	require.NoError(t, err)
	_, err = agg.CreateReview(ctx, a.ID, CreateReviewInput{ReviewedUserID: b.ID, Rating: 2, ReviewType: models.ReviewTypePassenger})
	require.NoError(t, err)

	assertRating(t, s, b.ID, models.ReviewTypeDriver, "5.00", 1)
	assertRating(t, s, b.ID, models.ReviewTypePassenger, "2.00", 1)
}

func TestDeletingLastReviewKeepsPreviousAggregate(t *testing.T) {
	agg, s := newAggregator(t, Options{})
	ctx := context.Background()
	a := storetest.User(t, s, "a")
	b := storetest.User(t, s, "b")

	r, err := agg.CreateReview(ctx, a.ID, driverReview(b.ID, 3))
	require.NoError(t, err)
	require.NoError(t, agg.DeleteReview(ctx, r.ID, a.ID))

	assertRating(t, s, b.ID, models.ReviewTypeDriver, "3.00", 1)
}

func TestDeletingLastReviewResetsWhenConfigured(t *testing.T) {
	agg, s := newAggregator(t, Options{ResetOnEmpty: true})
	ctx := context.Background()
	a := storetest.User(t, s, "a")
	b := storetest.User(t, s, "b")

	r, err := agg.CreateReview(ctx, a.ID, driverReview(b.ID, 3))
	require.NoError(t, err)
	require.NoError(t, agg.DeleteReview(ctx, r.ID, a.ID))

	avg, total := storetest.GetUser(t, s, b.ID).Rating(models.ReviewTypeDriver)
	assert.False(t, avg.Valid)
	assert.Zero(t, total)
}

func TestCreateReviewValidation(t *testing.T) {
	agg, s := newAggregator(t, Options{})
	ctx := context.Background()
	a := storetest.User(t, s, "a")
	b := storetest.User(t, s, "b")
	trip := storetest.Trip(t, s, b.ID, 2)
	missingTrip := uint(9999)

	tests := []struct {
		name     string
		reviewer uint
		in       CreateReviewInput
		want     error
	}{
		{"rating too low", a.ID, driverReview(b.ID, 0), apperr.ErrInvalidRequest},
		{"rating too high", a.ID, driverReview(b.ID, 6), apperr.ErrInvalidRequest},
		{"unknown type", a.ID, CreateReviewInput{ReviewedUserID: b.ID, Rating: 3, ReviewType: "BOTH"}, apperr.ErrInvalidRequest},
		{"self review", a.ID, driverReview(a.ID, 5), apperr.ErrForbidden},
		{"unknown reviewed user", a.ID, driverReview(9999, 5), apperr.ErrNotFound},
		{"unknown reviewer", 9999, driverReview(b.ID, 5), apperr.ErrNotFound},
		{"unknown trip", a.ID, CreateReviewInput{ReviewedUserID: b.ID, TripID: &missingTrip, Rating: 5, ReviewType: models.ReviewTypeDriver}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agg.CreateReview(ctx, tt.reviewer, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	in := driverReview(b.ID, 4)
	in.TripID = &trip.ID
	_, err := agg.CreateReview(ctx, a.ID, in)
	require.NoError(t, err)
	_, err = agg.CreateReview(ctx, a.ID, in)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assertRating(t, s, b.ID, models.ReviewTypeDriver, "4.00", 1)
}

func TestDeleteReviewGuards(t *testing.T) {
	agg, s := newAggregator(t, Options{})
	ctx := context.Background()
	a := storetest.User(t, s, "a")
	b := storetest.User(t, s, "b")

	r, err := agg.CreateReview(ctx, a.ID, driverReview(b.ID, 4))
	require.NoError(t, err)

	assert.ErrorIs(t, agg.DeleteReview(ctx, r.ID, b.ID), apperr.ErrForbidden)
	assert.ErrorIs(t, agg.DeleteReview(ctx, 9999, a.ID), apperr.ErrNotFound)
	assertRating(t, s, b.ID, models.ReviewTypeDriver, "4.00", 1)
}

func TestConcurrentReviewsKeepAggregateExact(t *testing.T) {
	agg, s := newAggregator(t, Options{})
	ctx := context.Background()
	target := storetest.User(t, s, "target")

	ratings := []int{5, 4, 3, 5, 1, 2, 4, 5}
	reviewers := make([]*models.User, len(ratings))
	for i := range ratings {
		reviewers[i] = storetest.User(t, s, "reviewer"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for i, r := range ratings {
		wg.Add(1)
		go func(reviewer uint, rating int) {
			defer wg.Done()
			_, err := agg.CreateReview(ctx, reviewer, driverReview(target.ID, rating))
			assert.NoError(t, err)
		}(reviewers[i].ID, r)
	}
	wg.Wait()

	want, _ := Average(ratings)
	assertRating(t, s, target.ID, models.ReviewTypeDriver, want.StringFixed(2), len(ratings))
}

func TestReviewListings(t *testing.T) {
	agg, s := newAggregator(t, Options{})
	ctx := context.Background()
	a := storetest.User(t, s, "a")
	b := storetest.User(t, s, "b")
	trip := storetest.Trip(t, s, b.ID, 2)

	in := driverReview(b.ID, 5)
	in.TripID = &trip.ID
	_, err := agg.CreateReview(ctx, a.ID, in)
	require.NoError(t, err)
	_, err = agg.CreateReview(ctx, b.ID, CreateReviewInput{ReviewedUserID: a.ID, Rating: 4, ReviewType: models.ReviewTypePassenger})
	require.NoError(t, err)

	forB, err := agg.ReviewsForUser(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, forB, 1)

	byA, err := agg.ReviewsByReviewer(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, byA, 1)

	byTrip, err := agg.ReviewsByTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Len(t, byTrip, 1)
}
