package handlers

import (
	"net/http"

	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/rating"
	"github.com/gin-gonic/gin"
)

func CreateReview(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ReviewedUserID uint              `json:"reviewedUserId" binding:"required"`
			TripID         *uint             `json:"tripId"`
			Rating         int               `json:"rating" binding:"required"`
			Comment        string            `json:"comment"`
			ReviewType     models.ReviewType `json:"reviewType" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		review, err := d.Ratings.CreateReview(c.Request.Context(), middleware.UserID(c), rating.CreateReviewInput{
			ReviewedUserID: input.ReviewedUserID,
			TripID:         input.TripID,
			Rating:         input.Rating,
			Comment:        input.Comment,
			ReviewType:     input.ReviewType,
		})
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

func DeleteReview(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := d.Ratings.DeleteReview(c.Request.Context(), id, middleware.UserID(c)); err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func GetUserReviews(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		reviews, err := d.Ratings.ReviewsForUser(c.Request.Context(), id)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, reviews)
	}
}

// GetMyReviews lists the reviews the caller wrote.
func GetMyReviews(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		reviews, err := d.Ratings.ReviewsByReviewer(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, reviews)
	}
}

func GetTripReviews(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		reviews, err := d.Ratings.ReviewsByTrip(c.Request.Context(), id)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, reviews)
	}
}
