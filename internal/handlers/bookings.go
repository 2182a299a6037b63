package handlers

import (
	"net/http"

	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/gin-gonic/gin"
)

// CreateBooking handles the creation of a new booking
func CreateBooking(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			TripID      uint   `json:"tripId" binding:"required"`
			SeatsBooked int    `json:"seatsBooked" binding:"required"`
			Message     string `json:"message"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		b, err := d.Ledger.CreateBooking(c.Request.Context(), middleware.UserID(c), input.TripID, input.SeatsBooked, input.Message)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(http.StatusCreated, b)
	}
}

func GetPassengerBookings(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookings, err := d.Ledger.BookingsByPassenger(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, bookings)
	}
}

// GetBooking is visible to the passenger and the trip's driver.
func GetBooking(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		b, err := d.Ledger.Get(c.Request.Context(), id, middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, b)
	}
}

type bookingOp func(c *gin.Context, bookingID, userID uint) (*models.Booking, error)

func bookingTransition(d Deps, op bookingOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		b, err := op(c, id, middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, b)
	}
}

func AcceptBooking(d Deps) gin.HandlerFunc {
	return bookingTransition(d, func(c *gin.Context, id, userID uint) (*models.Booking, error) {
		return d.Ledger.AcceptBooking(c.Request.Context(), id, userID)
	})
}

func RejectBooking(d Deps) gin.HandlerFunc {
	return bookingTransition(d, func(c *gin.Context, id, userID uint) (*models.Booking, error) {
		return d.Ledger.RejectBooking(c.Request.Context(), id, userID)
	})
}

func CancelBooking(d Deps) gin.HandlerFunc {
	return bookingTransition(d, func(c *gin.Context, id, userID uint) (*models.Booking, error) {
		return d.Ledger.CancelBooking(c.Request.Context(), id, userID)
	})
}

func AcceptBookings(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input idsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		bulkResponse(c, d.Ledger.AcceptMany(c.Request.Context(), input.IDs, middleware.UserID(c)))
	}
}

func RejectBookings(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input idsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		bulkResponse(c, d.Ledger.RejectMany(c.Request.Context(), input.IDs, middleware.UserID(c)))
	}
}

func CancelBookings(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input idsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		bulkResponse(c, d.Ledger.CancelMany(c.Request.Context(), input.IDs, middleware.UserID(c)))
	}
}
