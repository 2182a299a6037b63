package handlers

import (
	"net/http"
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/booking"
	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateTripRequest struct {
	DepartureLocation string          `json:"departureLocation" binding:"required"`
	DepartureCity     string          `json:"departureCity" binding:"required"`
	ArrivalLocation   string          `json:"arrivalLocation" binding:"required"`
	ArrivalCity       string          `json:"arrivalCity" binding:"required"`
	DepartureTime     time.Time       `json:"departureTime" binding:"required"`
	TotalSeats        int             `json:"totalSeats" binding:"required"`
	PricePerSeat      decimal.Decimal `json:"pricePerSeat"`
	Description       string          `json:"description"`
}

func CreateTrip(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CreateTripRequest
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		trip, err := d.Trips.CreateTrip(c.Request.Context(), middleware.UserID(c), booking.CreateTripInput{
			DepartureLocation: input.DepartureLocation,
			DepartureCity:     input.DepartureCity,
			ArrivalLocation:   input.ArrivalLocation,
			ArrivalCity:       input.ArrivalCity,
			DepartureTime:     input.DepartureTime,
			TotalSeats:        input.TotalSeats,
			PricePerSeat:      input.PricePerSeat,
			Description:       input.Description,
		})
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(http.StatusCreated, trip)
	}
}

// ListActiveTrips returns every active trip that has not departed.
func ListActiveTrips(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		trips, err := d.Trips.ActiveTrips(c.Request.Context())
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, trips)
	}
}

// SearchTrips serves ?from=&to= from the search cache when one is configured.
func SearchTrips(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, to := c.Query("from"), c.Query("to")
		ctx := c.Request.Context()

		if d.Cache != nil {
			trips, hit, err := d.Cache.GetSearch(ctx, from, to)
			if err != nil {
				d.Log.WithError(err).Warn("trip search cache read failed")
			} else if hit {
				c.Header("X-Cache", "HIT")
				c.JSON(200, trips)
				return
			}
		}

		trips, err := d.Trips.SearchTrips(ctx, from, to)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}

		if d.Cache != nil {
			if err := d.Cache.SetSearch(ctx, from, to, trips); err != nil {
				d.Log.WithError(err).Warn("trip search cache write failed")
			}
			c.Header("X-Cache", "MISS")
		}
		c.JSON(200, trips)
	}
}

func GetDriverTrips(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		trips, err := d.Trips.TripsByDriver(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, trips)
	}
}

func GetTrip(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		trip, err := d.Trips.GetTrip(c.Request.Context(), id)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, trip)
	}
}

func CancelTrip(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		trip, err := d.Trips.CancelTrip(c.Request.Context(), id, middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, trip)
	}
}

func CompleteTrip(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		trip, err := d.Trips.CompleteTrip(c.Request.Context(), id, middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, trip)
	}
}

// GetTripBookings lists a trip's bookings for its driver.
func GetTripBookings(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		bookings, err := d.Ledger.BookingsByTrip(c.Request.Context(), id, middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, bookings)
	}
}
