package handlers

import (
	"time"

	"github.com/chachabrian/mooveit-carpool/internal/booking"
	"github.com/chachabrian/mooveit-carpool/internal/inbox"
	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/moderation"
	"github.com/chachabrian/mooveit-carpool/internal/rating"
	"github.com/chachabrian/mooveit-carpool/internal/services"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Deps are the services the HTTP layer calls. Cache may be nil.
type Deps struct {
	Store         store.Store
	Ledger        *booking.Ledger
	Trips         *booking.TripService
	Ratings       *rating.Aggregator
	Messages      *inbox.MessageService
	Notifications *inbox.NotificationService
	Reports       *moderation.Service
	Hub           *services.Hub
	Storage       *services.Storage
	Cache         *services.TripCache
	JWTSecret     string
	JWTTTL        time.Duration
	Log           *logrus.Logger
}

// RegisterRoutes mounts the API under api.
func RegisterRoutes(api *gin.RouterGroup, d Deps) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", Register(d))
		auth.POST("/login", Login(d))
	}

	// WebSocket connection
	api.GET("/ws", middleware.AuthMiddleware(d.JWTSecret), WebSocketHandler(d.Hub))

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(d.JWTSecret))
	{
		users := protected.Group("/users")
		{
			users.GET("/profile", GetProfile(d))
			users.PUT("/profile", UpdateProfile(d))
			users.POST("/profile/photo", UploadProfilePhoto(d))
			users.GET("/:id", GetPublicProfile(d))
		}

		trips := protected.Group("/trips")
		{
			trips.POST("", CreateTrip(d))
			trips.GET("", ListActiveTrips(d))
			trips.GET("/search", SearchTrips(d))
			trips.GET("/driver", GetDriverTrips(d))
			trips.GET("/:id", GetTrip(d))
			trips.POST("/:id/cancel", CancelTrip(d))
			trips.POST("/:id/complete", CompleteTrip(d))
			trips.GET("/:id/bookings", GetTripBookings(d))
		}

		bookings := protected.Group("/bookings")
		{
			bookings.POST("", CreateBooking(d))
			bookings.GET("/passenger", GetPassengerBookings(d))
			bookings.GET("/:id", GetBooking(d))
			bookings.POST("/:id/accept", AcceptBooking(d))
			bookings.POST("/:id/reject", RejectBooking(d))
			bookings.POST("/:id/cancel", CancelBooking(d))
			bookings.POST("/accept", AcceptBookings(d))
			bookings.POST("/reject", RejectBookings(d))
			bookings.POST("/cancel", CancelBookings(d))
		}

		reviews := protected.Group("/reviews")
		{
			reviews.POST("", CreateReview(d))
			reviews.DELETE("/:id", DeleteReview(d))
			reviews.GET("/user/:id", GetUserReviews(d))
			reviews.GET("/mine", GetMyReviews(d))
			reviews.GET("/trip/:id", GetTripReviews(d))
		}

		messages := protected.Group("/messages")
		{
			messages.POST("", SendMessage(d))
			messages.GET("", GetMessages(d))
			messages.GET("/conversation/:userId", GetConversation(d))
			messages.GET("/unread-count", GetUnreadMessageCount(d))
			messages.POST("/read", MarkMessagesRead(d))
			messages.POST("/:id/read", MarkMessageRead(d))
			messages.DELETE("/:id", DeleteMessage(d))
		}

		notifications := protected.Group("/notifications")
		{
			notifications.GET("", GetNotifications(d))
			notifications.GET("/unread-count", GetUnreadNotificationCount(d))
			notifications.POST("/read", MarkNotificationsRead(d))
			notifications.POST("/read-all", MarkAllNotificationsRead(d))
			notifications.POST("/:id/read", MarkNotificationRead(d))
			notifications.DELETE("/:id", DeleteNotification(d))
			notifications.POST("/register-token", RegisterFCMToken(d))

			// Notification preferences
			notifications.GET("/preferences", GetNotificationPreferences(d))
			notifications.PUT("/preferences", UpdateNotificationPreferences(d))
		}

		reports := protected.Group("/reports")
		{
			reports.POST("", CreateReport(d))
			reports.GET("/mine", GetMyReports(d))
			reports.DELETE("/:id", DeleteReport(d))
		}

		admin := protected.Group("/admin", middleware.AdminOnly())
		{
			admin.GET("/reports", ListReports(d))
			admin.PATCH("/reports/:id", UpdateReportStatus(d))
			admin.GET("/stats", GetStats(d))
			admin.GET("/trips/:id/seat-audit", GetSeatAudit(d))
		}
	}
}
