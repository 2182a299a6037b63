package handlers

import (
	"net/http"
	"strconv"

	"github.com/chachabrian/mooveit-carpool/internal/inbox"
	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/gin-gonic/gin"
)

// GetNotifications lists the caller's notifications, newest first. Supports
// ?unread=true, ?type= and ?limit=.
func GetNotifications(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts := inbox.ListOptions{
			UnreadOnly: c.Query("unread") == "true",
			Type:       models.NotificationType(c.Query("type")),
		}
		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				c.JSON(400, gin.H{"error": "Invalid limit"})
				return
			}
			opts.Limit = limit
		}

		list, err := d.Notifications.List(c.Request.Context(), middleware.UserID(c), opts)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, list)
	}
}

func GetUnreadNotificationCount(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := d.Notifications.UnreadCount(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, gin.H{"count": n})
	}
}

func MarkNotificationRead(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		n, err := d.Notifications.MarkRead(c.Request.Context(), id, middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, n)
	}
}

func MarkNotificationsRead(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input idsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		bulkResponse(c, d.Notifications.MarkManyRead(c.Request.Context(), input.IDs, middleware.UserID(c)))
	}
}

func MarkAllNotificationsRead(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := d.Notifications.MarkAllRead(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, gin.H{"updated": n})
	}
}

func DeleteNotification(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := d.Notifications.Delete(c.Request.Context(), id, middleware.UserID(c)); err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// RegisterFCMToken stores the device token for push notifications
func RegisterFCMToken(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if err := d.Notifications.RegisterToken(c.Request.Context(), middleware.UserID(c), input.Token); err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, gin.H{"message": "FCM token registered successfully"})
	}
}
