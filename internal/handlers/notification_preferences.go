package handlers

import (
	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/gin-gonic/gin"
)

// GetNotificationPreferences retrieves user's notification preferences
func GetNotificationPreferences(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefs, err := d.Notifications.Preferences(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, prefs)
	}
}

// UpdateNotificationPreferences updates user's notification preferences.
// Omitted fields keep their current value.
func UpdateNotificationPreferences(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)

		var input struct {
			PushEnabled   *bool `json:"pushEnabled"`
			BookingAlerts *bool `json:"bookingAlerts"`
			MessageAlerts *bool `json:"messageAlerts"`
			ReviewAlerts  *bool `json:"reviewAlerts"`
			EmailEnabled  *bool `json:"emailEnabled"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		current, err := d.Notifications.Preferences(c.Request.Context(), userID)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}

		prefs := *current
		if input.PushEnabled != nil {
			prefs.PushEnabled = *input.PushEnabled
		}
		if input.BookingAlerts != nil {
			prefs.BookingAlerts = *input.BookingAlerts
		}
		if input.MessageAlerts != nil {
			prefs.MessageAlerts = *input.MessageAlerts
		}
		if input.ReviewAlerts != nil {
			prefs.ReviewAlerts = *input.ReviewAlerts
		}
		if input.EmailEnabled != nil {
			prefs.EmailEnabled = *input.EmailEnabled
		}

		updated, err := d.Notifications.UpdatePreferences(c.Request.Context(), userID, prefs)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, updated)
	}
}
