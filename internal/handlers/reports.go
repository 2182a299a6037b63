package handlers

import (
	"net/http"

	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/moderation"
	"github.com/gin-gonic/gin"
)

func CreateReport(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ReportType        models.ReportType   `json:"reportType" binding:"required"`
			ReportedUserID    *uint               `json:"reportedUserId"`
			ReportedTripID    *uint               `json:"reportedTripId"`
			ReportedMessageID *uint               `json:"reportedMessageId"`
			Reason            models.ReportReason `json:"reason" binding:"required"`
			Description       string              `json:"description" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		report, err := d.Reports.CreateReport(c.Request.Context(), middleware.UserID(c), moderation.CreateReportInput{
			Type:              input.ReportType,
			ReportedUserID:    input.ReportedUserID,
			ReportedTripID:    input.ReportedTripID,
			ReportedMessageID: input.ReportedMessageID,
			Reason:            input.Reason,
			Description:       input.Description,
		})
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(http.StatusCreated, report)
	}
}

func GetMyReports(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		reports, err := d.Reports.ByReporter(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, reports)
	}
}

func DeleteReport(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := d.Reports.DeleteReport(c.Request.Context(), id, middleware.UserID(c)); err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
