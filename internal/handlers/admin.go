package handlers

import (
	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/chachabrian/mooveit-carpool/internal/moderation"
	"github.com/chachabrian/mooveit-carpool/internal/store"
	"github.com/gin-gonic/gin"
)

// ListReports supports ?status=, ?unresolved=true and ?userId= for reports
// about one user. Without filters it returns the pending queue.
func ListReports(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var (
			reports []models.Report
			err     error
		)
		switch {
		case c.Query("userId") != "":
			userID, ok := queryID(c, "userId")
			if !ok {
				return
			}
			reports, err = d.Reports.AboutUser(ctx, userID)
		case c.Query("unresolved") == "true":
			reports, err = d.Reports.Unresolved(ctx)
		case c.Query("status") != "":
			status := models.ReportStatus(c.Query("status"))
			if !status.Valid() {
				c.JSON(400, gin.H{"error": "Invalid status"})
				return
			}
			reports, err = d.Reports.ListReports(ctx, store.ReportFilter{
				Status: status,
				Type:   models.ReportType(c.Query("type")),
				Reason: models.ReportReason(c.Query("reason")),
			})
		default:
			reports, err = d.Reports.Pending(ctx)
		}
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, reports)
	}
}

func UpdateReportStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var input struct {
			Status     models.ReportStatus `json:"status" binding:"required"`
			AdminNotes string              `json:"adminNotes"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		report, err := d.Reports.UpdateStatus(c.Request.Context(), id, middleware.UserID(c), moderation.UpdateReportInput{
			Status:     input.Status,
			AdminNotes: input.AdminNotes,
		})
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, report)
	}
}

func GetStats(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := d.Reports.Stats(c.Request.Context())
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, stats)
	}
}

// GetSeatAudit compares a trip's seat counter with its active bookings.
func GetSeatAudit(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		audit, err := d.Ledger.SeatAudit(c.Request.Context(), id)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, audit)
	}
}
