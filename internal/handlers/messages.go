package handlers

import (
	"net/http"
	"strconv"

	"github.com/chachabrian/mooveit-carpool/internal/inbox"
	"github.com/chachabrian/mooveit-carpool/internal/middleware"
	"github.com/chachabrian/mooveit-carpool/internal/models"
	"github.com/gin-gonic/gin"
)

func SendMessage(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			ReceiverID uint   `json:"receiverId" binding:"required"`
			TripID     *uint  `json:"tripId"`
			Content    string `json:"content" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		msg, err := d.Messages.Send(c.Request.Context(), middleware.UserID(c), inbox.SendMessageInput{
			ReceiverID: input.ReceiverID,
			TripID:     input.TripID,
			Content:    input.Content,
		})
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}

// GetMessages lists the caller's messages. ?box= selects sent, received or
// unread; the default is everything.
func GetMessages(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		ctx := c.Request.Context()

		var (
			msgs []models.Message
			err  error
		)
		switch c.DefaultQuery("box", "all") {
		case "sent":
			msgs, err = d.Messages.Sent(ctx, userID)
		case "received":
			msgs, err = d.Messages.Received(ctx, userID)
		case "unread":
			msgs, err = d.Messages.Unread(ctx, userID)
		case "all":
			msgs, err = d.Messages.All(ctx, userID)
		default:
			c.JSON(400, gin.H{"error": "box must be one of all, sent, received, unread"})
			return
		}
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, msgs)
	}
}

// GetConversation returns the messages exchanged with :userId, oldest first,
// optionally narrowed to ?tripId=.
func GetConversation(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		peerID, ok := paramID(c, "userId")
		if !ok {
			return
		}
		var tripID uint
		if raw := c.Query("tripId"); raw != "" {
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				c.JSON(400, gin.H{"error": "Invalid tripId"})
				return
			}
			tripID = uint(n)
		}

		msgs, err := d.Messages.Conversation(c.Request.Context(), middleware.UserID(c), peerID, tripID)
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, msgs)
	}
}

func GetUnreadMessageCount(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := d.Messages.UnreadCount(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, gin.H{"count": n})
	}
}

func MarkMessageRead(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		msg, err := d.Messages.MarkRead(c.Request.Context(), id, middleware.UserID(c))
		if err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.JSON(200, msg)
	}
}

func MarkMessagesRead(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input idsInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		bulkResponse(c, d.Messages.MarkManyRead(c.Request.Context(), input.IDs, middleware.UserID(c)))
	}
}

func DeleteMessage(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		if err := d.Messages.Delete(c.Request.Context(), id, middleware.UserID(c)); err != nil {
			respondError(c, d.Log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
