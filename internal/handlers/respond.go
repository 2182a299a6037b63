package handlers

import (
	"net/http"
	"strconv"

	"github.com/chachabrian/mooveit-carpool/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// respondError answers with the status matching the error kind. Unexpected
// errors are logged and hidden from the client.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

type idsInput struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

type itemResult struct {
	ID    uint   `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// bulkResponse renders per-item outcomes of a batch operation.
func bulkResponse(c *gin.Context, results []apperr.ItemResult) {
	items := make([]itemResult, len(results))
	for i, r := range results {
		items[i] = itemResult{ID: r.ID, OK: r.Err == nil}
		if r.Err != nil {
			items[i].Error = r.Err.Error()
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results":   items,
		"succeeded": apperr.Succeeded(results),
		"failed":    len(results) - apperr.Succeeded(results),
	})
}

func queryID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Query(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
