package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/trading_backend/workflow"
)

// GetProfitReport reports estimated gross profit over delivered orders.
// ?from and ?to are dates (2006-01-02); the range defaults to the last
// 30 days and is inclusive of the whole end day.
func GetProfitReport(c *gin.Context) {
	now := time.Now().UTC()
	fromDate := now.AddDate(0, 0, -30)
	toDate := now

	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid from date, want 2006-01-02"})
			return
		}
		fromDate = parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "invalid to date, want 2006-01-02"})
			return
		}
		toDate = parsed.AddDate(0, 0, 1).Add(-time.Second)
	}

	report, err := workflow.GetProfitReport(c.Request.Context(), fromDate, toDate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}
