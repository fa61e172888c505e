package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/workflow"
)

type saveAllocationsRequest struct {
	Allocations []models.NewAllocation `json:"allocations" binding:"required"`
}

// SaveAllocations replaces the order's allocation set. All-or-nothing: one
// over-allocated batch rejects the whole request.
func SaveAllocations(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	orderId, ok := paramInt(c, "orderId")
	if !ok {
		return
	}
	var input saveAllocationsRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	allocations, err := workflow.SaveAllocations(c.Request.Context(), orderKind, orderId, input.Allocations)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": allocations})
}

func ListAllocations(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	orderId, ok := paramInt(c, "orderId")
	if !ok {
		return
	}
	allocations, err := models.ListAllocations(c.Request.Context(), orderKind, orderId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": allocations})
}

// SettleDelivery re-runs the stock deduction for a delivered order. Settling
// an already-settled order is a logged no-op.
func SettleDelivery(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	orderId, ok := paramInt(c, "orderId")
	if !ok {
		return
	}
	if err := workflow.SettleDelivery(c.Request.Context(), orderKind, orderId); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "settled"})
}
