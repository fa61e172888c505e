package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/workflow"
)

func RecordInventoryMovement(c *gin.Context) {
	var input workflow.NewInventoryMovement
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	entryId, err := workflow.RecordInventoryMovement(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"entry_id": entryId}})
}

func GetValuation(c *gin.Context) {
	productId, ok := paramInt(c, "productId")
	if !ok {
		return
	}
	valuation, err := models.GetValuation(c.Request.Context(), productId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": valuation})
}

func ListValuations(c *gin.Context) {
	valuations, err := models.GetAllValuations(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": valuations})
}

func GetProductLedger(c *gin.Context) {
	productId, ok := paramInt(c, "productId")
	if !ok {
		return
	}
	entries, err := models.GetLedgerEntriesForProduct(c.Request.Context(), productId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

type mergeBatchesRequest struct {
	ProductId    int      `json:"product_id" binding:"required"`
	BatchNumbers []string `json:"batch_numbers" binding:"required,min=2"`
	NewBatchName string   `json:"new_batch_name"`
}

func MergeBatches(c *gin.Context) {
	var input mergeBatchesRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	newBatch, err := workflow.MergeBatches(c.Request.Context(), input.ProductId, input.BatchNumbers, input.NewBatchName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"batch_number": newBatch}})
}

// RebuildValuation replays the ledger into the valuation snapshots.
// ?product_id=0 (or absent) rebuilds every product.
func RebuildValuation(c *gin.Context) {
	productId, _ := strconv.Atoi(c.Query("product_id"))
	if err := workflow.RebuildValuation(c.Request.Context(), productId); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "valuation rebuilt"})
}
