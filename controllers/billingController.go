package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/workflow"
)

type billResponse struct {
	*models.Bill
	EffectiveStatus models.BillStatus `json:"effective_status"`
}

func toBillResponse(bill *models.Bill) billResponse {
	return billResponse{Bill: bill, EffectiveStatus: bill.EffectiveStatus(time.Now().UTC())}
}

func GetBill(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	bill, err := models.GetBill(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toBillResponse(bill)})
}

func GetBillForOrder(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	orderId, ok := paramInt(c, "orderId")
	if !ok {
		return
	}
	bill, err := models.GetBillByOrder(c.Request.Context(), orderKind, orderId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toBillResponse(bill)})
}

// CreateBillForOrder raises the bill for a delivered order whose automatic
// billing failed. Returns the existing bill when one is already there.
func CreateBillForOrder(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	orderId, ok := paramInt(c, "orderId")
	if !ok {
		return
	}
	bill, err := workflow.CreateOrGetBill(c.Request.Context(), orderKind, orderId, nil)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toBillResponse(bill)})
}

func GetBillPayments(c *gin.Context) {
	id, ok := paramInt(c, "id")
	if !ok {
		return
	}
	payments, err := models.GetPaymentsForBill(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments})
}
