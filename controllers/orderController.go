package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/workflow"
)

// CreateOrder binds the body by the order kind in the path. Direct and
// wholesale orders share their line item shape but differ on the account
// side and the advance fields.
func CreateOrder(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	if orderKind == models.OrderKindWholesale {
		var input models.NewWholesaleOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			writeBindingError(c, err)
			return
		}
		order, err := models.CreateWholesaleOrder(c.Request.Context(), &input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": order})
		return
	}
	var input models.NewDirectOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	order, err := models.CreateDirectOrder(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": order})
}

func GetOrder(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	orderId, ok := paramInt(c, "orderId")
	if !ok {
		return
	}
	if orderKind == models.OrderKindWholesale {
		order, err := models.GetWholesaleOrder(c.Request.Context(), orderId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": order})
		return
	}
	order, err := models.GetDirectOrder(c.Request.Context(), orderId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": order})
}

func TransitionOrderStatus(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	orderId, ok := paramInt(c, "orderId")
	if !ok {
		return
	}
	var input workflow.StatusTransitionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	newStatus, err := workflow.TransitionOrderStatus(c.Request.Context(), orderKind, orderId, &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"current_status": newStatus}})
}

func GetOrderStatusHistory(c *gin.Context) {
	orderKind, ok := paramOrderKind(c)
	if !ok {
		return
	}
	orderId, ok := paramInt(c, "orderId")
	if !ok {
		return
	}
	history, err := models.GetStatusHistory(c.Request.Context(), orderKind, orderId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}
