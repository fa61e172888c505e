package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/trading_backend/models"
)

// FindOrCreateCustomer resolves a customer by phone, creating the profile
// when the phone is unknown. Orders never carry free-text customer details.
func FindOrCreateCustomer(c *gin.Context) {
	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	customer, err := models.FindOrCreateCustomer(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": customer})
}

func FindOrCreateWholesaleAccount(c *gin.Context) {
	var input models.NewWholesaleAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	account, err := models.FindOrCreateWholesaleAccount(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": account})
}

func GetAccountBalance(c *gin.Context) {
	accountKind, err := models.ParseAccountKind(c.Param("accountKind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	accountId, ok := paramInt(c, "accountId")
	if !ok {
		return
	}
	balance, err := models.GetAccountBalance(c.Request.Context(), accountKind, accountId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": balance})
}

func GetAccountPayments(c *gin.Context) {
	accountKind, err := models.ParseAccountKind(c.Param("accountKind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	accountId, ok := paramInt(c, "accountId")
	if !ok {
		return
	}
	payments, err := models.GetPaymentsForAccount(c.Request.Context(), accountKind, accountId)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payments})
}
