package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/mmdatafocus/trading_backend/workflow"
)

func ApplyPayment(c *gin.Context) {
	var input workflow.NewPayment
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	result, err := workflow.ApplyPayment(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

type signReceiptUploadRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// SignReceiptUpload hands the client a short-lived signed PUT URL so
// receipt files go straight to the bucket without passing through the API.
func SignReceiptUpload(c *gin.Context) {
	var input signReceiptUploadRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	objectKey := fmt.Sprintf("receipts/%s-%s", uuid.NewString(), input.FileName)
	signed, err := utils.SignReceiptUpload(c.Request.Context(), objectKey, input.ContentType, 15*time.Minute)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": signed})
}
