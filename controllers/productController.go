package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/trading_backend/models"
)

func CreateProduct(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		writeBindingError(c, err)
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": product})
}

// GetProduct resolves by numeric id or by exact name.
func GetProduct(c *gin.Context) {
	product, err := models.LookupProduct(c.Request.Context(), c.Param("idOrName"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": product})
}

func ListProducts(c *gin.Context) {
	products, err := models.GetAllProducts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}
