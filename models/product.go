package models

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/utils"
	"gorm.io/gorm"
)

type Product struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null;uniqueIndex" json:"name" binding:"required"`
	Sku       string    `gorm:"size:100;default:null" json:"sku"`
	Unit      string    `gorm:"size:20;not null" json:"unit" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name string `json:"name" binding:"required"`
	Sku  string `json:"sku"`
	Unit string `json:"unit" binding:"required"`
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := utils.ValidateUnique[Product](ctx, "name", input.Name, 0); err != nil {
		return nil, err
	}

	product := Product{
		Name: input.Name,
		Sku:  input.Sku,
		Unit: input.Unit,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	var product Product
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &product, nil
}

// LookupProduct resolves a product by numeric id or by exact name.
// Composite line components reference products either way depending on the
// upstream caller; both shapes resolve here.
func LookupProduct(ctx context.Context, idOrName string) (*Product, error) {
	if id, err := strconv.Atoi(idOrName); err == nil {
		return GetProduct(ctx, id)
	}

	var product Product
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("name = ?", idOrName).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &product, nil
}

func GetAllProducts(ctx context.Context) ([]*Product, error) {
	var products []*Product
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("name").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
