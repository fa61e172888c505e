package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/utils"
	"gorm.io/gorm"
)

// Customer is the direct-sales account directory. Orders reference customers
// by id; intake finds-or-creates by phone so repeat buyers keep one account.
type Customer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Phone     string    `gorm:"size:30;not null;uniqueIndex" json:"phone" binding:"required"`
	Email     string    `gorm:"size:255;default:null" json:"email"`
	Address   string    `gorm:"type:text;default:null" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// FindOrCreateCustomer resolves an account id by phone, creating the profile
// on first contact.
func FindOrCreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	if err := utils.ValidatePhoneNumber(input.Phone, "MM"); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var customer Customer
	err := db.WithContext(ctx).Where("phone = ?", input.Phone).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	customer = Customer{
		Name:    input.Name,
		Phone:   input.Phone,
		Email:   input.Email,
		Address: input.Address,
	}
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	var customer Customer
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &customer, nil
}
