package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/utils"
	"gorm.io/gorm"
)

// WholesaleAccount is the wholesale-channel directory, kept separate from
// Customer because wholesale accounts carry business profile fields and
// their orders can record advance payments.
type WholesaleAccount struct {
	ID           int       `gorm:"primary_key" json:"id"`
	BusinessName string    `gorm:"size:255;not null" json:"business_name" binding:"required"`
	ContactName  string    `gorm:"size:255;default:null" json:"contact_name"`
	Phone        string    `gorm:"size:30;not null;uniqueIndex" json:"phone" binding:"required"`
	Email        string    `gorm:"size:255;default:null" json:"email"`
	Address      string    `gorm:"type:text;default:null" json:"address"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWholesaleAccount struct {
	BusinessName string `json:"business_name" binding:"required"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone" binding:"required"`
	Email        string `json:"email"`
	Address      string `json:"address"`
}

func FindOrCreateWholesaleAccount(ctx context.Context, input *NewWholesaleAccount) (*WholesaleAccount, error) {
	if err := utils.ValidatePhoneNumber(input.Phone, "MM"); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var account WholesaleAccount
	err := db.WithContext(ctx).Where("phone = ?", input.Phone).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	account = WholesaleAccount{
		BusinessName: input.BusinessName,
		ContactName:  input.ContactName,
		Phone:        input.Phone,
		Email:        input.Email,
		Address:      input.Address,
	}
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func GetWholesaleAccount(ctx context.Context, id int) (*WholesaleAccount, error) {
	var account WholesaleAccount
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &account, nil
}
