package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/shopspring/decimal"
)

// Payment is a write-once record of money received, against a specific bill
// or directly against an account balance (bill_id nil). The receipt URL is
// an opaque blob reference; the core never interprets it.
type Payment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PaymentNumber   string          `gorm:"size:255;not null;uniqueIndex" json:"payment_number"`
	SequenceNo      int64           `gorm:"not null;index" json:"sequence_no"`
	AccountKind     AccountKind     `gorm:"type:enum('Customer','Wholesale');index:idx_payment_account,priority:1;not null" json:"account_kind"`
	AccountId       int             `gorm:"index:idx_payment_account,priority:2;not null" json:"account_id"`
	BillId          *int            `gorm:"index;default:null" json:"bill_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Method          string          `gorm:"size:50;not null" json:"method"`
	ReferenceNumber string          `gorm:"size:255;default:null" json:"reference_number"`
	ReceiptURL      string          `gorm:"size:1024;default:null" json:"receipt_url"`
	Note            string          `gorm:"type:text;default:null" json:"note"`
	PaymentDate     time.Time       `gorm:"not null" json:"payment_date"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func GetPaymentsForBill(ctx context.Context, billId int) ([]*Payment, error) {
	var payments []*Payment
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("bill_id = ?", billId).
		Order("payment_date, id").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func GetPaymentsForAccount(ctx context.Context, accountKind AccountKind, accountId int) ([]*Payment, error) {
	var payments []*Payment
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("account_kind = ? AND account_id = ?", accountKind, accountId).
		Order("payment_date, id").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
