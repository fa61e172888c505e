package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bill is the financial record derived from exactly one delivered order.
// The unique index on (order_kind, order_id) is what makes bill creation
// race-safe: a concurrent duplicate insert fails at the constraint instead
// of slipping past a prior read.
//
// Invariant: paid + pending == total (within epsilon). Bills mutate only
// through payments.
type Bill struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BillNumber  string          `gorm:"size:255;not null;uniqueIndex" json:"bill_number"`
	SequenceNo  int64           `gorm:"not null;index" json:"sequence_no"`
	OrderKind   OrderKind       `gorm:"type:enum('Direct','Wholesale');uniqueIndex:idx_bill_order,priority:1;not null" json:"order_kind"`
	OrderId     int             `gorm:"uniqueIndex:idx_bill_order,priority:2;not null" json:"order_id"`
	AccountKind AccountKind     `gorm:"type:enum('Customer','Wholesale');index:idx_bill_account,priority:1;not null" json:"account_kind"`
	AccountId   int             `gorm:"index:idx_bill_account,priority:2;not null" json:"account_id"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	Total       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	Paid        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid"`
	Pending     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"pending"`
	Status      BillStatus      `gorm:"type:enum('Pending','Partial','Paid','Overdue');default:'Pending'" json:"status"`
	BillDate    time.Time       `gorm:"not null" json:"bill_date"`
	DueDate     *time.Time      `gorm:"default:null" json:"due_date"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// DeriveBillStatus derives the payment status from the figures alone.
func DeriveBillStatus(paid, pending decimal.Decimal) BillStatus {
	if pending.LessThanOrEqual(utils.Epsilon) {
		return BillStatusPaid
	}
	if paid.IsPositive() {
		return BillStatusPartial
	}
	return BillStatusPending
}

// EffectiveStatus reports Overdue at read time for unpaid bills past their
// due date; the stored status keeps the payment-derived value.
func (b *Bill) EffectiveStatus(now time.Time) BillStatus {
	if b.Status != BillStatusPaid && b.DueDate != nil && b.DueDate.Before(now) {
		return BillStatusOverdue
	}
	return b.Status
}

// LockBillByOrder loads the order's bill FOR UPDATE inside the caller's
// transaction. Returns ErrorRecordNotFound when no bill exists yet.
func LockBillByOrder(tx *gorm.DB, orderKind OrderKind, orderId int) (*Bill, error) {
	var bill Bill
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_kind = ? AND order_id = ?", orderKind, orderId).
		First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &bill, nil
}

func LockBill(tx *gorm.DB, billId int) (*Bill, error) {
	var bill Bill
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&bill, billId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &bill, nil
}

func GetBill(ctx context.Context, id int) (*Bill, error) {
	var bill Bill
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&bill, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &bill, nil
}

func GetBillByOrder(ctx context.Context, orderKind OrderKind, orderId int) (*Bill, error) {
	var bill Bill
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("order_kind = ? AND order_id = ?", orderKind, orderId).
		First(&bill).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &bill, nil
}
