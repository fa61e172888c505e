package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WholesaleOrder shares the direct order lifecycle but can carry an advance
// payment captured at creation. The advance seeds the post-delivery bill's
// paid amount and gets its own payment row when the bill is created.
type WholesaleOrder struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OrderNumber   string          `gorm:"size:255;not null;uniqueIndex" json:"order_number"`
	SequenceNo    int64           `gorm:"not null;index" json:"sequence_no"`
	AccountId     int             `gorm:"index;not null" json:"account_id" binding:"required"`
	CurrentStatus OrderStatus     `gorm:"type:enum('Pending','Confirmed','Processing','Ready','Delivered','Cancelled');default:'Pending'" json:"current_status"`
	OrderDate     time.Time       `gorm:"not null" json:"order_date"`
	OrderTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"order_total"`
	AdvanceAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"advance_amount"`
	AdvanceMethod string          `gorm:"size:50;default:null" json:"advance_method"`
	ConfirmedAt   *time.Time      `gorm:"default:null" json:"confirmed_at"`
	ConfirmedBy   string          `gorm:"size:255;default:null" json:"confirmed_by"`
	DeliveredAt   *time.Time      `gorm:"default:null" json:"delivered_at"`
	CancelledAt   *time.Time      `gorm:"default:null" json:"cancelled_at"`
	Notes         string          `gorm:"type:text;default:null" json:"notes"`
	LineItems     []OrderLineItem `gorm:"-" json:"line_items"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWholesaleOrder struct {
	AccountId     int             `json:"account_id" binding:"required"`
	OrderDate     time.Time       `json:"order_date"`
	AdvanceAmount decimal.Decimal `json:"advance_amount"`
	AdvanceMethod string          `json:"advance_method"`
	Notes         string          `json:"notes"`
	LineItems     []NewLineItem   `json:"line_items" binding:"required,min=1"`
}

func CreateWholesaleOrder(ctx context.Context, input *NewWholesaleOrder) (*WholesaleOrder, error) {
	if err := utils.ValidateResourceId[WholesaleAccount](ctx, input.AccountId); err != nil {
		return nil, fmt.Errorf("%w: wholesale account not found", utils.ErrorRecordNotFound)
	}
	if input.AdvanceAmount.IsNegative() {
		return nil, fmt.Errorf("%w: advance amount must not be negative", utils.ErrValidation)
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	seqNo, err := utils.GetSequence[WholesaleOrder](ctx)
	if err != nil {
		return nil, err
	}

	order := WholesaleOrder{
		OrderNumber:   fmt.Sprintf("WO-%d", seqNo),
		SequenceNo:    seqNo,
		AccountId:     input.AccountId,
		CurrentStatus: OrderStatusPending,
		OrderDate:     orderDate,
		AdvanceAmount: input.AdvanceAmount,
		AdvanceMethod: input.AdvanceMethod,
		Notes:         input.Notes,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	lines, total, err := insertOrderLineItems(tx, OrderKindWholesale, order.ID, input.LineItems)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if input.AdvanceAmount.GreaterThan(total) {
		tx.Rollback()
		return nil, fmt.Errorf("%w: advance amount exceeds order total", utils.ErrValidation)
	}
	if err := tx.Model(&WholesaleOrder{}).Where("id = ?", order.ID).
		Update("order_total", total).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := AppendStatusHistory(tx, ctx, OrderKindWholesale, order.ID, "", OrderStatusPending, "order created"); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	order.OrderTotal = total
	order.LineItems = lines
	return &order, nil
}

func GetWholesaleOrder(ctx context.Context, id int) (*WholesaleOrder, error) {
	var order WholesaleOrder
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	lines, err := GetOrderLineItems(db.WithContext(ctx), OrderKindWholesale, order.ID)
	if err != nil {
		return nil, err
	}
	order.LineItems = lines
	return &order, nil
}

func GetDeliveredWholesaleOrders(ctx context.Context, fromDate, toDate time.Time) ([]*WholesaleOrder, error) {
	var orders []*WholesaleOrder
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("current_status = ?", OrderStatusDelivered).
		Where("delivered_at >= ? AND delivered_at <= ?", fromDate, toDate).
		Order("delivered_at").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
