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

// DirectOrder is an order placed by an individual customer. Headers and
// lines are immutable once created; only the status fields move, through
// the shared lifecycle.
type DirectOrder struct {
	ID            int             `gorm:"primary_key" json:"id"`
	OrderNumber   string          `gorm:"size:255;not null;uniqueIndex" json:"order_number"`
	SequenceNo    int64           `gorm:"not null;index" json:"sequence_no"`
	CustomerId    int             `gorm:"index;not null" json:"customer_id" binding:"required"`
	CurrentStatus OrderStatus     `gorm:"type:enum('Pending','Confirmed','Processing','Ready','Delivered','Cancelled');default:'Pending'" json:"current_status"`
	OrderDate     time.Time       `gorm:"not null" json:"order_date"`
	OrderTotal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"order_total"`
	ConfirmedAt   *time.Time      `gorm:"default:null" json:"confirmed_at"`
	ConfirmedBy   string          `gorm:"size:255;default:null" json:"confirmed_by"`
	DeliveredAt   *time.Time      `gorm:"default:null" json:"delivered_at"`
	CancelledAt   *time.Time      `gorm:"default:null" json:"cancelled_at"`
	Notes         string          `gorm:"type:text;default:null" json:"notes"`
	LineItems     []OrderLineItem `gorm:"-" json:"line_items"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDirectOrder struct {
	CustomerId int           `json:"customer_id" binding:"required"`
	OrderDate  time.Time     `json:"order_date"`
	Notes      string        `json:"notes"`
	LineItems  []NewLineItem `json:"line_items" binding:"required,min=1"`
}

func CreateDirectOrder(ctx context.Context, input *NewDirectOrder) (*DirectOrder, error) {
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return nil, fmt.Errorf("%w: customer not found", utils.ErrorRecordNotFound)
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}

	seqNo, err := utils.GetSequence[DirectOrder](ctx)
	if err != nil {
		return nil, err
	}

	order := DirectOrder{
		OrderNumber:   fmt.Sprintf("DO-%d", seqNo),
		SequenceNo:    seqNo,
		CustomerId:    input.CustomerId,
		CurrentStatus: OrderStatusPending,
		OrderDate:     orderDate,
		Notes:         input.Notes,
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	lines, total, err := insertOrderLineItems(tx, OrderKindDirect, order.ID, input.LineItems)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&DirectOrder{}).Where("id = ?", order.ID).
		Update("order_total", total).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := AppendStatusHistory(tx, ctx, OrderKindDirect, order.ID, "", OrderStatusPending, "order created"); err != nil {
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

func GetDirectOrder(ctx context.Context, id int) (*DirectOrder, error) {
	var order DirectOrder
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	lines, err := GetOrderLineItems(db.WithContext(ctx), OrderKindDirect, order.ID)
	if err != nil {
		return nil, err
	}
	order.LineItems = lines
	return &order, nil
}

// GetDeliveredDirectOrders lists delivered direct orders in a date range
// (delivery timestamp, inclusive bounds). Used by the profit report.
func GetDeliveredDirectOrders(ctx context.Context, fromDate, toDate time.Time) ([]*DirectOrder, error) {
	var orders []*DirectOrder
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
