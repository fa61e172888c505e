package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BatchAllocation reserves a (product, batch, qty) for an order ahead of
// delivery. The set is replaceable per order (delete-then-insert); rows are
// consumed into deduction ledger entries at settlement.
type BatchAllocation struct {
	ID          int             `gorm:"primary_key" json:"id"`
	OrderKind   OrderKind       `gorm:"type:enum('Direct','Wholesale');index:idx_alloc_order,priority:1;not null" json:"order_kind"`
	OrderId     int             `gorm:"index:idx_alloc_order,priority:2;not null" json:"order_id"`
	LineItemId  *int            `gorm:"index;default:null" json:"line_item_id"` // nil for composite components
	ProductId   int             `gorm:"index;not null" json:"product_id"`
	BatchNumber string          `gorm:"size:100;not null" json:"batch_number"`
	Qty         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	Unit        string          `gorm:"size:20" json:"unit"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewAllocation struct {
	ProductId   int             `json:"product_id" binding:"required"`
	BatchNumber string          `json:"batch_number" binding:"required"`
	Qty         decimal.Decimal `json:"qty" binding:"required"`
	Unit        string          `json:"unit"`
	LineItemId  *int            `json:"line_item_id"`
}

func GetAllocationsForOrder(tx *gorm.DB, orderKind OrderKind, orderId int) ([]BatchAllocation, error) {
	var allocations []BatchAllocation
	if err := tx.
		Where("order_kind = ? AND order_id = ?", orderKind, orderId).
		Order("id").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

func DeleteAllocationsForOrder(tx *gorm.DB, orderKind OrderKind, orderId int) error {
	return tx.
		Where("order_kind = ? AND order_id = ?", orderKind, orderId).
		Delete(&BatchAllocation{}).Error
}

func ListAllocations(ctx context.Context, orderKind OrderKind, orderId int) ([]BatchAllocation, error) {
	db := config.GetDB()
	return GetAllocationsForOrder(db.WithContext(ctx), orderKind, orderId)
}
