package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/utils"
	"gorm.io/gorm"
)

// OrderStatusHistory is the append-only transition log shared by both order
// kinds.
type OrderStatusHistory struct {
	ID        int         `gorm:"primary_key" json:"id"`
	OrderKind OrderKind   `gorm:"type:enum('Direct','Wholesale');index:idx_history_order,priority:1;not null" json:"order_kind"`
	OrderId   int         `gorm:"index:idx_history_order,priority:2;not null" json:"order_id"`
	OldStatus OrderStatus `gorm:"size:20" json:"old_status"`
	NewStatus OrderStatus `gorm:"size:20;not null" json:"new_status"`
	Actor     string      `gorm:"size:255;default:null" json:"actor"`
	Note      string      `gorm:"type:text;default:null" json:"note"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

// AppendStatusHistory writes one transition row inside the caller's
// transaction. Actor falls back to the user name carried in ctx.
func AppendStatusHistory(tx *gorm.DB, ctx context.Context, orderKind OrderKind, orderId int, oldStatus, newStatus OrderStatus, note string) error {
	actor, _ := utils.GetUserNameFromContext(ctx)
	history := OrderStatusHistory{
		OrderKind: orderKind,
		OrderId:   orderId,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Actor:     actor,
		Note:      note,
	}
	return tx.Create(&history).Error
}

func GetStatusHistory(ctx context.Context, orderKind OrderKind, orderId int) ([]*OrderStatusHistory, error) {
	var histories []*OrderStatusHistory
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("order_kind = ? AND order_id = ?", orderKind, orderId).
		Order("id").
		Find(&histories).Error; err != nil {
		return nil, err
	}
	return histories, nil
}
