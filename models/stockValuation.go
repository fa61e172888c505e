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

// StockValuation is the per-product projection of the ledger: current
// quantity, carrying value and moving average cost. It is updated
// incrementally on every ledger write and must agree with a full rebuild
// from the non-merged entries.
type StockValuation struct {
	ID        int             `gorm:"primary_key" json:"id"`
	ProductId int             `gorm:"uniqueIndex;not null" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Value     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"value"`
	AvgCost   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"avg_cost"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ValuationFigures is the pure value-type view of a snapshot row.
type ValuationFigures struct {
	Quantity decimal.Decimal
	Value    decimal.Decimal
	AvgCost  decimal.Decimal
}

// ApplyEntryFigures folds one signed ledger movement into the figures.
// This is the single place snapshot arithmetic lives; both the incremental
// path and the full rebuild go through it.
//
// Quantity and value are floored at zero so a validated deduction can never
// drive stock negative, and a zero quantity resets average cost to zero
// instead of carrying a stale ratio forward.
func ApplyEntryFigures(figures ValuationFigures, qty, value decimal.Decimal) ValuationFigures {
	quantity := figures.Quantity.Add(qty)
	if quantity.IsNegative() {
		quantity = decimal.Zero
	}
	carrying := figures.Value.Add(value)
	if carrying.IsNegative() {
		carrying = decimal.Zero
	}

	avgCost := decimal.Zero
	if quantity.IsPositive() {
		avgCost = carrying.Div(quantity)
	} else {
		// no stock left: drop the residual value as well
		carrying = decimal.Zero
	}

	return ValuationFigures{Quantity: quantity, Value: carrying, AvgCost: avgCost}
}

// RebuildFigures recomputes the figures from scratch over entries in ledger
// order, skipping merged rows.
func RebuildFigures(entries []*LedgerEntry) ValuationFigures {
	figures := ValuationFigures{Quantity: decimal.Zero, Value: decimal.Zero, AvgCost: decimal.Zero}
	for _, entry := range entries {
		if entry.Merged {
			continue
		}
		figures = ApplyEntryFigures(figures, entry.Qty, entry.Value)
	}
	return figures
}

// FirstOrCreateStockValuation locks (FOR UPDATE) or creates the snapshot row
// for a product inside the caller's transaction.
func FirstOrCreateStockValuation(tx *gorm.DB, productId int) (*StockValuation, error) {
	valuation := StockValuation{
		ProductId: productId,
	}
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productId).
		FirstOrCreate(&valuation)
	if result.Error != nil {
		return nil, result.Error
	}
	return &valuation, nil
}

// LockStockValuation locks the snapshot row without creating it. Returns
// ErrorRecordNotFound when the product has no valuation row yet.
func LockStockValuation(tx *gorm.DB, productId int) (*StockValuation, error) {
	var valuation StockValuation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productId).
		First(&valuation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &valuation, nil
}

// ApplyEntryToValuation folds one movement into the locked snapshot row.
func ApplyEntryToValuation(tx *gorm.DB, productId int, qty, value decimal.Decimal) (*StockValuation, error) {
	valuation, err := FirstOrCreateStockValuation(tx, productId)
	if err != nil {
		return nil, err
	}

	figures := ApplyEntryFigures(
		ValuationFigures{Quantity: valuation.Quantity, Value: valuation.Value, AvgCost: valuation.AvgCost},
		qty, value,
	)
	if err := tx.Model(&StockValuation{}).
		Where("id = ?", valuation.ID).
		Updates(map[string]interface{}{
			"quantity": figures.Quantity,
			"value":    figures.Value,
			"avg_cost": figures.AvgCost,
		}).Error; err != nil {
		return nil, err
	}
	valuation.Quantity = figures.Quantity
	valuation.Value = figures.Value
	valuation.AvgCost = figures.AvgCost
	return valuation, nil
}

func GetValuation(ctx context.Context, productId int) (*StockValuation, error) {
	var valuation StockValuation
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("product_id = ?", productId).First(&valuation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// no movements yet; report zeros rather than failing
			return &StockValuation{ProductId: productId,
				Quantity: decimal.Zero, Value: decimal.Zero, AvgCost: decimal.Zero}, nil
		}
		return nil, err
	}
	return &valuation, nil
}

func GetAllValuations(ctx context.Context) ([]*StockValuation, error) {
	var valuations []*StockValuation
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("product_id").Find(&valuations).Error; err != nil {
		return nil, err
	}
	return valuations, nil
}
