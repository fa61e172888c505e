package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func referenceTypeForOrder(orderKind models.OrderKind) string {
	if orderKind == models.OrderKindWholesale {
		return "WO"
	}
	return "DO"
}

// SettleDelivery consumes an order's batch allocations into deduction
// ledger entries, valued at each batch's average cost at the moment of
// settlement. Normally this runs inside the Delivered transition; the
// public wrapper exists for re-running a settlement that was interrupted
// mid-flight, and only accepts delivered orders so stock is never deducted
// for an order that could still be cancelled.
func SettleDelivery(ctx context.Context, orderKind models.OrderKind, orderId int) error {
	db := config.GetDB()
	lock, err := AcquireOrderPostingLock(ctx, db, orderKind, orderId)
	if err != nil {
		return err
	}
	defer lock.Release(ctx)
	tx := db.WithContext(ctx).Begin()

	status, err := getOrderStatusLocked(tx, orderKind, orderId)
	if err != nil {
		tx.Rollback()
		return err
	}
	if status != models.OrderStatusDelivered {
		tx.Rollback()
		return fmt.Errorf("%w: order is %s, settlement follows delivery", utils.ErrInvalidTransition, status)
	}
	if err := settleDeliveryTx(tx, ctx, orderKind, orderId); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// settleDeliveryTx does the actual posting within the caller's transaction.
// The caller holds the order posting lock. A second invocation for the same
// order finds the earlier deduction entries and posts nothing.
func settleDeliveryTx(tx *gorm.DB, ctx context.Context, orderKind models.OrderKind, orderId int) error {
	logger := config.GetLogger()
	referenceType := referenceTypeForOrder(orderKind)

	settled, err := models.HasDeductionEntries(tx, referenceType, orderId)
	if err != nil {
		return err
	}
	if settled {
		config.LogWarn(logger, "settlementWorkflow", "settleDeliveryTx", "duplicate settlement",
			map[string]interface{}{"orderKind": orderKind, "orderId": orderId},
			"order already settled, skipping deduction posting")
		return nil
	}

	allocations, err := models.GetAllocationsForOrder(tx, orderKind, orderId)
	if err != nil {
		return err
	}
	if len(allocations) == 0 {
		config.LogWarn(logger, "settlementWorkflow", "settleDeliveryTx", "no allocations",
			map[string]interface{}{"orderKind": orderKind, "orderId": orderId},
			"order delivered without batch allocations, no stock deducted")
		return nil
	}

	for i := range allocations {
		allocation := allocations[i]

		// Deductions are costed at the allocated batch's current average
		// (live ledger value over live ledger quantity), so each batch
		// leaves at its own cost basis. The product snapshot covers the
		// fallback when the batch rows are gone.
		avgCost := decimal.Zero
		batchQty, batchValue, err := models.GetBatchTotals(tx, allocation.ProductId, allocation.BatchNumber)
		if err != nil {
			return err
		}
		if batchQty.GreaterThan(utils.Epsilon) {
			avgCost = batchValue.Div(batchQty)
		} else {
			valuation, err := models.LockStockValuation(tx, allocation.ProductId)
			if err != nil {
				if !errors.Is(err, utils.ErrorRecordNotFound) {
					return err
				}
				// allocation against an empty batch and a product with no
				// valuation snapshot; deduct at zero cost and surface it
				// rather than block the delivery
				config.LogWarn(logger, "settlementWorkflow", "settleDeliveryTx", "consistency warning",
					map[string]interface{}{"productId": allocation.ProductId, "batch": allocation.BatchNumber, "orderId": orderId},
					"allocated batch is empty and product has no valuation snapshot")
			} else {
				avgCost = valuation.AvgCost
			}
		}

		qty := allocation.Qty.Abs().Neg()
		value := allocation.Qty.Abs().Mul(avgCost).Neg()

		entry := models.LedgerEntry{
			ProductId:     allocation.ProductId,
			BatchNumber:   allocation.BatchNumber,
			Action:        models.LedgerActionDeducted,
			Qty:           qty,
			Value:         value,
			Unit:          allocation.Unit,
			Note:          fmt.Sprintf("delivery of order %d", orderId),
			ReferenceType: referenceType,
			ReferenceId:   orderId,
		}
		if _, err := models.AppendLedgerEntry(tx, ctx, &entry); err != nil {
			return err
		}
		if _, err := models.ApplyEntryToValuation(tx, allocation.ProductId, qty, value); err != nil {
			return err
		}
	}
	return nil
}
