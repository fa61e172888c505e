package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NewInventoryMovement struct {
	ProductId   int             `json:"product_id" binding:"required"`
	BatchNumber string          `json:"batch_number" binding:"required"`
	Action      string          `json:"action" binding:"required"`
	Qty         decimal.Decimal `json:"qty" binding:"required"`
	Value       decimal.Decimal `json:"value"`
	Unit        string          `json:"unit"`
	Note        string          `json:"note"`
}

// RecordInventoryMovement appends one ledger entry and folds it into the
// valuation snapshot in a single transaction.
//
// Deductions are stored with negative signs regardless of the sign the
// caller passed; intake actions keep the caller's sign so compensating
// corrections stay expressible through "updated".
func RecordInventoryMovement(ctx context.Context, input *NewInventoryMovement) (string, error) {
	action, err := models.ParseLedgerAction(input.Action)
	if err != nil {
		return "", fmt.Errorf("%w: %s", utils.ErrValidation, err.Error())
	}
	if action == models.LedgerActionMerged {
		return "", fmt.Errorf("%w: merged entries are written by batch merges only", utils.ErrValidation)
	}
	if input.Qty.IsZero() {
		return "", fmt.Errorf("%w: quantity must not be zero", utils.ErrValidation)
	}
	if err := utils.ValidateResourceId[models.Product](ctx, input.ProductId); err != nil {
		return "", fmt.Errorf("%w: product not found", utils.ErrorRecordNotFound)
	}

	qty := input.Qty
	value := input.Value
	if action == models.LedgerActionDeducted {
		qty = qty.Abs().Neg()
		value = value.Abs().Neg()
	}

	db := config.GetDB()
	lock, err := AcquireProductPostingLock(ctx, db, input.ProductId)
	if err != nil {
		return "", err
	}
	defer lock.Release(ctx)
	tx := db.WithContext(ctx).Begin()

	entry := models.LedgerEntry{
		ProductId:     input.ProductId,
		BatchNumber:   input.BatchNumber,
		Action:        action,
		Qty:           qty,
		Value:         value,
		Unit:          input.Unit,
		Note:          input.Note,
		ReferenceType: "ADJ",
	}
	entryId, err := models.AppendLedgerEntry(tx, ctx, &entry)
	if err != nil {
		tx.Rollback()
		return "", err
	}

	if _, err := models.ApplyEntryToValuation(tx, input.ProductId, qty, value); err != nil {
		tx.Rollback()
		return "", err
	}

	if err := tx.Commit().Error; err != nil {
		return "", err
	}
	return entryId, nil
}

// MergeBatches collapses several batches of one product into a single
// synthetic batch: one "added" entry carries the summed quantity and value,
// and each original batch gets a compensating "merged" entry plus the merged
// flag on its rows. Product totals are preserved exactly, so the valuation
// snapshot is untouched.
func MergeBatches(ctx context.Context, productId int, batchNumbers []string, newBatchName string) (string, error) {
	batchNumbers = utils.UniqueSlice(batchNumbers)
	if len(batchNumbers) < 2 {
		return "", fmt.Errorf("%w: merging requires at least two batches", utils.ErrValidation)
	}
	if err := utils.ValidateResourceId[models.Product](ctx, productId); err != nil {
		return "", fmt.Errorf("%w: product not found", utils.ErrorRecordNotFound)
	}
	if newBatchName == "" {
		newBatchName = fmt.Sprintf("MERGED-%d", time.Now().Unix())
	}

	db := config.GetDB()
	lock, err := AcquireProductPostingLock(ctx, db, productId)
	if err != nil {
		return "", err
	}
	defer lock.Release(ctx)
	tx := db.WithContext(ctx).Begin()

	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, batch := range batchNumbers {
		qty, value, err := models.GetBatchTotals(tx, productId, batch)
		if err != nil {
			tx.Rollback()
			return "", err
		}
		if qty.IsZero() && value.IsZero() {
			tx.Rollback()
			return "", fmt.Errorf("%w: batch %q has no stock to merge", utils.ErrValidation, batch)
		}

		// flag the batch's live rows first so the compensating entry can be
		// inserted already flagged
		if err := models.MarkBatchEntriesMerged(tx, productId, batch); err != nil {
			tx.Rollback()
			return "", err
		}
		compensating := models.LedgerEntry{
			ProductId:     productId,
			BatchNumber:   batch,
			Action:        models.LedgerActionMerged,
			Qty:           qty.Neg(),
			Value:         value.Neg(),
			Note:          fmt.Sprintf("merged into %s", newBatchName),
			ReferenceType: "MG",
			Merged:        true,
		}
		if _, err := models.AppendLedgerEntry(tx, ctx, &compensating); err != nil {
			tx.Rollback()
			return "", err
		}

		totalQty = totalQty.Add(qty)
		totalValue = totalValue.Add(value)
	}

	synthetic := models.LedgerEntry{
		ProductId:     productId,
		BatchNumber:   newBatchName,
		Action:        models.LedgerActionAdded,
		Qty:           totalQty,
		Value:         totalValue,
		Note:          fmt.Sprintf("merge of %d batches", len(batchNumbers)),
		ReferenceType: "MG",
	}
	if _, err := models.AppendLedgerEntry(tx, ctx, &synthetic); err != nil {
		tx.Rollback()
		return "", err
	}

	if err := tx.Commit().Error; err != nil {
		return "", err
	}
	return newBatchName, nil
}

// RebuildValuation recomputes snapshot rows from the non-merged ledger
// entries. With productId <= 0 every product with ledger history is rebuilt.
// The result must agree with the incrementally maintained snapshot; disagreement
// means a bug in one of the two paths, not data to silently accept.
func RebuildValuation(ctx context.Context, productId int) error {
	db := config.GetDB()

	productIds := []int{}
	if productId > 0 {
		productIds = append(productIds, productId)
	} else {
		if err := db.WithContext(ctx).Model(&models.LedgerEntry{}).
			Distinct("product_id").
			Order("product_id").
			Pluck("product_id", &productIds).Error; err != nil {
			return err
		}
	}

	for _, pid := range productIds {
		if err := rebuildProductValuation(ctx, db, pid); err != nil {
			return err
		}
	}
	return nil
}

func rebuildProductValuation(ctx context.Context, db *gorm.DB, pid int) error {
	lock, err := AcquireProductPostingLock(ctx, db, pid)
	if err != nil {
		return err
	}
	defer lock.Release(ctx)

	tx := db.WithContext(ctx).Begin()
	var entries []*models.LedgerEntry
	if err := tx.
		Where("product_id = ?", pid).
		Order("entry_date, created_at, id").
		Find(&entries).Error; err != nil {
		tx.Rollback()
		return err
	}
	figures := models.RebuildFigures(entries)

	valuation, err := models.FirstOrCreateStockValuation(tx, pid)
	if err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Model(&models.StockValuation{}).
		Where("id = ?", valuation.ID).
		Updates(map[string]interface{}{
			"quantity": figures.Quantity,
			"value":    figures.Value,
			"avg_cost": figures.AvgCost,
		}).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
