package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerEntry is one immutable inventory movement for a (product, batch).
// Corrections are compensating entries; rows are never updated or deleted.
// The single exception is the Merged flag, which a batch merge sets on the
// rows it collapsed so quantity scans skip them while audit history remains.
type LedgerEntry struct {
	ID            string          `gorm:"size:36;primary_key" json:"id"` // uuid
	ProductId     int             `gorm:"index:idx_ledger_product_batch,priority:1;not null" json:"product_id"`
	BatchNumber   string          `gorm:"size:100;index:idx_ledger_product_batch,priority:2;not null" json:"batch_number"`
	Action        LedgerAction    `gorm:"type:enum('added','updated','deducted','merged');not null" json:"action"`
	Qty           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`   // signed
	Value         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"value"` // signed
	Unit          string          `gorm:"size:20" json:"unit"`
	Note          string          `gorm:"type:text;default:null" json:"note"`
	ReferenceType string          `gorm:"size:20;index:idx_ledger_reference,priority:1" json:"reference_type"` // DO, WO, MG, ADJ
	ReferenceId   int             `gorm:"index:idx_ledger_reference,priority:2" json:"reference_id"`
	Merged        bool            `gorm:"default:false;index" json:"merged"`
	EntryDate     time.Time       `gorm:"index;not null" json:"entry_date"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	CorrelationId string          `gorm:"size:64;index" json:"correlation_id"`
}

// AppendLedgerEntry inserts one movement row inside the caller's transaction.
// The valuation snapshot is maintained by the caller (see ApplyEntry) so the
// two writes always share a transaction.
func AppendLedgerEntry(tx *gorm.DB, ctx context.Context, entry *LedgerEntry) (string, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.EntryDate.IsZero() {
		entry.EntryDate = time.Now().UTC()
	}
	if entry.CorrelationId == "" {
		if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
			entry.CorrelationId = cid
		}
	}
	if err := tx.Create(entry).Error; err != nil {
		return "", err
	}
	return entry.ID, nil
}

// GetBatchAvailability sums the non-merged signed quantities for one batch.
// With forUpdate the underlying rows are locked so a concurrent allocation
// cannot read the same availability.
func GetBatchAvailability(tx *gorm.DB, productId int, batchNumber string, forUpdate bool) (decimal.Decimal, error) {
	dbCtx := tx.
		Where("product_id = ? AND batch_number = ? AND merged = ?", productId, batchNumber, false)
	if forUpdate {
		dbCtx = dbCtx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var entries []LedgerEntry
	if err := dbCtx.Find(&entries).Error; err != nil {
		return decimal.Zero, err
	}
	available := decimal.Zero
	for _, entry := range entries {
		available = available.Add(entry.Qty)
	}
	return available, nil
}

// GetBatchTotals returns summed qty and value for one batch (non-merged rows).
func GetBatchTotals(tx *gorm.DB, productId int, batchNumber string) (decimal.Decimal, decimal.Decimal, error) {
	var entries []LedgerEntry
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND batch_number = ? AND merged = ?", productId, batchNumber, false).
		Find(&entries).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	qty := decimal.Zero
	value := decimal.Zero
	for _, entry := range entries {
		qty = qty.Add(entry.Qty)
		value = value.Add(entry.Value)
	}
	return qty, value, nil
}

func GetLedgerEntriesForProduct(ctx context.Context, productId int) ([]*LedgerEntry, error) {
	var entries []*LedgerEntry
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("product_id = ?", productId).
		Order("entry_date, created_at, id").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// HasDeductionEntries reports whether settlement already wrote deduction rows
// for the given order reference. Callers use it as the effectively-once guard
// inside the posting transaction.
func HasDeductionEntries(tx *gorm.DB, referenceType string, referenceId int) (bool, error) {
	var count int64
	if err := tx.Model(&LedgerEntry{}).
		Where("reference_type = ? AND reference_id = ? AND action = ?", referenceType, referenceId, LedgerActionDeducted).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkBatchEntriesMerged flags every live row of a batch so later scans
// exclude it. Audit history stays intact.
func MarkBatchEntriesMerged(tx *gorm.DB, productId int, batchNumber string) error {
	return tx.Model(&LedgerEntry{}).
		Where("product_id = ? AND batch_number = ? AND merged = ?", productId, batchNumber, false).
		Update("merged", true).Error
}
