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
	"gorm.io/gorm/clause"
)

// getOrderStatusLocked reads the order header's current status under a row
// lock so a concurrent transition cannot slip between the check and the
// writes that follow.
func getOrderStatusLocked(tx *gorm.DB, orderKind models.OrderKind, orderId int) (models.OrderStatus, error) {
	locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	switch orderKind {
	case models.OrderKindDirect:
		var order models.DirectOrder
		if err := locked.First(&order, orderId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", utils.ErrorRecordNotFound
			}
			return "", err
		}
		return order.CurrentStatus, nil
	case models.OrderKindWholesale:
		var order models.WholesaleOrder
		if err := locked.First(&order, orderId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", utils.ErrorRecordNotFound
			}
			return "", err
		}
		return order.CurrentStatus, nil
	default:
		return "", fmt.Errorf("%w: unknown order kind %q", utils.ErrValidation, orderKind)
	}
}

type batchKey struct {
	productId   int
	batchNumber string
}

// SaveAllocations replaces the batch allocation set of an order. The whole
// request is checked against ledger availability and line quantities before
// any row is written; one failing allocation rejects the request and leaves
// the previous set in place.
func SaveAllocations(ctx context.Context, orderKind models.OrderKind, orderId int, inputs []models.NewAllocation) ([]models.BatchAllocation, error) {
	for i := range inputs {
		if inputs[i].Qty.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("%w: allocation quantity must be positive", utils.ErrValidation)
		}
		if inputs[i].BatchNumber == "" {
			return nil, fmt.Errorf("%w: batch number is required", utils.ErrValidation)
		}
		if err := utils.ValidateResourceId[models.Product](ctx, inputs[i].ProductId); err != nil {
			return nil, fmt.Errorf("%w: product %d not found", utils.ErrorRecordNotFound, inputs[i].ProductId)
		}
	}

	db := config.GetDB()
	lock, err := AcquireOrderPostingLock(ctx, db, orderKind, orderId)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)
	tx := db.WithContext(ctx).Begin()

	status, err := getOrderStatusLocked(tx, orderKind, orderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if status == models.OrderStatusDelivered || status.IsTerminal() {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order is %s, allocations are frozen", utils.ErrValidation, status)
	}

	lines, err := models.GetOrderLineItems(tx, orderKind, orderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	lineById := make(map[int]*models.OrderLineItem, len(lines))
	for i := range lines {
		lineById[lines[i].ID] = &lines[i]
	}

	// the previous set is replaced wholesale, so availability is judged
	// against the ledger alone
	if err := models.DeleteAllocationsForOrder(tx, orderKind, orderId); err != nil {
		tx.Rollback()
		return nil, err
	}

	requested := make(map[batchKey]decimal.Decimal)
	perLine := make(map[int]decimal.Decimal)
	for i := range inputs {
		key := batchKey{inputs[i].ProductId, inputs[i].BatchNumber}
		requested[key] = requested[key].Add(inputs[i].Qty)

		if inputs[i].LineItemId == nil {
			continue
		}
		lineId := *inputs[i].LineItemId
		line, ok := lineById[lineId]
		if !ok {
			tx.Rollback()
			return nil, fmt.Errorf("%w: line item %d does not belong to this order", utils.ErrValidation, lineId)
		}
		if line.ItemType != models.LineItemTypeSimple {
			tx.Rollback()
			return nil, fmt.Errorf("%w: line item %d is composite, allocate its components instead", utils.ErrValidation, lineId)
		}
		if line.ProductId != inputs[i].ProductId {
			tx.Rollback()
			return nil, fmt.Errorf("%w: allocation product does not match line item %d", utils.ErrValidation, lineId)
		}
		perLine[lineId] = perLine[lineId].Add(inputs[i].Qty)
	}

	for key, qty := range requested {
		available, err := models.GetBatchAvailability(tx, key.productId, key.batchNumber, true)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if qty.Sub(available).GreaterThan(utils.Epsilon) {
			tx.Rollback()
			return nil, fmt.Errorf("%w: batch %q of product %d has %s available, %s requested",
				utils.ErrInsufficientStock, key.batchNumber, key.productId, available.String(), qty.String())
		}
	}
	for lineId, qty := range perLine {
		if qty.Sub(lineById[lineId].Qty).GreaterThan(utils.Epsilon) {
			tx.Rollback()
			return nil, fmt.Errorf("%w: allocations for line item %d exceed its ordered quantity", utils.ErrValidation, lineId)
		}
	}

	allocations := make([]models.BatchAllocation, 0, len(inputs))
	for i := range inputs {
		allocation := models.BatchAllocation{
			OrderKind:   orderKind,
			OrderId:     orderId,
			LineItemId:  inputs[i].LineItemId,
			ProductId:   inputs[i].ProductId,
			BatchNumber: inputs[i].BatchNumber,
			Qty:         inputs[i].Qty,
			Unit:        inputs[i].Unit,
		}
		if err := tx.Create(&allocation).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		allocations = append(allocations, allocation)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return allocations, nil
}
