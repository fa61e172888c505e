package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/shopspring/decimal"
)

type StatusTransitionInput struct {
	NewStatus string           `json:"new_status" binding:"required"`
	Note      string           `json:"note"`
	Payment   *AttachedPayment `json:"payment"`
}

// AttachedPayment is a payment handed over at the moment of delivery. It
// seeds the bill's paid amount when the Delivered transition creates the
// bill.
type AttachedPayment struct {
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method"`
	ReferenceNumber string          `json:"reference_number"`
}

// TransitionOrderStatus moves an order one step along its lifecycle. The
// Delivered transition additionally settles the order's allocations against
// the inventory ledger in the same transaction, then raises the bill after
// commit. Bill creation is retryable on its own, so a billing failure does
// not undo the delivery.
func TransitionOrderStatus(ctx context.Context, orderKind models.OrderKind, orderId int, input *StatusTransitionInput) (models.OrderStatus, error) {
	newStatus, err := models.ParseOrderStatus(input.NewStatus)
	if err != nil {
		return "", fmt.Errorf("%w: %s", utils.ErrValidation, err.Error())
	}
	if newStatus == models.OrderStatusPending {
		return "", fmt.Errorf("%w: orders start at Pending, nothing transitions back to it", utils.ErrInvalidTransition)
	}

	db := config.GetDB()
	lock, err := AcquireOrderPostingLock(ctx, db, orderKind, orderId)
	if err != nil {
		return "", err
	}
	defer lock.Release(ctx)
	tx := db.WithContext(ctx).Begin()

	oldStatus, err := getOrderStatusLocked(tx, orderKind, orderId)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	if !oldStatus.CanTransition(newStatus) {
		tx.Rollback()
		return "", fmt.Errorf("%w: %s -> %s", utils.ErrInvalidTransition, oldStatus, newStatus)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"current_status": newStatus}
	switch newStatus {
	case models.OrderStatusConfirmed:
		actor, _ := utils.GetUserNameFromContext(ctx)
		updates["confirmed_at"] = now
		updates["confirmed_by"] = actor
	case models.OrderStatusDelivered:
		updates["delivered_at"] = now
	case models.OrderStatusCancelled:
		updates["cancelled_at"] = now
	}

	var updateErr error
	if orderKind == models.OrderKindWholesale {
		updateErr = tx.Model(&models.WholesaleOrder{}).Where("id = ?", orderId).Updates(updates).Error
	} else {
		updateErr = tx.Model(&models.DirectOrder{}).Where("id = ?", orderId).Updates(updates).Error
	}
	if updateErr != nil {
		tx.Rollback()
		return "", updateErr
	}

	if newStatus == models.OrderStatusDelivered {
		if err := settleDeliveryTx(tx, ctx, orderKind, orderId); err != nil {
			tx.Rollback()
			return "", err
		}
	}

	if err := models.AppendStatusHistory(tx, ctx, orderKind, orderId, oldStatus, newStatus, input.Note); err != nil {
		tx.Rollback()
		return "", err
	}

	if err := tx.Commit().Error; err != nil {
		return "", err
	}

	if newStatus == models.OrderStatusDelivered {
		// still holding the order posting lock; GET_LOCK is not reentrant,
		// so going through the public CreateOrGetBill would block on itself
		if _, err := createOrGetBillLocked(ctx, db, orderKind, orderId, input.Payment); err != nil {
			logger := config.GetLogger()
			config.LogError(logger, "orderStatusWorkflow", "TransitionOrderStatus", "bill creation after delivery",
				map[string]interface{}{"orderKind": orderKind, "orderId": orderId}, err)
		}
	}
	return newStatus, nil
}
