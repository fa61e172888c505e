package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// billTermDays is the net payment term applied to every bill.
const billTermDays = 30

type billableOrder struct {
	accountKind   models.AccountKind
	accountId     int
	status        models.OrderStatus
	orderTotal    decimal.Decimal
	advanceAmount decimal.Decimal
	advanceMethod string
}

func lockBillableOrder(tx *gorm.DB, orderKind models.OrderKind, orderId int) (*billableOrder, error) {
	locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	if orderKind == models.OrderKindWholesale {
		var order models.WholesaleOrder
		if err := locked.First(&order, orderId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, utils.ErrorRecordNotFound
			}
			return nil, err
		}
		return &billableOrder{
			accountKind:   models.AccountKindWholesale,
			accountId:     order.AccountId,
			status:        order.CurrentStatus,
			orderTotal:    order.OrderTotal,
			advanceAmount: order.AdvanceAmount,
			advanceMethod: order.AdvanceMethod,
		}, nil
	}
	var order models.DirectOrder
	if err := locked.First(&order, orderId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &billableOrder{
		accountKind: models.AccountKindCustomer,
		accountId:   order.CustomerId,
		status:      order.CurrentStatus,
		orderTotal:  order.OrderTotal,
	}, nil
}

func isDuplicateKeyError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// duplicateKeyOnIndex reports whether err is a MySQL duplicate-key error on
// the named index. MySQL puts the index name in the 1062 message, so this is
// how the (order_kind, order_id) race is told apart from a bill_number
// sequence collision.
func duplicateKeyOnIndex(err error, index string) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 &&
		strings.Contains(mysqlErr.Message, index)
}

// CreateOrGetBill raises the bill for a delivered order, or returns the
// existing one. A wholesale advance (or a payment collected on delivery)
// is recorded as the bill's opening paid amount together with its payment
// row. The unique (order_kind, order_id) index turns the lost race between
// two concurrent creators into a refetch.
func CreateOrGetBill(ctx context.Context, orderKind models.OrderKind, orderId int, attached *AttachedPayment) (*models.Bill, error) {
	db := config.GetDB()
	lock, err := AcquireOrderPostingLock(ctx, db, orderKind, orderId)
	if err != nil {
		return nil, err
	}
	defer lock.Release(ctx)
	return createOrGetBillLocked(ctx, db, orderKind, orderId, attached)
}

// createOrGetBillLocked is the bill-raising body. The caller holds the
// order posting lock; GET_LOCK is not reentrant, so the Delivered
// transition calls this directly instead of the public wrapper.
func createOrGetBillLocked(ctx context.Context, db *gorm.DB, orderKind models.OrderKind, orderId int, attached *AttachedPayment) (*models.Bill, error) {
	logger := config.GetLogger()
	tx := db.WithContext(ctx).Begin()

	order, err := lockBillableOrder(tx, orderKind, orderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if existing, err := models.LockBillByOrder(tx, orderKind, orderId); err == nil {
		tx.Rollback()
		config.LogWarn(logger, "billingWorkflow", "CreateOrGetBill", "duplicate bill request",
			map[string]interface{}{"orderKind": orderKind, "orderId": orderId, "billId": existing.ID},
			utils.ErrDuplicateOperation.Error())
		return existing, nil
	} else if !errors.Is(err, utils.ErrorRecordNotFound) {
		tx.Rollback()
		return nil, err
	}

	if order.status != models.OrderStatusDelivered {
		tx.Rollback()
		return nil, fmt.Errorf("%w: order is %s, bills are raised on delivery", utils.ErrValidation, order.status)
	}

	paid := decimal.Zero
	paymentMethod := ""
	paymentNote := ""
	if order.advanceAmount.IsPositive() {
		paid = order.advanceAmount
		paymentMethod = order.advanceMethod
		paymentNote = "advance taken at order time"
	} else if attached != nil && attached.Amount.IsPositive() {
		paid = attached.Amount
		paymentMethod = attached.Method
		paymentNote = "collected on delivery"
	}
	if paymentMethod == "" {
		paymentMethod = "Cash"
	}

	pending := order.orderTotal.Sub(paid)
	if pending.IsNegative() {
		pending = decimal.Zero
	}

	now := time.Now().UTC()
	dueDate := now.AddDate(0, 0, billTermDays)
	var bill models.Bill
	for attempt := 0; ; attempt++ {
		seqNo, err := utils.GetSequence[models.Bill](ctx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		bill = models.Bill{
			BillNumber:  fmt.Sprintf("BILL-%d", seqNo),
			SequenceNo:  seqNo,
			OrderKind:   orderKind,
			OrderId:     orderId,
			AccountKind: order.accountKind,
			AccountId:   order.accountId,
			Subtotal:    order.orderTotal,
			Total:       order.orderTotal,
			Paid:        paid,
			Pending:     pending,
			Status:      models.DeriveBillStatus(paid, pending),
			BillDate:    now,
			DueDate:     &dueDate,
		}
		err = tx.Create(&bill).Error
		if err == nil {
			break
		}
		if duplicateKeyOnIndex(err, "idx_bill_order") {
			// lost the race; the winner's bill is the bill
			tx.Rollback()
			return models.GetBillByOrder(ctx, orderKind, orderId)
		}
		if isDuplicateKeyError(err) && attempt < 2 {
			// another instance took this bill number; draw a fresh sequence
			config.LogWarn(logger, "billingWorkflow", "createOrGetBillLocked", "bill number collision",
				map[string]interface{}{"billNumber": bill.BillNumber}, err.Error())
			continue
		}
		tx.Rollback()
		return nil, err
	}

	if paid.IsPositive() {
		paymentSeq, err := utils.GetSequence[models.Payment](ctx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		var reference string
		if attached != nil {
			reference = attached.ReferenceNumber
		}
		payment := models.Payment{
			PaymentNumber:   fmt.Sprintf("PAY-%d", paymentSeq),
			SequenceNo:      paymentSeq,
			AccountKind:     order.accountKind,
			AccountId:       order.accountId,
			BillId:          &bill.ID,
			Amount:          paid,
			Method:          paymentMethod,
			ReferenceNumber: reference,
			Note:            paymentNote,
			PaymentDate:     now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if _, err := models.FirstOrCreateAccountBalance(tx, order.accountKind, order.accountId); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := models.ApplyBillToAccountBalance(tx, order.accountKind, order.accountId, bill.Total, paid, pending); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &bill, nil
}
