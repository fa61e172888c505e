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

type NewPayment struct {
	AccountKind     string          `json:"account_kind" binding:"required"`
	AccountId       int             `json:"account_id" binding:"required"`
	BillId          *int            `json:"bill_id"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Method          string          `json:"method" binding:"required"`
	ReferenceNumber string          `json:"reference_number"`
	ReceiptURL      string          `json:"receipt_url"`
	Note            string          `json:"note"`
	PaymentDate     time.Time       `json:"payment_date"`
}

type PaymentResult struct {
	Payment *models.Payment        `json:"payment"`
	Bill    *models.Bill           `json:"bill"`
	Balance *models.AccountBalance `json:"balance"`
}

// ApplyPayment records a payment against an account, optionally settling
// part of one bill. The payment row is immutable; corrections come in as
// further payments. Overpaying a bill is rejected rather than carried as
// credit.
func ApplyPayment(ctx context.Context, input *NewPayment) (*PaymentResult, error) {
	accountKind, err := models.ParseAccountKind(input.AccountKind)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", utils.ErrValidation, err.Error())
	}
	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: payment amount must be positive", utils.ErrValidation)
	}

	if accountKind == models.AccountKindWholesale {
		err = utils.ValidateResourceId[models.WholesaleAccount](ctx, input.AccountId)
	} else {
		err = utils.ValidateResourceId[models.Customer](ctx, input.AccountId)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: account not found", utils.ErrorRecordNotFound)
	}

	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now().UTC()
	}

	seqNo, err := utils.GetSequence[models.Payment](ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()

	var bill *models.Bill
	if input.BillId != nil {
		bill, err = models.LockBill(tx, *input.BillId)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if bill.AccountKind != accountKind || bill.AccountId != input.AccountId {
			tx.Rollback()
			return nil, fmt.Errorf("%w: bill %d does not belong to this account", utils.ErrValidation, bill.ID)
		}
		if input.Amount.Sub(bill.Pending).GreaterThan(utils.Epsilon) {
			tx.Rollback()
			return nil, fmt.Errorf("%w: payment of %s exceeds the bill's pending %s",
				utils.ErrValidation, input.Amount.String(), bill.Pending.String())
		}

		bill.Paid = bill.Paid.Add(input.Amount)
		bill.Pending = bill.Pending.Sub(input.Amount)
		if bill.Pending.IsNegative() {
			bill.Pending = decimal.Zero
		}
		bill.Status = models.DeriveBillStatus(bill.Paid, bill.Pending)
		if err := tx.Model(&models.Bill{}).Where("id = ?", bill.ID).
			Updates(map[string]interface{}{
				"paid":    bill.Paid,
				"pending": bill.Pending,
				"status":  bill.Status,
			}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	payment := models.Payment{
		PaymentNumber:   fmt.Sprintf("PAY-%d", seqNo),
		SequenceNo:      seqNo,
		AccountKind:     accountKind,
		AccountId:       input.AccountId,
		BillId:          input.BillId,
		Amount:          input.Amount,
		Method:          input.Method,
		ReferenceNumber: input.ReferenceNumber,
		ReceiptURL:      input.ReceiptURL,
		Note:            input.Note,
		PaymentDate:     paymentDate,
	}
	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if _, err := models.FirstOrCreateAccountBalance(tx, accountKind, input.AccountId); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := models.ApplyPaymentToAccountBalance(tx, accountKind, input.AccountId, input.Amount); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	balance, err := models.GetAccountBalance(ctx, accountKind, input.AccountId)
	if err != nil {
		return nil, err
	}
	return &PaymentResult{Payment: &payment, Bill: bill, Balance: balance}, nil
}
