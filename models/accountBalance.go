package models

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountBalance aggregates what an account has ordered, been billed and
// paid. It mutates only in the same transaction as the bill or payment that
// moves it, so the figures stay symmetric with the documents.
type AccountBalance struct {
	ID          int             `gorm:"primary_key" json:"id"`
	AccountKind AccountKind     `gorm:"type:enum('Customer','Wholesale');uniqueIndex:idx_balance_account,priority:1;not null" json:"account_kind"`
	AccountId   int             `gorm:"uniqueIndex:idx_balance_account,priority:2;not null" json:"account_id"`
	TotalOrders int             `gorm:"default:0" json:"total_orders"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	TotalPaid   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_paid"`
	Outstanding decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"outstanding"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// FirstOrCreateAccountBalance locks (FOR UPDATE) or creates the balance row
// inside the caller's transaction.
func FirstOrCreateAccountBalance(tx *gorm.DB, accountKind AccountKind, accountId int) (*AccountBalance, error) {
	balance := AccountBalance{
		AccountKind: accountKind,
		AccountId:   accountId,
	}
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("account_kind = ? AND account_id = ?", accountKind, accountId).
		FirstOrCreate(&balance)
	if result.Error != nil {
		return nil, result.Error
	}
	return &balance, nil
}

// ApplyBillToAccountBalance records a freshly created bill on the balance.
func ApplyBillToAccountBalance(tx *gorm.DB, accountKind AccountKind, accountId int, total, paid, pending decimal.Decimal) error {
	balance, err := FirstOrCreateAccountBalance(tx, accountKind, accountId)
	if err != nil {
		return err
	}
	return tx.Exec(
		"UPDATE account_balances SET total_orders = total_orders + 1, total_amount = total_amount + ?, total_paid = total_paid + ?, outstanding = outstanding + ? WHERE id = ?",
		total, paid, pending, balance.ID,
	).Error
}

// ApplyPaymentToAccountBalance moves amount from outstanding to paid. It is
// applied whether or not the payment targeted a specific bill, enabling the
// collect-against-account mode.
func ApplyPaymentToAccountBalance(tx *gorm.DB, accountKind AccountKind, accountId int, amount decimal.Decimal) error {
	balance, err := FirstOrCreateAccountBalance(tx, accountKind, accountId)
	if err != nil {
		return err
	}
	return tx.Exec(
		"UPDATE account_balances SET total_paid = total_paid + ?, outstanding = outstanding - ? WHERE id = ?",
		amount, amount, balance.ID,
	).Error
}

func GetAccountBalance(ctx context.Context, accountKind AccountKind, accountId int) (*AccountBalance, error) {
	var balance AccountBalance
	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("account_kind = ? AND account_id = ?", accountKind, accountId).
		First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &AccountBalance{
				AccountKind: accountKind,
				AccountId:   accountId,
				TotalAmount: decimal.Zero,
				TotalPaid:   decimal.Zero,
				Outstanding: decimal.Zero,
			}, nil
		}
		return nil, err
	}
	return &balance, nil
}
