package models_test

import (
	"testing"
	"time"

	"github.com/mmdatafocus/trading_backend/models"
)

func TestDeriveBillStatus(t *testing.T) {
	cases := []struct {
		name    string
		paid    string
		pending string
		want    models.BillStatus
	}{
		{"nothing paid", "0", "1000", models.BillStatusPending},
		{"partially paid", "300", "700", models.BillStatusPartial},
		{"fully paid", "1000", "0", models.BillStatusPaid},
		{"fully paid with rounding residue", "1000", "0.0000004", models.BillStatusPaid},
		{"advance covered everything", "1000", "0", models.BillStatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := models.DeriveBillStatus(d(tc.paid), d(tc.pending))
			if got != tc.want {
				t.Fatalf("DeriveBillStatus(%s, %s) = %s, want %s", tc.paid, tc.pending, got, tc.want)
			}
		})
	}
}

func TestDeriveBillStatus_PaidPlusPendingStaysTotal(t *testing.T) {
	total := d("1000")
	paid := d("0")
	pending := total

	for _, amount := range []string{"300", "450", "250"} {
		paid = paid.Add(d(amount))
		pending = pending.Sub(d(amount))
		if !paid.Add(pending).Equal(total) {
			t.Fatalf("paid+pending drifted: %s + %s != %s", paid, pending, total)
		}
	}
	if models.DeriveBillStatus(paid, pending) != models.BillStatusPaid {
		t.Fatalf("bill must be Paid after full payment, got %s", models.DeriveBillStatus(paid, pending))
	}
}

func TestBillEffectiveStatus(t *testing.T) {
	now := time.Now().UTC()
	pastDue := now.AddDate(0, 0, -1)
	futureDue := now.AddDate(0, 0, 10)

	unpaidOverdue := &models.Bill{Status: models.BillStatusPartial, DueDate: &pastDue}
	if got := unpaidOverdue.EffectiveStatus(now); got != models.BillStatusOverdue {
		t.Fatalf("unpaid bill past due: got %s, want Overdue", got)
	}

	unpaidCurrent := &models.Bill{Status: models.BillStatusPending, DueDate: &futureDue}
	if got := unpaidCurrent.EffectiveStatus(now); got != models.BillStatusPending {
		t.Fatalf("unpaid bill before due: got %s, want Pending", got)
	}

	paidOverdue := &models.Bill{Status: models.BillStatusPaid, DueDate: &pastDue}
	if got := paidOverdue.EffectiveStatus(now); got != models.BillStatusPaid {
		t.Fatalf("paid bill never turns overdue: got %s", got)
	}

	noDueDate := &models.Bill{Status: models.BillStatusPending}
	if got := noDueDate.EffectiveStatus(now); got != models.BillStatusPending {
		t.Fatalf("bill without due date: got %s, want Pending", got)
	}
}
