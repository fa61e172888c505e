package models_test

import (
	"testing"

	"github.com/mmdatafocus/trading_backend/models"
)

func TestOrderStatusCanTransition(t *testing.T) {
	cases := []struct {
		from models.OrderStatus
		to   models.OrderStatus
		want bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusConfirmed, models.OrderStatusProcessing, true},
		{models.OrderStatusProcessing, models.OrderStatusReady, true},
		{models.OrderStatusReady, models.OrderStatusDelivered, true},

		{models.OrderStatusPending, models.OrderStatusProcessing, false},
		{models.OrderStatusPending, models.OrderStatusDelivered, false},
		{models.OrderStatusConfirmed, models.OrderStatusPending, false},
		{models.OrderStatusDelivered, models.OrderStatusReady, false},

		{models.OrderStatusPending, models.OrderStatusCancelled, true},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled, true},
		{models.OrderStatusReady, models.OrderStatusCancelled, true},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	for _, status := range []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusReady,
	} {
		if status.IsTerminal() {
			t.Errorf("%s must not be terminal", status)
		}
	}
	if !models.OrderStatusDelivered.IsTerminal() || !models.OrderStatusCancelled.IsTerminal() {
		t.Error("Delivered and Cancelled must be terminal")
	}
}

func TestParseLedgerAction(t *testing.T) {
	for _, valid := range []string{"added", "updated", "deducted", "merged"} {
		if _, err := models.ParseLedgerAction(valid); err != nil {
			t.Errorf("ParseLedgerAction(%q): %v", valid, err)
		}
	}
	if _, err := models.ParseLedgerAction("removed"); err == nil {
		t.Error("ParseLedgerAction must reject unknown actions")
	}
}

func TestParseOrderKind(t *testing.T) {
	if _, err := models.ParseOrderKind("Direct"); err != nil {
		t.Fatalf("ParseOrderKind(Direct): %v", err)
	}
	if _, err := models.ParseOrderKind("Wholesale"); err != nil {
		t.Fatalf("ParseOrderKind(Wholesale): %v", err)
	}
	if _, err := models.ParseOrderKind("retail"); err == nil {
		t.Error("ParseOrderKind must reject unknown kinds")
	}
}
