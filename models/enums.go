package models

import (
	"errors"
)

// LedgerAction classifies an inventory movement. Entries are append-only;
// "merged" marks the compensating rows written by a batch merge so quantity
// scans can exclude them while keeping the audit trail.
type LedgerAction string

const (
	LedgerActionAdded    LedgerAction = "added"
	LedgerActionUpdated  LedgerAction = "updated"
	LedgerActionDeducted LedgerAction = "deducted"
	LedgerActionMerged   LedgerAction = "merged"
)

func ParseLedgerAction(s string) (LedgerAction, error) {
	actions := map[string]LedgerAction{
		"added":    LedgerActionAdded,
		"updated":  LedgerActionUpdated,
		"deducted": LedgerActionDeducted,
		"merged":   LedgerActionMerged,
	}
	action, ok := actions[s]
	if !ok {
		return "", errors.New("invalid ledger action")
	}
	return action, nil
}

type OrderKind string

const (
	OrderKindDirect    OrderKind = "Direct"
	OrderKindWholesale OrderKind = "Wholesale"
)

func ParseOrderKind(s string) (OrderKind, error) {
	kinds := map[string]OrderKind{
		"Direct":    OrderKindDirect,
		"Wholesale": OrderKindWholesale,
	}
	kind, ok := kinds[s]
	if !ok {
		return "", errors.New("invalid order kind")
	}
	return kind, nil
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusConfirmed  OrderStatus = "Confirmed"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusReady      OrderStatus = "Ready"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	statuses := map[string]OrderStatus{
		"Pending":    OrderStatusPending,
		"Confirmed":  OrderStatusConfirmed,
		"Processing": OrderStatusProcessing,
		"Ready":      OrderStatusReady,
		"Delivered":  OrderStatusDelivered,
		"Cancelled":  OrderStatusCancelled,
	}
	status, ok := statuses[s]
	if !ok {
		return "", errors.New("invalid order status")
	}
	return status, nil
}

// IsTerminal reports whether the status can never be left again.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition encodes the shared order lifecycle:
// Pending -> Confirmed -> Processing -> Ready -> Delivered, with Cancelled
// reachable from any non-terminal state.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	forward := map[OrderStatus]OrderStatus{
		OrderStatusPending:    OrderStatusConfirmed,
		OrderStatusConfirmed:  OrderStatusProcessing,
		OrderStatusProcessing: OrderStatusReady,
		OrderStatusReady:      OrderStatusDelivered,
	}
	return forward[s] == next
}

type BillStatus string

const (
	BillStatusPending BillStatus = "Pending"
	BillStatusPartial BillStatus = "Partial"
	BillStatusPaid    BillStatus = "Paid"
	BillStatusOverdue BillStatus = "Overdue"
)

func ParseBillStatus(s string) (BillStatus, error) {
	statuses := map[string]BillStatus{
		"Pending": BillStatusPending,
		"Partial": BillStatusPartial,
		"Paid":    BillStatusPaid,
		"Overdue": BillStatusOverdue,
	}
	status, ok := statuses[s]
	if !ok {
		return "", errors.New("invalid bill status")
	}
	return status, nil
}

// AccountKind distinguishes the two account directories sharing the
// balance/payment tables.
type AccountKind string

const (
	AccountKindCustomer  AccountKind = "Customer"
	AccountKindWholesale AccountKind = "Wholesale"
)

func ParseAccountKind(s string) (AccountKind, error) {
	kinds := map[string]AccountKind{
		"Customer":  AccountKindCustomer,
		"Wholesale": AccountKindWholesale,
	}
	kind, ok := kinds[s]
	if !ok {
		return "", errors.New("invalid account kind")
	}
	return kind, nil
}

type LineItemType string

const (
	LineItemTypeSimple    LineItemType = "Simple"
	LineItemTypeComposite LineItemType = "Composite"
)
