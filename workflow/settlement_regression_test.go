package workflow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/mmdatafocus/trading_backend/workflow"
	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	v, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return v
}

func addStock(t *testing.T, ctx context.Context, productId int, batch, qty, value string) {
	t.Helper()
	_, err := workflow.RecordInventoryMovement(ctx, &workflow.NewInventoryMovement{
		ProductId:   productId,
		BatchNumber: batch,
		Action:      "added",
		Qty:         mustDecimal(t, qty),
		Value:       mustDecimal(t, value),
		Unit:        "kg",
	})
	if err != nil {
		t.Fatalf("RecordInventoryMovement(%s): %v", batch, err)
	}
}

func advanceTo(t *testing.T, ctx context.Context, kind models.OrderKind, orderId int, target models.OrderStatus) {
	t.Helper()
	path := []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusReady,
		models.OrderStatusDelivered,
	}
	for _, status := range path {
		if _, err := workflow.TransitionOrderStatus(ctx, kind, orderId, &workflow.StatusTransitionInput{
			NewStatus: string(status),
		}); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
		if status == target {
			return
		}
	}
}

func countDeductions(t *testing.T, referenceType string, orderId int) int64 {
	t.Helper()
	var n int64
	if err := config.GetDB().Model(&models.LedgerEntry{}).
		Where("reference_type = ? AND reference_id = ? AND action = ?", referenceType, orderId, models.LedgerActionDeducted).
		Count(&n).Error; err != nil {
		t.Fatalf("count deductions: %v", err)
	}
	return n
}

// Batch A holds 10kg costing 1000, batch B 5kg costing 600. Delivering 10
// from A and 2 from B deducts 1000 and 240, leaving the product at 3kg
// worth 360. Settling again must not deduct twice, and exactly one bill
// comes out of it.
func TestDeliverySettlement_TwoBatches(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Jasmine Rice", Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	addStock(t, ctx, product.ID, "BATCH-A", "10", "1000")
	addStock(t, ctx, product.ID, "BATCH-B", "5", "600")

	customer, err := models.FindOrCreateCustomer(ctx, &models.NewCustomer{Name: "Daw Mya", Phone: "09791234567"})
	if err != nil {
		t.Fatalf("FindOrCreateCustomer: %v", err)
	}

	order, err := models.CreateDirectOrder(ctx, &models.NewDirectOrder{
		CustomerId: customer.ID,
		LineItems: []models.NewLineItem{
			{ProductId: product.ID, Qty: mustDecimal(t, "12"), UnitPrice: mustDecimal(t, "150")},
		},
	})
	if err != nil {
		t.Fatalf("CreateDirectOrder: %v", err)
	}
	if !order.OrderTotal.Equal(mustDecimal(t, "1800")) {
		t.Fatalf("order total: got %s, want 1800", order.OrderTotal)
	}

	lineId := order.LineItems[0].ID
	if _, err := workflow.SaveAllocations(ctx, models.OrderKindDirect, order.ID, []models.NewAllocation{
		{ProductId: product.ID, BatchNumber: "BATCH-A", Qty: mustDecimal(t, "10"), LineItemId: &lineId},
		{ProductId: product.ID, BatchNumber: "BATCH-B", Qty: mustDecimal(t, "2"), LineItemId: &lineId},
	}); err != nil {
		t.Fatalf("SaveAllocations: %v", err)
	}

	advanceTo(t, ctx, models.OrderKindDirect, order.ID, models.OrderStatusDelivered)

	valuation, err := models.GetValuation(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetValuation: %v", err)
	}
	if !valuation.Quantity.Equal(mustDecimal(t, "3")) {
		t.Fatalf("quantity after settlement: got %s, want 3", valuation.Quantity)
	}
	if !valuation.Value.Equal(mustDecimal(t, "360")) {
		t.Fatalf("value after settlement: got %s, want 360", valuation.Value)
	}
	if !valuation.AvgCost.Equal(mustDecimal(t, "120")) {
		t.Fatalf("avg cost after settlement: got %s, want 120", valuation.AvgCost)
	}

	if n := countDeductions(t, "DO", order.ID); n != 2 {
		t.Fatalf("deduction entries: got %d, want 2", n)
	}

	// settling again is a no-op
	if err := workflow.SettleDelivery(ctx, models.OrderKindDirect, order.ID); err != nil {
		t.Fatalf("second SettleDelivery: %v", err)
	}
	if n := countDeductions(t, "DO", order.ID); n != 2 {
		t.Fatalf("deduction entries after re-settle: got %d, want 2", n)
	}

	var billCount int64
	if err := config.GetDB().Model(&models.Bill{}).
		Where("order_kind = ? AND order_id = ?", models.OrderKindDirect, order.ID).
		Count(&billCount).Error; err != nil {
		t.Fatalf("count bills: %v", err)
	}
	if billCount != 1 {
		t.Fatalf("bills for order: got %d, want 1", billCount)
	}

	bill, err := models.GetBillByOrder(ctx, models.OrderKindDirect, order.ID)
	if err != nil {
		t.Fatalf("GetBillByOrder: %v", err)
	}
	if !bill.Paid.Add(bill.Pending).Equal(bill.Total) {
		t.Fatalf("paid+pending != total: %s + %s != %s", bill.Paid, bill.Pending, bill.Total)
	}
	if bill.Status != models.BillStatusPending {
		t.Fatalf("bill status: got %s, want Pending", bill.Status)
	}

	// full rebuild agrees with the incremental snapshot
	if err := workflow.RebuildValuation(ctx, product.ID); err != nil {
		t.Fatalf("RebuildValuation: %v", err)
	}
	rebuilt, err := models.GetValuation(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetValuation after rebuild: %v", err)
	}
	if !rebuilt.Quantity.Equal(valuation.Quantity) || !rebuilt.Value.Equal(valuation.Value) {
		t.Fatalf("rebuild disagrees with incremental: qty %s vs %s, value %s vs %s",
			rebuilt.Quantity, valuation.Quantity, rebuilt.Value, valuation.Value)
	}

	report, err := workflow.GetProfitReport(ctx, time.Now().UTC().AddDate(0, 0, -1), time.Now().UTC().AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetProfitReport: %v", err)
	}
	if !report.DeliveredRevenue.Equal(mustDecimal(t, "1800")) {
		t.Fatalf("delivered revenue: got %s, want 1800", report.DeliveredRevenue)
	}
	// cost is looked up at query time: 12kg at the post-settlement avg 120
	if !report.GrossProfit.Equal(mustDecimal(t, "360")) {
		t.Fatalf("gross profit: got %s, want 360", report.GrossProfit)
	}
}

// A wholesale order of 1000 with a 300 advance bills as Partial on
// delivery; paying the remaining 700 settles it.
func TestWholesaleAdvance_BillsPartialThenPaid(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Peanut Oil", Unit: "l"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	addStock(t, ctx, product.ID, "OIL-1", "20", "1600")

	account, err := models.FindOrCreateWholesaleAccount(ctx, &models.NewWholesaleAccount{
		BusinessName: "Shwe Trading",
		Phone:        "09799876543",
	})
	if err != nil {
		t.Fatalf("FindOrCreateWholesaleAccount: %v", err)
	}

	order, err := models.CreateWholesaleOrder(ctx, &models.NewWholesaleOrder{
		AccountId:     account.ID,
		AdvanceAmount: mustDecimal(t, "300"),
		AdvanceMethod: "Cash",
		LineItems: []models.NewLineItem{
			{ProductId: product.ID, Qty: mustDecimal(t, "10"), UnitPrice: mustDecimal(t, "100")},
		},
	})
	if err != nil {
		t.Fatalf("CreateWholesaleOrder: %v", err)
	}

	if _, err := workflow.SaveAllocations(ctx, models.OrderKindWholesale, order.ID, []models.NewAllocation{
		{ProductId: product.ID, BatchNumber: "OIL-1", Qty: mustDecimal(t, "10")},
	}); err != nil {
		t.Fatalf("SaveAllocations: %v", err)
	}

	advanceTo(t, ctx, models.OrderKindWholesale, order.ID, models.OrderStatusDelivered)

	bill, err := models.GetBillByOrder(ctx, models.OrderKindWholesale, order.ID)
	if err != nil {
		t.Fatalf("GetBillByOrder: %v", err)
	}
	if !bill.Paid.Equal(mustDecimal(t, "300")) || !bill.Pending.Equal(mustDecimal(t, "700")) {
		t.Fatalf("bill figures: paid=%s pending=%s, want 300/700", bill.Paid, bill.Pending)
	}
	if bill.Status != models.BillStatusPartial {
		t.Fatalf("bill status: got %s, want Partial", bill.Status)
	}

	// the advance exists as a payment row
	payments, err := models.GetPaymentsForBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetPaymentsForBill: %v", err)
	}
	if len(payments) != 1 || !payments[0].Amount.Equal(mustDecimal(t, "300")) {
		t.Fatalf("advance payment rows: got %d, want 1 of amount 300", len(payments))
	}

	result, err := workflow.ApplyPayment(ctx, &workflow.NewPayment{
		AccountKind: "Wholesale",
		AccountId:   account.ID,
		BillId:      &bill.ID,
		Amount:      mustDecimal(t, "700"),
		Method:      "Bank",
	})
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if result.Bill.Status != models.BillStatusPaid {
		t.Fatalf("bill status after payment: got %s, want Paid", result.Bill.Status)
	}
	if !result.Bill.Pending.IsZero() {
		t.Fatalf("pending after payment: got %s, want 0", result.Bill.Pending)
	}
	if !result.Balance.Outstanding.IsZero() {
		t.Fatalf("account outstanding: got %s, want 0", result.Balance.Outstanding)
	}
	if !result.Balance.TotalPaid.Equal(mustDecimal(t, "1000")) {
		t.Fatalf("account total paid: got %s, want 1000", result.Balance.TotalPaid)
	}

	// overpaying the settled bill is rejected
	if _, err := workflow.ApplyPayment(ctx, &workflow.NewPayment{
		AccountKind: "Wholesale",
		AccountId:   account.ID,
		BillId:      &bill.ID,
		Amount:      mustDecimal(t, "1"),
		Method:      "Cash",
	}); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("overpayment: got %v, want validation error", err)
	}
}

// Allocating 5kg from a batch holding 3kg fails the whole request and
// leaves no allocation rows behind.
func TestSaveAllocations_InsufficientStock(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Mung Beans", Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	addStock(t, ctx, product.ID, "MB-1", "3", "300")

	customer, err := models.FindOrCreateCustomer(ctx, &models.NewCustomer{Name: "U Hla", Phone: "09791234568"})
	if err != nil {
		t.Fatalf("FindOrCreateCustomer: %v", err)
	}
	order, err := models.CreateDirectOrder(ctx, &models.NewDirectOrder{
		CustomerId: customer.ID,
		LineItems: []models.NewLineItem{
			{ProductId: product.ID, Qty: mustDecimal(t, "5"), UnitPrice: mustDecimal(t, "200")},
		},
	})
	if err != nil {
		t.Fatalf("CreateDirectOrder: %v", err)
	}

	_, err = workflow.SaveAllocations(ctx, models.OrderKindDirect, order.ID, []models.NewAllocation{
		{ProductId: product.ID, BatchNumber: "MB-1", Qty: mustDecimal(t, "5")},
	})
	if !errors.Is(err, utils.ErrInsufficientStock) {
		t.Fatalf("over-allocation: got %v, want insufficient stock", err)
	}

	rows, err := models.ListAllocations(ctx, models.OrderKindDirect, order.ID)
	if err != nil {
		t.Fatalf("ListAllocations: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("allocation rows after rejected save: got %d, want 0", len(rows))
	}

	// allocating more than the line's ordered quantity is also rejected
	lineId := order.LineItems[0].ID
	_, err = workflow.SaveAllocations(ctx, models.OrderKindDirect, order.ID, []models.NewAllocation{
		{ProductId: product.ID, BatchNumber: "MB-1", Qty: mustDecimal(t, "3"), LineItemId: &lineId},
		{ProductId: product.ID, BatchNumber: "MB-1", Qty: mustDecimal(t, "3"), LineItemId: &lineId},
	})
	if !errors.Is(err, utils.ErrInsufficientStock) && !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("line overshoot: got %v, want rejection", err)
	}
}

func TestTransitionOrderStatus_RejectsSkips(t *testing.T) {
	ctx := setupIntegration(t)

	customer, err := models.FindOrCreateCustomer(ctx, &models.NewCustomer{Name: "Ma Thin", Phone: "09791234569"})
	if err != nil {
		t.Fatalf("FindOrCreateCustomer: %v", err)
	}
	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Palm Sugar", Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	order, err := models.CreateDirectOrder(ctx, &models.NewDirectOrder{
		CustomerId: customer.ID,
		LineItems: []models.NewLineItem{
			{ProductId: product.ID, Qty: mustDecimal(t, "1"), UnitPrice: mustDecimal(t, "100")},
		},
	})
	if err != nil {
		t.Fatalf("CreateDirectOrder: %v", err)
	}

	_, err = workflow.TransitionOrderStatus(ctx, models.OrderKindDirect, order.ID, &workflow.StatusTransitionInput{
		NewStatus: string(models.OrderStatusDelivered),
	})
	if !errors.Is(err, utils.ErrInvalidTransition) {
		t.Fatalf("Pending -> Delivered: got %v, want invalid transition", err)
	}

	// cancel, then nothing moves anymore
	if _, err := workflow.TransitionOrderStatus(ctx, models.OrderKindDirect, order.ID, &workflow.StatusTransitionInput{
		NewStatus: string(models.OrderStatusCancelled),
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = workflow.TransitionOrderStatus(ctx, models.OrderKindDirect, order.ID, &workflow.StatusTransitionInput{
		NewStatus: string(models.OrderStatusConfirmed),
	})
	if !errors.Is(err, utils.ErrInvalidTransition) {
		t.Fatalf("Cancelled -> Confirmed: got %v, want invalid transition", err)
	}

	history, err := models.GetStatusHistory(ctx, models.OrderKindDirect, order.ID)
	if err != nil {
		t.Fatalf("GetStatusHistory: %v", err)
	}
	// creation + cancel
	if len(history) != 2 {
		t.Fatalf("status history rows: got %d, want 2", len(history))
	}
}

// Standalone settlement is a recovery path for delivered orders only.
// Settling earlier would strand the deduction if the order is then
// cancelled, since cancellation posts no compensating entry.
func TestSettleDelivery_RequiresDelivered(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Broken Rice", Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	addStock(t, ctx, product.ID, "BR-1", "8", "640")

	customer, err := models.FindOrCreateCustomer(ctx, &models.NewCustomer{Name: "U Tin", Phone: "09794445566"})
	if err != nil {
		t.Fatalf("FindOrCreateCustomer: %v", err)
	}
	order, err := models.CreateDirectOrder(ctx, &models.NewDirectOrder{
		CustomerId: customer.ID,
		LineItems: []models.NewLineItem{
			{ProductId: product.ID, Qty: mustDecimal(t, "4"), UnitPrice: mustDecimal(t, "100")},
		},
	})
	if err != nil {
		t.Fatalf("CreateDirectOrder: %v", err)
	}
	lineId := order.LineItems[0].ID
	if _, err := workflow.SaveAllocations(ctx, models.OrderKindDirect, order.ID, []models.NewAllocation{
		{ProductId: product.ID, BatchNumber: "BR-1", Qty: mustDecimal(t, "4"), LineItemId: &lineId},
	}); err != nil {
		t.Fatalf("SaveAllocations: %v", err)
	}

	err = workflow.SettleDelivery(ctx, models.OrderKindDirect, order.ID)
	if !errors.Is(err, utils.ErrInvalidTransition) {
		t.Fatalf("settle while Pending: got %v, want invalid transition", err)
	}
	if n := countDeductions(t, "DO", order.ID); n != 0 {
		t.Fatalf("deduction entries after rejected settle: got %d, want 0", n)
	}
	valuation, err := models.GetValuation(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetValuation: %v", err)
	}
	if !valuation.Quantity.Equal(mustDecimal(t, "8")) || !valuation.Value.Equal(mustDecimal(t, "640")) {
		t.Fatalf("valuation touched by rejected settle: %s / %s", valuation.Quantity, valuation.Value)
	}

	// once delivered the standalone path is a no-op re-run
	advanceTo(t, ctx, models.OrderKindDirect, order.ID, models.OrderStatusDelivered)
	if err := workflow.SettleDelivery(ctx, models.OrderKindDirect, order.ID); err != nil {
		t.Fatalf("SettleDelivery after delivery: %v", err)
	}
	if n := countDeductions(t, "DO", order.ID); n != 1 {
		t.Fatalf("deduction entries after delivery: got %d, want 1", n)
	}
}
