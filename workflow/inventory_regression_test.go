package workflow_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/mmdatafocus/trading_backend/workflow"
)

// Merging batches collapses them into one synthetic batch while the
// product's totals and valuation stay exactly where they were.
func TestMergeBatches_PreservesTotals(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Sesame Seeds", Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	addStock(t, ctx, product.ID, "SS-1", "5", "500")
	addStock(t, ctx, product.ID, "SS-2", "7", "840")

	before, err := models.GetValuation(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetValuation before merge: %v", err)
	}

	newBatch, err := workflow.MergeBatches(ctx, product.ID, []string{"SS-1", "SS-2"}, "SS-MERGED")
	if err != nil {
		t.Fatalf("MergeBatches: %v", err)
	}
	if newBatch != "SS-MERGED" {
		t.Fatalf("merged batch name: got %q, want SS-MERGED", newBatch)
	}

	after, err := models.GetValuation(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetValuation after merge: %v", err)
	}
	if !after.Quantity.Equal(before.Quantity) || !after.Value.Equal(before.Value) {
		t.Fatalf("merge moved the valuation: qty %s -> %s, value %s -> %s",
			before.Quantity, after.Quantity, before.Value, after.Value)
	}

	db := mustDB(t)
	for _, batch := range []string{"SS-1", "SS-2"} {
		available, err := models.GetBatchAvailability(db, product.ID, batch, false)
		if err != nil {
			t.Fatalf("GetBatchAvailability(%s): %v", batch, err)
		}
		if !available.IsZero() {
			t.Fatalf("original batch %s still shows %s available", batch, available)
		}
	}
	available, err := models.GetBatchAvailability(db, product.ID, "SS-MERGED", false)
	if err != nil {
		t.Fatalf("GetBatchAvailability(SS-MERGED): %v", err)
	}
	if !available.Equal(mustDecimal(t, "12")) {
		t.Fatalf("merged batch availability: got %s, want 12", available)
	}

	// the rebuild sees the same world
	if err := workflow.RebuildValuation(ctx, product.ID); err != nil {
		t.Fatalf("RebuildValuation: %v", err)
	}
	rebuilt, err := models.GetValuation(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetValuation after rebuild: %v", err)
	}
	if !rebuilt.Quantity.Equal(before.Quantity) || !rebuilt.Value.Equal(before.Value) {
		t.Fatalf("rebuild disagrees after merge: qty=%s value=%s", rebuilt.Quantity, rebuilt.Value)
	}
}

func TestMergeBatches_RejectsBadInput(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Chickpeas", Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	addStock(t, ctx, product.ID, "CP-1", "4", "400")

	if _, err := workflow.MergeBatches(ctx, product.ID, []string{"CP-1"}, ""); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("single batch merge: got %v, want validation error", err)
	}
	if _, err := workflow.MergeBatches(ctx, product.ID, []string{"CP-1", "GHOST"}, ""); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("empty batch merge: got %v, want validation error", err)
	}

	// the failed merge left the live batch untouched
	available, err := models.GetBatchAvailability(mustDB(t), product.ID, "CP-1", false)
	if err != nil {
		t.Fatalf("GetBatchAvailability: %v", err)
	}
	if !available.Equal(mustDecimal(t, "4")) {
		t.Fatalf("batch availability after failed merge: got %s, want 4", available)
	}
}

func TestRecordInventoryMovement_NormalizesDeductions(t *testing.T) {
	ctx := setupIntegration(t)

	product, err := models.CreateProduct(ctx, &models.NewProduct{Name: "Red Lentils", Unit: "kg"})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	addStock(t, ctx, product.ID, "RL-1", "10", "900")

	// caller passes positive figures for a deduction; they are stored negative
	if _, err := workflow.RecordInventoryMovement(ctx, &workflow.NewInventoryMovement{
		ProductId:   product.ID,
		BatchNumber: "RL-1",
		Action:      "deducted",
		Qty:         mustDecimal(t, "4"),
		Value:       mustDecimal(t, "360"),
	}); err != nil {
		t.Fatalf("RecordInventoryMovement: %v", err)
	}

	valuation, err := models.GetValuation(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetValuation: %v", err)
	}
	if !valuation.Quantity.Equal(mustDecimal(t, "6")) {
		t.Fatalf("quantity: got %s, want 6", valuation.Quantity)
	}
	if !valuation.Value.Equal(mustDecimal(t, "540")) {
		t.Fatalf("value: got %s, want 540", valuation.Value)
	}

	if _, err := workflow.RecordInventoryMovement(ctx, &workflow.NewInventoryMovement{
		ProductId:   product.ID,
		BatchNumber: "RL-1",
		Action:      "merged",
		Qty:         mustDecimal(t, "1"),
	}); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("manual merged entry: got %v, want validation error", err)
	}
}
