package models_test

import (
	"testing"

	"github.com/mmdatafocus/trading_backend/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestApplyEntryFigures_IncrementalMatchesRebuild(t *testing.T) {
	entries := []*models.LedgerEntry{
		{Action: models.LedgerActionAdded, Qty: d("10"), Value: d("1000")},
		{Action: models.LedgerActionAdded, Qty: d("5"), Value: d("600")},
		{Action: models.LedgerActionDeducted, Qty: d("-12"), Value: d("-1240")},
		{Action: models.LedgerActionUpdated, Qty: d("1"), Value: d("100")},
		{Action: models.LedgerActionDeducted, Qty: d("-4"), Value: d("-460")},
	}

	incremental := models.ValuationFigures{}
	for _, entry := range entries {
		incremental = models.ApplyEntryFigures(incremental, entry.Qty, entry.Value)
	}
	rebuilt := models.RebuildFigures(entries)

	if !incremental.Quantity.Equal(rebuilt.Quantity) {
		t.Fatalf("quantity mismatch: incremental=%s rebuilt=%s", incremental.Quantity, rebuilt.Quantity)
	}
	if !incremental.Value.Equal(rebuilt.Value) {
		t.Fatalf("value mismatch: incremental=%s rebuilt=%s", incremental.Value, rebuilt.Value)
	}
	if !incremental.AvgCost.Equal(rebuilt.AvgCost) {
		t.Fatalf("avg cost mismatch: incremental=%s rebuilt=%s", incremental.AvgCost, rebuilt.AvgCost)
	}
}

func TestApplyEntryFigures_SkipsMergedOnRebuild(t *testing.T) {
	entries := []*models.LedgerEntry{
		{Qty: d("10"), Value: d("1000"), Merged: true},
		{Qty: d("-10"), Value: d("-1000"), Merged: true},
		{Qty: d("10"), Value: d("1000")},
	}
	figures := models.RebuildFigures(entries)
	if !figures.Quantity.Equal(d("10")) || !figures.Value.Equal(d("1000")) {
		t.Fatalf("merged rows leaked into rebuild: qty=%s value=%s", figures.Quantity, figures.Value)
	}
}

func TestApplyEntryFigures_ZeroQuantityResetsAvgCost(t *testing.T) {
	figures := models.ApplyEntryFigures(models.ValuationFigures{}, d("10"), d("1000"))
	if !figures.AvgCost.Equal(d("100")) {
		t.Fatalf("avg cost after intake: got %s, want 100", figures.AvgCost)
	}

	// deduct everything, but leave a rounding residue in value
	figures = models.ApplyEntryFigures(figures, d("-10"), d("-999.9"))
	if !figures.Quantity.IsZero() {
		t.Fatalf("quantity after full deduction: got %s, want 0", figures.Quantity)
	}
	if !figures.AvgCost.IsZero() {
		t.Fatalf("avg cost must reset at zero quantity, got %s", figures.AvgCost)
	}
	if !figures.Value.IsZero() {
		t.Fatalf("residual value must drop at zero quantity, got %s", figures.Value)
	}
}

func TestApplyEntryFigures_FloorsNegativeStock(t *testing.T) {
	figures := models.ApplyEntryFigures(models.ValuationFigures{}, d("3"), d("300"))
	figures = models.ApplyEntryFigures(figures, d("-5"), d("-500"))
	if figures.Quantity.IsNegative() || figures.Value.IsNegative() {
		t.Fatalf("figures went negative: qty=%s value=%s", figures.Quantity, figures.Value)
	}
	if !figures.Quantity.IsZero() {
		t.Fatalf("quantity floored at zero: got %s", figures.Quantity)
	}
}

// Batch A holds 10kg costing 1000 and batch B 5kg costing 600. Delivering
// 10 from A at cost 1000 and 2 from B at cost 240 leaves 3kg worth 360.
func TestValuationScenario_TwoBatchDelivery(t *testing.T) {
	figures := models.ValuationFigures{}
	figures = models.ApplyEntryFigures(figures, d("10"), d("1000"))
	figures = models.ApplyEntryFigures(figures, d("5"), d("600"))

	figures = models.ApplyEntryFigures(figures, d("-10"), d("-1000"))
	figures = models.ApplyEntryFigures(figures, d("-2"), d("-240"))

	if !figures.Quantity.Equal(d("3")) {
		t.Fatalf("remaining quantity: got %s, want 3", figures.Quantity)
	}
	if !figures.Value.Equal(d("360")) {
		t.Fatalf("remaining value: got %s, want 360", figures.Value)
	}
	if !figures.AvgCost.Equal(d("120")) {
		t.Fatalf("remaining avg cost: got %s, want 120", figures.AvgCost)
	}
}
