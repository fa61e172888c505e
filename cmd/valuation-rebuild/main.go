package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/mmdatafocus/trading_backend/workflow"
)

// Maintenance tool: replays the inventory ledger into the valuation
// snapshots. Run after manual ledger surgery, or whenever a snapshot is
// suspected to have drifted.
func main() {
	productID := flag.Int("product-id", 0, "Optional: rebuild a single product (0 rebuilds every product with ledger entries)")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := context.Background()
	if *productID > 0 {
		fmt.Printf("Rebuilding valuation for product=%d\n", *productID)
	} else {
		fmt.Println("Rebuilding valuation for all products")
	}
	if err := workflow.RebuildValuation(ctx, *productID); err != nil {
		fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
		os.Exit(1)
	}

	if *productID > 0 {
		valuation, err := models.GetValuation(ctx, *productID)
		if err == nil {
			fmt.Printf("product=%d qty=%s value=%s avg_cost=%s\n",
				*productID, valuation.Quantity.String(), valuation.Value.String(), valuation.AvgCost.String())
		}
	}
	fmt.Println("Done")
}
