package models

import (
	"log"

	"github.com/mmdatafocus/trading_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{},
		&Customer{}, &WholesaleAccount{}, &AccountBalance{},
		&LedgerEntry{}, &StockValuation{},
		&DirectOrder{}, &WholesaleOrder{}, &OrderLineItem{}, &OrderLineComponent{},
		&OrderStatusHistory{}, &BatchAllocation{},
		&Bill{}, &Payment{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
