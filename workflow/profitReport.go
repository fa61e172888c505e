package workflow

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mmdatafocus/trading_backend/config"
	"github.com/mmdatafocus/trading_backend/models"
	"github.com/shopspring/decimal"
)

type ProfitReportLine struct {
	OrderKind   models.OrderKind `json:"order_kind"`
	OrderId     int              `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	LineItemId  int              `json:"line_item_id"`
	ItemName    string           `json:"item_name"`
	Qty         decimal.Decimal  `json:"qty"`
	Revenue     decimal.Decimal  `json:"revenue"`
	Cost        decimal.Decimal  `json:"cost"`
	Profit      decimal.Decimal  `json:"profit"`
}

// ProfitReport estimates gross profit over delivered orders in a date
// range. Costs come from the current valuation snapshots, not the cost at
// delivery time, so the figure is an estimate. Line profits are floored at
// zero; RawProfit keeps the unfloored sum so loss-making lines stay
// visible in the totals.
type ProfitReport struct {
	FromDate         time.Time          `json:"from_date"`
	ToDate           time.Time          `json:"to_date"`
	DeliveredRevenue decimal.Decimal    `json:"delivered_revenue"`
	TotalCost        decimal.Decimal    `json:"total_cost"`
	GrossProfit      decimal.Decimal    `json:"gross_profit"`
	RawProfit        decimal.Decimal    `json:"raw_profit"`
	Lines            []ProfitReportLine `json:"lines"`
}

func profitCacheKey(fromDate, toDate time.Time) string {
	return fmt.Sprintf("report:profit:%s:%s",
		fromDate.Format("2006-01-02"), toDate.Format("2006-01-02"))
}

func profitCacheTTL() time.Duration {
	seconds, err := strconv.Atoi(os.Getenv("REPORT_CACHE_TTL_SECONDS"))
	if err != nil || seconds <= 0 {
		seconds = 300
	}
	return time.Duration(seconds) * time.Second
}

// GetProfitReport builds the profit report for delivered orders whose
// delivery timestamp falls inside [fromDate, toDate].
func GetProfitReport(ctx context.Context, fromDate, toDate time.Time) (*ProfitReport, error) {
	cacheEnabled := os.Getenv("ENABLE_REPORT_CACHE") == "true"
	cacheKey := profitCacheKey(fromDate, toDate)
	if cacheEnabled {
		var cached ProfitReport
		if hit, err := config.GetRedisObject(cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	valuations, err := models.GetAllValuations(ctx)
	if err != nil {
		return nil, err
	}
	avgCostByProduct := make(map[int]decimal.Decimal, len(valuations))
	for _, valuation := range valuations {
		avgCostByProduct[valuation.ProductId] = valuation.AvgCost
	}

	report := &ProfitReport{FromDate: fromDate, ToDate: toDate, Lines: []ProfitReportLine{}}

	appendOrder := func(orderKind models.OrderKind, orderId int, orderNumber string, lines []models.OrderLineItem) {
		for i := range lines {
			line := lines[i]
			revenue := line.Amount
			cost := decimal.Zero
			if line.ItemType == models.LineItemTypeComposite {
				for _, component := range line.Components {
					cost = cost.Add(component.Qty.Mul(avgCostByProduct[component.ProductId]))
				}
			} else {
				cost = line.Qty.Mul(avgCostByProduct[line.ProductId])
			}
			profit := revenue.Sub(cost)
			report.RawProfit = report.RawProfit.Add(profit)
			if profit.IsNegative() {
				profit = decimal.Zero
			}
			report.DeliveredRevenue = report.DeliveredRevenue.Add(revenue)
			report.TotalCost = report.TotalCost.Add(cost)
			report.GrossProfit = report.GrossProfit.Add(profit)
			report.Lines = append(report.Lines, ProfitReportLine{
				OrderKind:   orderKind,
				OrderId:     orderId,
				OrderNumber: orderNumber,
				LineItemId:  line.ID,
				ItemName:    line.Name,
				Qty:         line.Qty,
				Revenue:     revenue,
				Cost:        cost,
				Profit:      profit,
			})
		}
	}

	db := config.GetDB().WithContext(ctx)

	directOrders, err := models.GetDeliveredDirectOrders(ctx, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	for _, order := range directOrders {
		lines, err := models.GetOrderLineItems(db, models.OrderKindDirect, order.ID)
		if err != nil {
			return nil, err
		}
		appendOrder(models.OrderKindDirect, order.ID, order.OrderNumber, lines)
	}

	wholesaleOrders, err := models.GetDeliveredWholesaleOrders(ctx, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	for _, order := range wholesaleOrders {
		lines, err := models.GetOrderLineItems(db, models.OrderKindWholesale, order.ID)
		if err != nil {
			return nil, err
		}
		appendOrder(models.OrderKindWholesale, order.ID, order.OrderNumber, lines)
	}

	if cacheEnabled {
		if err := config.SetRedisObject(cacheKey, report, profitCacheTTL()); err != nil {
			config.LogError(config.GetLogger(), "profitReport", "GetProfitReport", "cache write", cacheKey, err)
		}
	}
	return report, nil
}
