package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmdatafocus/trading_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLineItem is the normalized tagged variant for order lines. Upstream
// callers historically produced several shapes for composite ("mix") lines;
// they are normalized exactly once at order creation so settlement, billing
// and profit code never re-interpret them.
//
// Simple: product + qty + unit price. Composite: a named mix whose
// components each carry their own product, quantity and allocated price.
type OrderLineItem struct {
	ID        int                  `gorm:"primary_key" json:"id"`
	OrderKind OrderKind            `gorm:"type:enum('Direct','Wholesale');index:idx_line_order,priority:1;not null" json:"order_kind"`
	OrderId   int                  `gorm:"index:idx_line_order,priority:2;not null" json:"order_id"`
	ItemType  LineItemType         `gorm:"type:enum('Simple','Composite');not null" json:"item_type"`
	ProductId int                  `gorm:"index;default:null" json:"product_id"` // simple lines only
	Name      string               `gorm:"size:255;not null" json:"name"`
	Qty       decimal.Decimal      `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"unit_price"` // simple lines only
	Amount    decimal.Decimal      `gorm:"type:decimal(20,4);not null" json:"amount"`
	Unit      string               `gorm:"size:20" json:"unit"`
	Components []OrderLineComponent `gorm:"foreignKey:LineItemId" json:"components"`
	CreatedAt time.Time            `gorm:"autoCreateTime" json:"created_at"`
}

type OrderLineComponent struct {
	ID             int             `gorm:"primary_key" json:"id"`
	LineItemId     int             `gorm:"index;not null" json:"line_item_id"`
	ProductId      int             `gorm:"index;not null" json:"product_id"`
	ProductName    string          `gorm:"size:255;not null" json:"product_name"`
	Qty            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	AllocatedPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"allocated_price"` // per unit
	Unit           string          `gorm:"size:20" json:"unit"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewLineItem struct {
	ProductId  int                `json:"product_id"`
	Name       string             `json:"name"`
	Qty        decimal.Decimal    `json:"qty" binding:"required"`
	UnitPrice  decimal.Decimal    `json:"unit_price"`
	Unit       string             `json:"unit"`
	Components []NewLineComponent `json:"components"`
}

type NewLineComponent struct {
	ProductId      int             `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Qty            decimal.Decimal `json:"qty" binding:"required"`
	AllocatedPrice decimal.Decimal `json:"allocated_price" binding:"required"`
	Unit           string          `json:"unit"`
}

// normalizeLineItem maps one raw input line onto the tagged variant.
func normalizeLineItem(tx *gorm.DB, input NewLineItem) (*OrderLineItem, error) {
	if !input.Qty.IsPositive() {
		return nil, fmt.Errorf("%w: line quantity must be positive", utils.ErrValidation)
	}

	if len(input.Components) > 0 {
		if input.Name == "" {
			return nil, fmt.Errorf("%w: composite line requires a name", utils.ErrValidation)
		}
		line := OrderLineItem{
			ItemType: LineItemTypeComposite,
			Name:     input.Name,
			Qty:      input.Qty,
			Unit:     input.Unit,
			Amount:   decimal.Zero,
		}
		for _, comp := range input.Components {
			var product Product
			var err error
			if comp.ProductId > 0 {
				err = tx.First(&product, comp.ProductId).Error
			} else if comp.ProductName != "" {
				err = tx.Where("name = ?", comp.ProductName).First(&product).Error
			} else {
				return nil, fmt.Errorf("%w: component requires product id or name", utils.ErrValidation)
			}
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, fmt.Errorf("%w: component product not found", utils.ErrorRecordNotFound)
				}
				return nil, err
			}
			if !comp.Qty.IsPositive() {
				return nil, fmt.Errorf("%w: component quantity must be positive", utils.ErrValidation)
			}
			line.Components = append(line.Components, OrderLineComponent{
				ProductId:      product.ID,
				ProductName:    product.Name,
				Qty:            comp.Qty,
				AllocatedPrice: comp.AllocatedPrice,
				Unit:           product.Unit,
			})
			line.Amount = line.Amount.Add(comp.Qty.Mul(comp.AllocatedPrice))
		}
		return &line, nil
	}

	// simple line
	if input.ProductId <= 0 {
		return nil, fmt.Errorf("%w: simple line requires a product", utils.ErrValidation)
	}
	var product Product
	if err := tx.First(&product, input.ProductId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product not found", utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	if !input.UnitPrice.IsPositive() {
		return nil, fmt.Errorf("%w: unit price must be positive", utils.ErrValidation)
	}
	return &OrderLineItem{
		ItemType:  LineItemTypeSimple,
		ProductId: product.ID,
		Name:      product.Name,
		Qty:       input.Qty,
		UnitPrice: input.UnitPrice,
		Amount:    input.Qty.Mul(input.UnitPrice),
		Unit:      product.Unit,
	}, nil
}

// insertOrderLineItems persists normalized lines for one order.
func insertOrderLineItems(tx *gorm.DB, orderKind OrderKind, orderId int, inputs []NewLineItem) ([]OrderLineItem, decimal.Decimal, error) {
	if len(inputs) == 0 {
		return nil, decimal.Zero, fmt.Errorf("%w: order requires at least one line item", utils.ErrValidation)
	}

	lines := make([]OrderLineItem, 0, len(inputs))
	total := decimal.Zero
	for _, input := range inputs {
		line, err := normalizeLineItem(tx, input)
		if err != nil {
			return nil, decimal.Zero, err
		}
		line.OrderKind = orderKind
		line.OrderId = orderId
		if err := tx.Create(line).Error; err != nil {
			return nil, decimal.Zero, err
		}
		total = total.Add(line.Amount)
		lines = append(lines, *line)
	}
	return lines, total, nil
}

// GetOrderLineItems loads an order's lines with components.
func GetOrderLineItems(tx *gorm.DB, orderKind OrderKind, orderId int) ([]OrderLineItem, error) {
	var lines []OrderLineItem
	if err := tx.Preload("Components").
		Where("order_kind = ? AND order_id = ?", orderKind, orderId).
		Order("id").
		Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}
