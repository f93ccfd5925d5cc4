package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MaxLineQuantity caps the quantity of a single product in one order.
	MaxLineQuantity = 100000
)

// MaxOrderTotal is the largest amount the orders table can hold.
var MaxOrderTotal = decimal.RequireFromString("9999999999.99")

var (
	ErrQuantityTooLarge = errors.New("quantity exceeds the per-product limit")
	ErrTotalTooLarge    = errors.New("order total exceeds the maximum")
)

// CartLine is one requested product and quantity
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// MergeCartLines folds repeated product ids into a single line whose quantity
// is the sum of the repeats. Lines keep the order of first occurrence. Any
// line, before or after merging, above MaxLineQuantity is rejected with
// ErrQuantityTooLarge.
func MergeCartLines(lines []CartLine) ([]CartLine, error) {
	merged := make([]CartLine, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))

	for _, line := range lines {
		if line.Quantity > MaxLineQuantity {
			return nil, ErrQuantityTooLarge
		}
		if i, ok := index[line.ProductID]; ok {
			// both operands are bounded so the sum cannot overflow
			merged[i].Quantity += line.Quantity
			if merged[i].Quantity > MaxLineQuantity {
				return nil, ErrQuantityTooLarge
			}
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}

	return merged, nil
}

// PriceCart snapshots every line against its product and returns the items
// together with their subtotal. Every line's product must be present and the
// subtotal may not exceed MaxOrderTotal.
func PriceCart(lines []CartLine, products map[uuid.UUID]*Product) (OrderItems, decimal.Decimal, error) {
	items := make(OrderItems, 0, len(lines))
	subtotal := decimal.Zero

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, decimal.Zero, fmt.Errorf("product %s not loaded", line.ProductID)
		}

		item := OrderItem{
			ProductID:          product.ID,
			Name:               product.Name,
			Quantity:           line.Quantity,
			UnitPrice:          product.UnitPrice(line.Quantity),
			UnitPriceWholesale: product.WholesalePrice,
		}
		items = append(items, item)
		subtotal = subtotal.Add(item.LineTotal())
	}

	if subtotal.GreaterThan(MaxOrderTotal) {
		return nil, decimal.Zero, ErrTotalTooLarge
	}

	return items, subtotal, nil
}
