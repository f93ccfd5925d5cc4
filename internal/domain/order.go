package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus tracks whether the order notification went out
type OrderStatus string

const (
	OrderStatusPendingEmail OrderStatus = "pending_email"
	OrderStatusEmailed      OrderStatus = "emailed"
)

// OrderItem is a snapshot of a product line taken at checkout time. It is
// never joined back to the live product, so later edits or deletes of the
// product leave past orders untouched.
type OrderItem struct {
	ProductID          uuid.UUID       `json:"productId"`
	Name               string          `json:"name"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unitPrice"`
	UnitPriceWholesale decimal.Decimal `json:"unitPriceWholesale"`
}

// LineTotal is unit price times quantity
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderItems is stored as a single JSONB column.
type OrderItems []OrderItem

// Value implements driver.Valuer
func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		items = OrderItems{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal order items: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (items *OrderItems) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*items = OrderItems{}
		return nil
	default:
		return errors.New("unsupported type for order items")
	}
	return json.Unmarshal(raw, items)
}

// Order represents a checkout captured for manual payment follow-up
type Order struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	CustomerName string          `json:"customer_name" db:"customer_name"`
	Email        string          `json:"email" db:"email"`
	Phone        *string         `json:"phone" db:"phone"`
	Address      *string         `json:"address" db:"address"`
	Items        OrderItems      `json:"items" db:"items"`
	Subtotal     decimal.Decimal `json:"subtotal" db:"subtotal"`
	Total        decimal.Decimal `json:"total" db:"total"`
	Status       OrderStatus     `json:"status" db:"status"`
	EmailSentAt  *time.Time      `json:"email_sent_at" db:"email_sent_at"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
