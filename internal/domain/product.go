package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultWholesaleMinQty is the wholesale threshold applied when none is given.
const DefaultWholesaleMinQty = 10

// ProductStatus controls catalog visibility
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusSoon     ProductStatus = "soon"
	ProductStatusArchived ProductStatus = "archived"
)

// PublicProductStatuses are the statuses shown in the catalog and accepted at checkout.
var PublicProductStatuses = []ProductStatus{ProductStatusActive, ProductStatusSoon}

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusActive, ProductStatusSoon, ProductStatusArchived:
		return true
	}
	return false
}

// Public reports whether products in this status are visible and purchasable.
func (s ProductStatus) Public() bool {
	return s == ProductStatusActive || s == ProductStatusSoon
}

// Product represents a product in the catalog
type Product struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Slug            string          `json:"slug" db:"slug"`
	Description     *string         `json:"description" db:"description"`
	Category        *string         `json:"category" db:"category"`
	Dosage          *string         `json:"dosage" db:"dosage"`
	Volume          *string         `json:"volume" db:"volume"`
	RetailPrice     decimal.Decimal `json:"retail_price" db:"retail_price"`
	WholesalePrice  decimal.Decimal `json:"wholesale_price" db:"wholesale_price"`
	WholesaleMinQty int             `json:"wholesale_min_qty" db:"wholesale_min_qty"`
	Status          ProductStatus   `json:"status" db:"status"`
	ImageURL        *string         `json:"image_url" db:"image_url"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// UnitPrice returns the price of one unit when buying quantity units: the
// wholesale price once quantity reaches WholesaleMinQty, the retail price
// otherwise, rounded to cents.
func (p *Product) UnitPrice(quantity int) decimal.Decimal {
	price := p.RetailPrice
	if quantity >= p.WholesaleMinQty {
		price = p.WholesalePrice
	}
	return price.Round(2)
}
