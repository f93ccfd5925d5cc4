package transport

import (
	"time"

	"storefront/internal/domain"
)

// ProductView is the public representation of a catalog product. Optional
// fields are null when absent and prices are plain numbers.
type ProductView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Description     *string `json:"description"`
	Category        *string `json:"category"`
	Dosage          *string `json:"dosage"`
	Volume          *string `json:"volume"`
	RetailPrice     float64 `json:"retailPrice"`
	WholesalePrice  float64 `json:"wholesalePrice"`
	WholesaleMinQty int     `json:"wholesaleMinQty"`
	Status          string  `json:"status"`
	ImageURL        *string `json:"imageUrl"`
}

// AdminProductView adds bookkeeping timestamps for the admin panel
type AdminProductView struct {
	ProductView
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderItemView struct {
	ProductID          string  `json:"productId"`
	Name               string  `json:"name"`
	Quantity           int     `json:"quantity"`
	UnitPrice          float64 `json:"unitPrice"`
	UnitPriceWholesale float64 `json:"unitPriceWholesale"`
	LineTotal          float64 `json:"lineTotal"`
}

type OrderView struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	Email        string          `json:"email"`
	Phone        *string         `json:"phone"`
	Address      *string         `json:"address"`
	Items        []OrderItemView `json:"items"`
	Subtotal     float64         `json:"subtotal"`
	Total        float64         `json:"total"`
	Status       string          `json:"status"`
	EmailSentAt  *time.Time      `json:"emailSentAt"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func toProductView(p *domain.Product) ProductView {
	return ProductView{
		ID:              p.ID.String(),
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		Category:        p.Category,
		Dosage:          p.Dosage,
		Volume:          p.Volume,
		RetailPrice:     p.RetailPrice.InexactFloat64(),
		WholesalePrice:  p.WholesalePrice.InexactFloat64(),
		WholesaleMinQty: p.WholesaleMinQty,
		Status:          string(p.Status),
		ImageURL:        p.ImageURL,
	}
}

func toProductViews(products []*domain.Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, toProductView(p))
	}
	return views
}

func toAdminProductView(p *domain.Product) AdminProductView {
	return AdminProductView{
		ProductView: toProductView(p),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toAdminProductViews(products []*domain.Product) []AdminProductView {
	views := make([]AdminProductView, 0, len(products))
	for _, p := range products {
		views = append(views, toAdminProductView(p))
	}
	return views
}

func toOrderView(o *domain.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemView{
			ProductID:          item.ProductID.String(),
			Name:               item.Name,
			Quantity:           item.Quantity,
			UnitPrice:          item.UnitPrice.InexactFloat64(),
			UnitPriceWholesale: item.UnitPriceWholesale.InexactFloat64(),
			LineTotal:          item.LineTotal().InexactFloat64(),
		})
	}

	return OrderView{
		ID:           o.ID.String(),
		CustomerName: o.CustomerName,
		Email:        o.Email,
		Phone:        o.Phone,
		Address:      o.Address,
		Items:        items,
		Subtotal:     o.Subtotal.InexactFloat64(),
		Total:        o.Total.InexactFloat64(),
		Status:       string(o.Status),
		EmailSentAt:  o.EmailSentAt,
		CreatedAt:    o.CreatedAt,
	}
}

func toOrderViews(orders []*domain.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return views
}
