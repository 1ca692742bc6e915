package dto

import "github.com/shopspring/decimal"

// HistorialPrecioItem is one row of a product's price history.
type HistorialPrecioItem struct {
	ID        uint            `json:"id"`
	OldPrice  decimal.Decimal `json:"old_price"`
	NewPrice  decimal.Decimal `json:"new_price"`
	OldCost   decimal.Decimal `json:"old_cost"`
	NewCost   decimal.Decimal `json:"new_cost"`
	CreatedAt string          `json:"created_at"`
}

// HistorialPrecioFilter is the query of product.priceHistory.
type HistorialPrecioFilter struct {
	ProductoID uint `form:"id"    json:"id"    validate:"required"`
	Page       int  `form:"page"  json:"page"  validate:"omitempty,min=1"`
	Limit      int  `form:"limit" json:"limit" validate:"omitempty,min=1,max=200"`
}

type HistorialPrecioListResponse struct {
	History []HistorialPrecioItem `json:"history"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	Limit   int                   `json:"limit"`
}
