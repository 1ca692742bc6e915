package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Name        string          `json:"name"        validate:"required,min=2,max=150"`
	Description string          `json:"description"`
	CategoryID  uint            `json:"category_id" validate:"required"`
	Price       decimal.Decimal `json:"price"       validate:"gt=0"`
	Cost        decimal.Decimal `json:"cost"        validate:"gte=0"`
	Stock       *int            `json:"stock"       validate:"required,min=0"`
	Image       string          `json:"image"       validate:"max=255"`
	IsFeatured  bool            `json:"is_featured"`
}

// ActualizarProductoRequest replaces every editable field of the product.
type ActualizarProductoRequest struct {
	ID uint `json:"id" validate:"required"`
	CrearProductoRequest
}

// IDRequest is the body of every delete-by-id action.
type IDRequest struct {
	ID uint `json:"id" validate:"required"`
}

// ─── Filter ──────────────────────────────────────────────────────────────────

// ProductoFilter narrows the storefront listing. Zero values mean "no filter".
type ProductoFilter struct {
	CategoriaID   uint
	SoloDestacado bool
	Busqueda      string
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID           uint             `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	CategoryID   uint             `json:"category_id"`
	CategoryName string           `json:"category_name"`
	Price        decimal.Decimal  `json:"price"`
	Cost         *decimal.Decimal `json:"cost,omitempty"`
	Stock        int              `json:"stock"`
	Image        string           `json:"image"`
	IsFeatured   bool             `json:"is_featured"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    string           `json:"created_at"`
}

// SinCosto returns a copy without the cost field, for non-admin callers.
func (p ProductoResponse) SinCosto() ProductoResponse {
	p.Cost = nil
	return p
}
