package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemCarritoRequest struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity"   validate:"required,min=1"`
}

// CrearPedidoRequest is the checkout body. An empty (but present) cart is
// rejected by the service with its own message.
type CrearPedidoRequest struct {
	CartItems       []ItemCarritoRequest `json:"cart_items"       validate:"required,dive"`
	ShippingAddress string               `json:"shipping_address" validate:"required,max=500"`
	Phone           string               `json:"phone"            validate:"required,max=30"`
	Notes           string               `json:"notes"            validate:"max=1000"`
}

type ActualizarEstadoRequest struct {
	OrderID uint   `json:"order_id" validate:"required"`
	Status  string `json:"status"   validate:"required,oneof=Procesando Enviado Entregado Cancelado"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PedidoCreadoResponse struct {
	OrderID uint            `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

type PedidoResponse struct {
	ID              uint            `json:"id"`
	UserID          uint            `json:"user_id"`
	UserName        string          `json:"user_name,omitempty"`
	UserEmail       string          `json:"user_email,omitempty"`
	Status          string          `json:"status"`
	Total           decimal.Decimal `json:"total"`
	ShippingAddress string          `json:"shipping_address"`
	Phone           string          `json:"phone"`
	Notes           string          `json:"notes"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

type PedidoItemResponse struct {
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductImage string          `json:"product_image"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type PedidoDetalleResponse struct {
	Order PedidoResponse       `json:"order"`
	Items []PedidoItemResponse `json:"items"`
}

// EstadisticasResponse feeds the admin dashboard. Recomputed on every call.
// The dashboard reads the delivered count as shipped_orders and formats the
// money fields client side, so they go out as JSON numbers.
type EstadisticasResponse struct {
	TotalOrders     int64   `json:"total_orders"`
	PendingOrders   int64   `json:"pending_orders"`
	ShippedOrders   int64   `json:"shipped_orders"`
	DeliveredOrders int64   `json:"delivered_orders"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalCapital    float64 `json:"total_capital"`
	TotalStock      int64   `json:"total_stock"`
	EstimatedProfit float64 `json:"estimated_profit"`
}
