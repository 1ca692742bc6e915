package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pedido. Any state may move to any other; only the admin changes them.
const (
	EstadoProcesando = "Procesando"
	EstadoEnviado    = "Enviado"
	EstadoEntregado  = "Entregado"
	EstadoCancelado  = "Cancelado"
)

// EstadosPedido is the closed set of allowed order statuses.
var EstadosPedido = []string{EstadoProcesando, EstadoEnviado, EstadoEntregado, EstadoCancelado}

// EstadoValido reports whether s belongs to EstadosPedido.
func EstadoValido(s string) bool {
	for _, e := range EstadosPedido {
		if e == s {
			return true
		}
	}
	return false
}

// Pedido is a customer order. It is created in the same transaction as its items.
type Pedido struct {
	ID             uint            `gorm:"primaryKey"`
	UsuarioID      uint            `gorm:"column:user_id;not null;index"`
	Estado         string          `gorm:"column:status;size:20;not null;default:'Procesando';index"`
	Total          decimal.Decimal `gorm:"column:total;type:decimal(10,2);not null"`
	DireccionEnvio string          `gorm:"column:shipping_address;type:text;not null"`
	Telefono       string          `gorm:"column:phone;size:30;not null"`
	Notas          string          `gorm:"column:notes;type:text"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Usuario *Usuario     `gorm:"foreignKey:UsuarioID"`
	Items   []PedidoItem `gorm:"foreignKey:PedidoID;constraint:OnDelete:CASCADE"`
}

func (Pedido) TableName() string { return "orders" }

// PedidoItem snapshots name and price at order time. Rows are never updated.
type PedidoItem struct {
	ID             uint            `gorm:"primaryKey"`
	PedidoID       uint            `gorm:"column:order_id;not null;index"`
	ProductoID     uint            `gorm:"column:product_id;not null;index"`
	Cantidad       int             `gorm:"column:quantity;not null"`
	Precio         decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null"`
	NombreProducto string          `gorm:"column:product_name;size:150;not null"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (PedidoItem) TableName() string { return "order_items" }

// Subtotal is Precio × Cantidad.
func (i PedidoItem) Subtotal() decimal.Decimal {
	return i.Precio.Mul(decimal.NewFromInt(int64(i.Cantidad)))
}
