package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistorialPrecio records one change of a product's price or cost. Rows are
// append-only.
type HistorialPrecio struct {
	ID            uint            `gorm:"primaryKey"`
	ProductoID    uint            `gorm:"column:product_id;not null;index"`
	PrecioAntes   decimal.Decimal `gorm:"column:old_price;type:decimal(10,2);not null"`
	PrecioDespues decimal.Decimal `gorm:"column:new_price;type:decimal(10,2);not null"`
	CostoAntes    decimal.Decimal `gorm:"column:old_cost;type:decimal(10,2);not null"`
	CostoDespues  decimal.Decimal `gorm:"column:new_cost;type:decimal(10,2);not null"`
	CreatedAt     time.Time
}

func (HistorialPrecio) TableName() string { return "product_price_history" }
