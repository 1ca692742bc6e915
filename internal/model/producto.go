package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Producto is a catalog item. It is visible in the storefront only while both
// the product and its category are active.
type Producto struct {
	ID          uint            `gorm:"primaryKey"`
	Nombre      string          `gorm:"column:name;size:150;not null;index"`
	Descripcion string          `gorm:"column:description;type:text"`
	CategoriaID uint            `gorm:"column:category_id;not null;index"`
	Precio      decimal.Decimal `gorm:"column:price;type:decimal(10,2);not null"`
	Costo       decimal.Decimal `gorm:"column:cost;type:decimal(10,2);not null;default:0"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	Imagen      string          `gorm:"column:image;size:255"`
	Destacado   bool            `gorm:"column:is_featured;not null;default:false"`
	Activo      bool            `gorm:"column:is_active;not null;default:true;index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Categoria *Categoria `gorm:"foreignKey:CategoriaID"`
}

func (Producto) TableName() string { return "products" }
