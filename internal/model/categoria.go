package model

import "time"

// Categoria groups products. Categories are soft-deleted through Activo.
type Categoria struct {
	ID        uint   `gorm:"primaryKey"`
	Nombre    string `gorm:"column:name;size:100;not null;index"`
	Imagen    string `gorm:"column:image;size:255"`
	Activo    bool   `gorm:"column:is_active;not null;default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName keeps the storefront's table names.
func (Categoria) TableName() string { return "categories" }
