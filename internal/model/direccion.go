package model

import "time"

// Direccion is a saved shipping address. At most one per user is Predeterminada.
type Direccion struct {
	ID             uint   `gorm:"primaryKey"`
	UsuarioID      uint   `gorm:"column:user_id;not null;index"`
	Alias          string `gorm:"column:alias;size:50;not null"`
	Linea1         string `gorm:"column:address_line1;size:255;not null"`
	Ciudad         string `gorm:"column:city;size:100;not null"`
	CodigoPostal   string `gorm:"column:postal_code;size:20;not null"`
	Predeterminada bool   `gorm:"column:is_default;not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Direccion) TableName() string { return "user_addresses" }
