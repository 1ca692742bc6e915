package model

import "time"

// Usuario is a storefront customer. The administrator is not stored here; it
// is a configured credential.
type Usuario struct {
	ID           uint   `gorm:"primaryKey"`
	Nombre       string `gorm:"column:name;size:100;not null"`
	Email        string `gorm:"column:email;size:150;uniqueIndex;not null"`
	Telefono     string `gorm:"column:phone;size:30"`
	PasswordHash string `gorm:"column:password;size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Usuario) TableName() string { return "users" }
