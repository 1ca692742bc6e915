package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor runs a function inside a single database transaction. The
// transaction commits when fn returns nil and rolls back otherwise, so every
// multi-row write that must be all-or-nothing goes through it.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTransactor struct{ db *gorm.DB }

func NewTransactor(db *gorm.DB) Transactor { return &gormTransactor{db: db} }

func (t *gormTransactor) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return t.db.WithContext(ctx).Transaction(fn)
}
