package repository

import (
	"context"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"gorm.io/gorm"
)

// CategoriaRepository defines CRUD operations for Categoria. Reads only ever
// see active categories.
type CategoriaRepository interface {
	Create(ctx context.Context, c *model.Categoria) error
	ListActive(ctx context.Context) ([]model.Categoria, error)
	FindActiveByID(ctx context.Context, id uint) (*model.Categoria, error)
	// ExistsActiveByName matches case-insensitively and ignores excludeID.
	ExistsActiveByName(ctx context.Context, nombre string, excludeID uint) (bool, error)
	Update(ctx context.Context, c *model.Categoria) error
	SoftDeleteTx(tx *gorm.DB, id uint) (bool, error)
}

type categoriaRepository struct{ db *gorm.DB }

func NewCategoriaRepository(db *gorm.DB) CategoriaRepository {
	return &categoriaRepository{db: db}
}

func (r *categoriaRepository) Create(ctx context.Context, c *model.Categoria) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *categoriaRepository) ListActive(ctx context.Context) ([]model.Categoria, error) {
	var list []model.Categoria
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&list).Error
	return list, err
}

func (r *categoriaRepository) FindActiveByID(ctx context.Context, id uint) (*model.Categoria, error) {
	var c model.Categoria
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *categoriaRepository) ExistsActiveByName(ctx context.Context, nombre string, excludeID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Categoria{}).
		Where("LOWER(name) = ? AND is_active = ? AND id <> ?", strings.ToLower(strings.TrimSpace(nombre)), true, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r *categoriaRepository) Update(ctx context.Context, c *model.Categoria) error {
	return r.db.WithContext(ctx).Model(c).Select("name", "image", "updated_at").Updates(c).Error
}

func (r *categoriaRepository) SoftDeleteTx(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&model.Categoria{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return res.RowsAffected > 0, res.Error
}
