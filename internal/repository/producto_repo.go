package repository

import (
	"context"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventarioTotales aggregates the visible catalog for the dashboard.
type InventarioTotales struct {
	Capital decimal.Decimal // Σ price × stock
	Costo   decimal.Decimal // Σ cost × stock
	Stock   int64
}

// ProductoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	// FindByID returns the product regardless of its state.
	FindByID(ctx context.Context, id uint) (*model.Producto, error)
	// FindVisibleByID returns the product only while it and its category are active.
	FindVisibleByID(ctx context.Context, id uint) (*model.Producto, error)
	ListVisible(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, error)
	ListAll(ctx context.Context) ([]model.Producto, error)
	SoftDelete(ctx context.Context, id uint) (bool, error)
	CountActiveByCategoria(ctx context.Context, categoriaID uint) (int64, error)
	InventoryTotals(ctx context.Context) (InventarioTotales, error)

	// Used inside transactions; callers must pass the tx instance
	FindByIDTx(tx *gorm.DB, id uint) (*model.Producto, error)
	UpdateTx(tx *gorm.DB, p *model.Producto) error
	// DecrementStockTx subtracts cantidad only while the product is active,
	// has at least cantidad units and still sells at precio. It reports
	// whether a row was updated.
	DecrementStockTx(tx *gorm.DB, id uint, cantidad int, precio decimal.Decimal) (bool, error)
	SoftDeleteByCategoriaTx(tx *gorm.DB, categoriaID uint) (int64, error)
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

const visibleWhere = "products.is_active = ? AND categories.is_active = ?"

func (r *productoRepo) visible(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Joins("JOIN categories ON categories.id = products.category_id").
		Where(visibleWhere, true, true)
}

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Omit("Categoria").Create(p).Error
}

func (r *productoRepo) FindByID(ctx context.Context, id uint) (*model.Producto, error) {
	var p model.Producto
	if err := r.db.WithContext(ctx).Preload("Categoria").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) FindVisibleByID(ctx context.Context, id uint) (*model.Producto, error) {
	var p model.Producto
	err := r.visible(ctx).Preload("Categoria").Where("products.id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) ListVisible(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, error) {
	q := r.visible(ctx).Preload("Categoria")
	if filter.CategoriaID != 0 {
		q = q.Where("products.category_id = ?", filter.CategoriaID)
	}
	if filter.SoloDestacado {
		q = q.Where("products.is_featured = ?", true)
	}
	if term := strings.TrimSpace(filter.Busqueda); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", like, like)
	}
	var productos []model.Producto
	err := q.Order("products.created_at DESC, products.id DESC").Find(&productos).Error
	return productos, err
}

func (r *productoRepo) ListAll(ctx context.Context) ([]model.Producto, error) {
	var productos []model.Producto
	err := r.db.WithContext(ctx).Preload("Categoria").Order("id ASC").Find(&productos).Error
	return productos, err
}

func (r *productoRepo) UpdateTx(tx *gorm.DB, p *model.Producto) error {
	return tx.Model(p).Select(
		"name", "description", "category_id", "price", "cost", "stock", "image", "is_featured", "updated_at",
	).Updates(p).Error
}

func (r *productoRepo) SoftDelete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Producto{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	return res.RowsAffected > 0, res.Error
}

func (r *productoRepo) CountActiveByCategoria(ctx context.Context, categoriaID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Producto{}).
		Where("category_id = ? AND is_active = ?", categoriaID, true).
		Count(&n).Error
	return n, err
}

func (r *productoRepo) InventoryTotals(ctx context.Context) (InventarioTotales, error) {
	var row struct {
		Capital decimal.Decimal
		Costo   decimal.Decimal
		Stock   int64
	}
	err := r.visible(ctx).Model(&model.Producto{}).Select(
		"COALESCE(SUM(products.price * products.stock), 0) AS capital, " +
			"COALESCE(SUM(products.cost * products.stock), 0) AS costo, " +
			"COALESCE(SUM(products.stock), 0) AS stock",
	).Scan(&row).Error
	return InventarioTotales{Capital: row.Capital, Costo: row.Costo, Stock: row.Stock}, err
}

func (r *productoRepo) FindByIDTx(tx *gorm.DB, id uint) (*model.Producto, error) {
	var p model.Producto
	if err := tx.First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) DecrementStockTx(tx *gorm.DB, id uint, cantidad int, precio decimal.Decimal) (bool, error) {
	res := tx.Model(&model.Producto{}).
		Where("id = ? AND is_active = ? AND stock >= ? AND price = ?", id, true, cantidad, precio).
		Update("stock", gorm.Expr("stock - ?", cantidad))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productoRepo) SoftDeleteByCategoriaTx(tx *gorm.DB, categoriaID uint) (int64, error) {
	res := tx.Model(&model.Producto{}).
		Where("category_id = ? AND is_active = ?", categoriaID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
