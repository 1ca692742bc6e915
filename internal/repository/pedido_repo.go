package repository

import (
	"context"

	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PedidoStats holds the order side of the dashboard.
type PedidoStats struct {
	Total       int64
	Pendientes  int64
	Entregados  int64
	Facturacion decimal.Decimal // Σ total of delivered orders
}

type PedidoRepository interface {
	// Used inside transactions; callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.Pedido) error
	CreateItemTx(tx *gorm.DB, item *model.PedidoItem) error

	FindByID(ctx context.Context, id uint) (*model.Pedido, error)
	// ListItems preloads each item's product so the current image can be shown.
	ListItems(ctx context.Context, pedidoID uint) ([]model.PedidoItem, error)
	ListByUsuario(ctx context.Context, usuarioID uint) ([]model.Pedido, error)
	ListAll(ctx context.Context) ([]model.Pedido, error)
	UpdateEstado(ctx context.Context, id uint, estado string) (bool, error)
	Stats(ctx context.Context) (PedidoStats, error)
}

type pedidoRepo struct{ db *gorm.DB }

func NewPedidoRepository(db *gorm.DB) PedidoRepository { return &pedidoRepo{db: db} }

func (r *pedidoRepo) CreateTx(tx *gorm.DB, p *model.Pedido) error {
	return tx.Omit(clause.Associations).Create(p).Error
}

func (r *pedidoRepo) CreateItemTx(tx *gorm.DB, item *model.PedidoItem) error {
	return tx.Omit(clause.Associations).Create(item).Error
}

func (r *pedidoRepo) FindByID(ctx context.Context, id uint) (*model.Pedido, error) {
	var p model.Pedido
	if err := r.db.WithContext(ctx).Preload("Usuario").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pedidoRepo) ListItems(ctx context.Context, pedidoID uint) ([]model.PedidoItem, error) {
	var items []model.PedidoItem
	err := r.db.WithContext(ctx).Preload("Producto").
		Where("order_id = ?", pedidoID).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *pedidoRepo) ListByUsuario(ctx context.Context, usuarioID uint) ([]model.Pedido, error) {
	var pedidos []model.Pedido
	err := r.db.WithContext(ctx).Where("user_id = ?", usuarioID).
		Order("created_at DESC, id DESC").Find(&pedidos).Error
	return pedidos, err
}

func (r *pedidoRepo) ListAll(ctx context.Context) ([]model.Pedido, error) {
	var pedidos []model.Pedido
	err := r.db.WithContext(ctx).Preload("Usuario").
		Order("created_at DESC, id DESC").Find(&pedidos).Error
	return pedidos, err
}

func (r *pedidoRepo) UpdateEstado(ctx context.Context, id uint, estado string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Pedido{}).Where("id = ?", id).Update("status", estado)
	return res.RowsAffected > 0, res.Error
}

func (r *pedidoRepo) Stats(ctx context.Context) (PedidoStats, error) {
	var row struct {
		Total       int64
		Pendientes  int64
		Entregados  int64
		Facturacion decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.Pedido{}).Select(
		"COUNT(*) AS total, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pendientes, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS entregados, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN total ELSE 0 END), 0) AS facturacion",
		model.EstadoProcesando, model.EstadoEntregado, model.EstadoEntregado,
	).Scan(&row).Error
	return PedidoStats(row), err
}
