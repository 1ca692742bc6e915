package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/infra"
	"github.com/gianlucacontedesign/terpenitos/internal/model"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PedidoService interface {
	Crear(ctx context.Context, usuarioID uint, req dto.CrearPedidoRequest) (*dto.PedidoCreadoResponse, error)
	ListarPorUsuario(ctx context.Context, usuarioID uint) ([]dto.PedidoResponse, error)
	ListarTodos(ctx context.Context) ([]dto.PedidoResponse, error)
	ObtenerDetalle(ctx context.Context, id uint, solicitante *dto.Identidad) (*dto.PedidoDetalleResponse, error)
	ActualizarEstado(ctx context.Context, req dto.ActualizarEstadoRequest) error
	Estadisticas(ctx context.Context) (*dto.EstadisticasResponse, error)
	Exportar(ctx context.Context, w io.Writer) error
}

type pedidoService struct {
	repo         repository.PedidoRepository
	productoRepo repository.ProductoRepository
	tx           repository.Transactor
	cache        CatalogoCache
	eventos      []PedidoEventos
}

func NewPedidoService(
	repo repository.PedidoRepository,
	productoRepo repository.ProductoRepository,
	tx repository.Transactor,
	cache CatalogoCache,
	eventos ...PedidoEventos,
) PedidoService {
	return &pedidoService{
		repo:         repo,
		productoRepo: productoRepo,
		tx:           tx,
		cache:        cacheOrNoop(cache),
		eventos:      eventos,
	}
}

// lineaPedido is a cart line resolved against the catalog before the
// transaction opens.
type lineaPedido struct {
	productoID uint
	nombre     string
	precio     decimal.Decimal
	cantidad   int
}

// ── Crear ─────────────────────────────────────────────────────────────────────
//   1. Reject an empty cart before any lookup
//   2. Resolve every line: product must be visible, stock must cover the
//      quantity summed over duplicate lines
//   3. total = Σ price × quantity with the prices read in step 2
//   4. BEGIN TX: insert order; per line insert item and run the guarded
//      decrement. Zero affected rows aborts the whole transaction.
//   5. COMMIT, then invalidate cache entries and notify listeners

func (s *pedidoService) Crear(ctx context.Context, usuarioID uint, req dto.CrearPedidoRequest) (*dto.PedidoCreadoResponse, error) {
	if len(req.CartItems) == 0 {
		return nil, ErrCarritoVacio
	}

	lineas := make([]lineaPedido, 0, len(req.CartItems))
	solicitado := make(map[uint]int, len(req.CartItems))
	total := decimal.Zero

	for _, item := range req.CartItems {
		if item.Quantity < 1 {
			return nil, ErrCantidadInvalida
		}
		p, err := s.productoRepo.FindVisibleByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductoNoEncontrado
			}
			return nil, fmt.Errorf("buscar producto %d: %w", item.ProductID, err)
		}
		solicitado[p.ID] += item.Quantity
		if solicitado[p.ID] > p.Stock {
			return nil, &StockInsuficienteError{Producto: p.Nombre}
		}
		total = total.Add(p.Precio.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lineas = append(lineas, lineaPedido{
			productoID: p.ID,
			nombre:     p.Nombre,
			precio:     p.Precio,
			cantidad:   item.Quantity,
		})
	}

	pedido := model.Pedido{
		UsuarioID:      usuarioID,
		Estado:         model.EstadoProcesando,
		Total:          total,
		DireccionEnvio: req.ShippingAddress,
		Telefono:       req.Phone,
		Notas:          req.Notes,
	}

	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, &pedido); err != nil {
			return fmt.Errorf("insertar pedido: %w", err)
		}
		items := make([]model.PedidoItem, 0, len(lineas))
		for _, l := range lineas {
			item := model.PedidoItem{
				PedidoID:       pedido.ID,
				ProductoID:     l.productoID,
				Cantidad:       l.cantidad,
				Precio:         l.precio,
				NombreProducto: l.nombre,
			}
			if err := s.repo.CreateItemTx(tx, &item); err != nil {
				return fmt.Errorf("insertar item: %w", err)
			}
			ok, err := s.productoRepo.DecrementStockTx(tx, l.productoID, l.cantidad, l.precio)
			if err != nil {
				return fmt.Errorf("descontar stock: %w", err)
			}
			if !ok {
				return s.motivoRechazo(tx, l)
			}
			items = append(items, item)
		}
		pedido.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(lineas))
	for _, l := range lineas {
		ids = append(ids, l.productoID)
	}
	s.cache.InvalidarProductos(ctx, ids...)

	log.Info().
		Uint("pedido_id", pedido.ID).
		Uint("usuario_id", usuarioID).
		Str("total", total.StringFixed(2)).
		Int("items", len(lineas)).
		Msg("pedido creado")

	for _, ev := range s.eventos {
		ev.PedidoCreado(ctx, &pedido)
	}

	return &dto.PedidoCreadoResponse{OrderID: pedido.ID, Total: total}, nil
}

// motivoRechazo explains why a guarded decrement matched no row. It re-reads
// the product inside the same transaction; any result aborts it.
func (s *pedidoService) motivoRechazo(tx *gorm.DB, l lineaPedido) error {
	p, err := s.productoRepo.FindByIDTx(tx, l.productoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductoNoEncontrado
		}
		return fmt.Errorf("releer producto %d: %w", l.productoID, err)
	}
	switch {
	case !p.Activo:
		return ErrProductoNoEncontrado
	case !p.Precio.Equal(l.precio):
		return &PrecioModificadoError{Producto: l.nombre}
	default:
		return &StockInsuficienteError{Producto: l.nombre}
	}
}

func (s *pedidoService) ListarPorUsuario(ctx context.Context, usuarioID uint) ([]dto.PedidoResponse, error) {
	pedidos, err := s.repo.ListByUsuario(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	return pedidosToResponse(pedidos), nil
}

func (s *pedidoService) ListarTodos(ctx context.Context) ([]dto.PedidoResponse, error) {
	pedidos, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return pedidosToResponse(pedidos), nil
}

func pedidosToResponse(pedidos []model.Pedido) []dto.PedidoResponse {
	out := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		out = append(out, pedidoToResponse(&pedidos[i]))
	}
	return out
}

// ObtenerDetalle is open to the order owner and to the administrator.
func (s *pedidoService) ObtenerDetalle(ctx context.Context, id uint, solicitante *dto.Identidad) (*dto.PedidoDetalleResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPedidoNoEncontrado
		}
		return nil, err
	}
	if solicitante == nil || (!solicitante.EsAdmin && solicitante.UsuarioID != p.UsuarioID) {
		return nil, ErrAccesoDenegado
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := &dto.PedidoDetalleResponse{
		Order: pedidoToResponse(p),
		Items: make([]dto.PedidoItemResponse, 0, len(items)),
	}
	for i := range items {
		resp.Items = append(resp.Items, pedidoItemToResponse(&items[i]))
	}
	return resp, nil
}

func (s *pedidoService) ActualizarEstado(ctx context.Context, req dto.ActualizarEstadoRequest) error {
	if !model.EstadoValido(req.Status) {
		return ErrEstadoInvalido
	}
	ok, err := s.repo.UpdateEstado(ctx, req.OrderID, req.Status)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPedidoNoEncontrado
	}
	log.Info().Uint("pedido_id", req.OrderID).Str("estado", req.Status).Msg("estado de pedido actualizado")

	if len(s.eventos) > 0 {
		p, err := s.repo.FindByID(ctx, req.OrderID)
		if err != nil {
			log.Warn().Err(err).Uint("pedido_id", req.OrderID).Msg("no se pudo releer el pedido para notificar")
			return nil
		}
		for _, ev := range s.eventos {
			ev.EstadoActualizado(ctx, p)
		}
	}
	return nil
}

// Estadisticas aggregates committed data on every call.
func (s *pedidoService) Estadisticas(ctx context.Context) (*dto.EstadisticasResponse, error) {
	ps, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("estadisticas de pedidos: %w", err)
	}
	inv, err := s.productoRepo.InventoryTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("totales de inventario: %w", err)
	}
	return &dto.EstadisticasResponse{
		TotalOrders:     ps.Total,
		PendingOrders:   ps.Pendientes,
		ShippedOrders:   ps.Entregados,
		DeliveredOrders: ps.Entregados,
		TotalRevenue:    ps.Facturacion.Round(2).InexactFloat64(),
		TotalCapital:    inv.Capital.Round(2).InexactFloat64(),
		TotalStock:      inv.Stock,
		EstimatedProfit: ps.Facturacion.Sub(inv.Costo).Round(2).InexactFloat64(),
	}, nil
}

func (s *pedidoService) Exportar(ctx context.Context, w io.Writer) error {
	pedidos, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	return infra.EscribirPedidosXLSX(w, pedidos)
}
