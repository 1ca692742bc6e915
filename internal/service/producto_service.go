package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/infra"
	"github.com/gianlucacontedesign/terpenitos/internal/model"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type ProductoService interface {
	Listar(ctx context.Context, filter dto.ProductoFilter) ([]dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uint) (*dto.ProductoResponse, error)
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	Actualizar(ctx context.Context, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Eliminar(ctx context.Context, id uint) error
	Exportar(ctx context.Context, w io.Writer) error
	HistorialPrecios(ctx context.Context, filter dto.HistorialPrecioFilter) (*dto.HistorialPrecioListResponse, error)
}

type productoService struct {
	repo          repository.ProductoRepository
	categoriaRepo repository.CategoriaRepository
	historialRepo repository.HistorialPrecioRepository
	tx            repository.Transactor
	cache         CatalogoCache
}

func NewProductoService(
	repo repository.ProductoRepository,
	categoriaRepo repository.CategoriaRepository,
	historialRepo repository.HistorialPrecioRepository,
	tx repository.Transactor,
	cache CatalogoCache,
) ProductoService {
	return &productoService{
		repo:          repo,
		categoriaRepo: categoriaRepo,
		historialRepo: historialRepo,
		tx:            tx,
		cache:         cacheOrNoop(cache),
	}
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) ([]dto.ProductoResponse, error) {
	productos, err := s.repo.ListVisible(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		out = append(out, productoToResponse(&productos[i]))
	}
	return out, nil
}

// ObtenerPorID serves visible products, from the catalog cache when possible.
func (s *productoService) ObtenerPorID(ctx context.Context, id uint) (*dto.ProductoResponse, error) {
	if cached, ok := s.cache.Producto(ctx, id); ok {
		return cached, nil
	}
	gen := s.cache.Generacion(ctx)
	p, err := s.repo.FindVisibleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	resp := productoToResponse(p)
	s.cache.GuardarProducto(ctx, &resp, gen)
	return &resp, nil
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	cat, err := s.categoriaActiva(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	p := &model.Producto{
		Nombre:      strings.TrimSpace(req.Name),
		Descripcion: req.Description,
		CategoriaID: cat.ID,
		Precio:      req.Price,
		Costo:       req.Cost,
		Stock:       *req.Stock,
		Imagen:      req.Image,
		Destacado:   req.IsFeatured,
		Activo:      true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("crear producto: %w", err)
	}
	p.Categoria = cat
	log.Info().Uint("producto_id", p.ID).Str("nombre", p.Nombre).Msg("producto creado")
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) Actualizar(ctx context.Context, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, req.ID)
	if err != nil || !p.Activo {
		if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	cat, err := s.categoriaActiva(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	cambio := model.HistorialPrecio{
		ProductoID:    p.ID,
		PrecioAntes:   p.Precio,
		PrecioDespues: req.Price,
		CostoAntes:    p.Costo,
		CostoDespues:  req.Cost,
	}

	p.Nombre = strings.TrimSpace(req.Name)
	p.Descripcion = req.Description
	p.CategoriaID = cat.ID
	p.Precio = req.Price
	p.Costo = req.Cost
	p.Stock = *req.Stock
	p.Imagen = req.Image
	p.Destacado = req.IsFeatured

	// The product row and its price history entry commit together.
	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, p); err != nil {
			return fmt.Errorf("actualizar producto: %w", err)
		}
		if cambio.PrecioAntes.Equal(cambio.PrecioDespues) && cambio.CostoAntes.Equal(cambio.CostoDespues) {
			return nil
		}
		if err := s.historialRepo.CreateTx(tx, &cambio); err != nil {
			return fmt.Errorf("registrar historial de precios: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cambio.ID != 0 {
		log.Info().
			Uint("producto_id", p.ID).
			Str("precio_antes", cambio.PrecioAntes.StringFixed(2)).
			Str("precio_despues", cambio.PrecioDespues.StringFixed(2)).
			Msg("precio actualizado")
	}
	p.Categoria = cat
	s.cache.InvalidarProductos(ctx, p.ID)
	resp := productoToResponse(p)
	return &resp, nil
}

// Eliminar is a soft delete; past order items keep resolving the product.
func (s *productoService) Eliminar(ctx context.Context, id uint) error {
	ok, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrProductoNoEncontrado
	}
	s.cache.InvalidarProductos(ctx, id)
	log.Info().Uint("producto_id", id).Msg("producto desactivado")
	return nil
}

func (s *productoService) Exportar(ctx context.Context, w io.Writer) error {
	productos, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	return infra.EscribirProductosXLSX(w, productos)
}

// HistorialPrecios lists price changes of any product, deleted ones included.
func (s *productoService) HistorialPrecios(ctx context.Context, filter dto.HistorialPrecioFilter) (*dto.HistorialPrecioListResponse, error) {
	if _, err := s.repo.FindByID(ctx, filter.ProductoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	rows, total, err := s.historialRepo.ListByProducto(ctx, filter.ProductoID, page, limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.HistorialPrecioItem, 0, len(rows))
	for _, h := range rows {
		items = append(items, dto.HistorialPrecioItem{
			ID:        h.ID,
			OldPrice:  h.PrecioAntes,
			NewPrice:  h.PrecioDespues,
			OldCost:   h.CostoAntes,
			NewCost:   h.CostoDespues,
			CreatedAt: formatFecha(h.CreatedAt),
		})
	}
	return &dto.HistorialPrecioListResponse{History: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *productoService) categoriaActiva(ctx context.Context, id uint) (*model.Categoria, error) {
	cat, err := s.categoriaRepo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoriaNoEncontrada
		}
		return nil, err
	}
	return cat, nil
}
