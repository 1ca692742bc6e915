package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/model"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CategoriaService interface {
	Listar(ctx context.Context) ([]dto.CategoriaResponse, error)
	ObtenerPorID(ctx context.Context, id uint) (*dto.CategoriaResponse, error)
	Crear(ctx context.Context, req dto.CrearCategoriaRequest) (*dto.CategoriaResponse, error)
	Actualizar(ctx context.Context, req dto.ActualizarCategoriaRequest) (*dto.CategoriaResponse, error)
	VerificarEliminacion(ctx context.Context, id uint) (*dto.VerificarEliminacionResponse, error)
	Eliminar(ctx context.Context, id uint) error
}

type categoriaService struct {
	repo         repository.CategoriaRepository
	productoRepo repository.ProductoRepository
	tx           repository.Transactor
	cache        CatalogoCache
}

func NewCategoriaService(
	repo repository.CategoriaRepository,
	productoRepo repository.ProductoRepository,
	tx repository.Transactor,
	cache CatalogoCache,
) CategoriaService {
	return &categoriaService{repo: repo, productoRepo: productoRepo, tx: tx, cache: cacheOrNoop(cache)}
}

func (s *categoriaService) Listar(ctx context.Context) ([]dto.CategoriaResponse, error) {
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoriaResponse, 0, len(list))
	for i := range list {
		out = append(out, categoriaToResponse(&list[i]))
	}
	return out, nil
}

func (s *categoriaService) ObtenerPorID(ctx context.Context, id uint) (*dto.CategoriaResponse, error) {
	c, err := s.activa(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := categoriaToResponse(c)
	return &resp, nil
}

func (s *categoriaService) Crear(ctx context.Context, req dto.CrearCategoriaRequest) (*dto.CategoriaResponse, error) {
	nombre := strings.TrimSpace(req.Name)
	existe, err := s.repo.ExistsActiveByName(ctx, nombre, 0)
	if err != nil {
		return nil, err
	}
	if existe {
		return nil, ErrCategoriaDuplicada
	}
	c := &model.Categoria{Nombre: nombre, Imagen: req.Image, Activo: true}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("crear categoria: %w", err)
	}
	resp := categoriaToResponse(c)
	return &resp, nil
}

func (s *categoriaService) Actualizar(ctx context.Context, req dto.ActualizarCategoriaRequest) (*dto.CategoriaResponse, error) {
	c, err := s.activa(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	nombre := strings.TrimSpace(req.Name)
	existe, err := s.repo.ExistsActiveByName(ctx, nombre, c.ID)
	if err != nil {
		return nil, err
	}
	if existe {
		return nil, ErrCategoriaDuplicada
	}
	c.Nombre = nombre
	c.Imagen = req.Image
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("actualizar categoria: %w", err)
	}
	// cached products embed the category name
	s.cache.InvalidarTodo(ctx)
	resp := categoriaToResponse(c)
	return &resp, nil
}

func (s *categoriaService) VerificarEliminacion(ctx context.Context, id uint) (*dto.VerificarEliminacionResponse, error) {
	if _, err := s.activa(ctx, id); err != nil {
		return nil, err
	}
	n, err := s.productoRepo.CountActiveByCategoria(ctx, id)
	if err != nil {
		return nil, err
	}
	todas, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.VerificarEliminacionResponse{
		HasProducts:     n > 0,
		ProductCount:    n,
		OtherCategories: make([]dto.CategoriaResponse, 0, len(todas)),
	}
	for i := range todas {
		if todas[i].ID != id {
			resp.OtherCategories = append(resp.OtherCategories, categoriaToResponse(&todas[i]))
		}
	}
	return resp, nil
}

// Eliminar deactivates the category's products and then the category in a
// single transaction; neither change survives a failure of the other.
func (s *categoriaService) Eliminar(ctx context.Context, id uint) error {
	if _, err := s.activa(ctx, id); err != nil {
		return err
	}
	var productos int64
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		n, err := s.productoRepo.SoftDeleteByCategoriaTx(tx, id)
		if err != nil {
			return fmt.Errorf("desactivar productos: %w", err)
		}
		productos = n
		ok, err := s.repo.SoftDeleteTx(tx, id)
		if err != nil {
			return fmt.Errorf("desactivar categoria: %w", err)
		}
		if !ok {
			return ErrCategoriaNoEncontrada
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.InvalidarTodo(ctx)
	log.Info().Uint("categoria_id", id).Int64("productos", productos).Msg("categoria desactivada")
	return nil
}

func (s *categoriaService) activa(ctx context.Context, id uint) (*model.Categoria, error) {
	c, err := s.repo.FindActiveByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoriaNoEncontrada
		}
		return nil, err
	}
	return c, nil
}
