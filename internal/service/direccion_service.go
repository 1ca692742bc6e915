package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/model"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"

	"gorm.io/gorm"
)

type DireccionService interface {
	Listar(ctx context.Context, usuarioID uint) ([]dto.DireccionResponse, error)
	Predeterminada(ctx context.Context, usuarioID uint) (*dto.DireccionResponse, error)
	Crear(ctx context.Context, usuarioID uint, req dto.CrearDireccionRequest) (*dto.DireccionResponse, error)
	Actualizar(ctx context.Context, usuarioID uint, req dto.ActualizarDireccionRequest) (*dto.DireccionResponse, error)
	Eliminar(ctx context.Context, usuarioID, id uint) error
}

type direccionService struct {
	repo repository.DireccionRepository
	tx   repository.Transactor
}

func NewDireccionService(repo repository.DireccionRepository, tx repository.Transactor) DireccionService {
	return &direccionService{repo: repo, tx: tx}
}

func (s *direccionService) Listar(ctx context.Context, usuarioID uint) ([]dto.DireccionResponse, error) {
	list, err := s.repo.ListByUsuario(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DireccionResponse, 0, len(list))
	for i := range list {
		out = append(out, direccionToResponse(&list[i]))
	}
	return out, nil
}

func (s *direccionService) Predeterminada(ctx context.Context, usuarioID uint) (*dto.DireccionResponse, error) {
	d, err := s.repo.FindDefault(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSinDireccionDefault
		}
		return nil, err
	}
	resp := direccionToResponse(d)
	return &resp, nil
}

// Crear and Actualizar clear the user's other defaults in the same
// transaction that writes the new default.
func (s *direccionService) Crear(ctx context.Context, usuarioID uint, req dto.CrearDireccionRequest) (*dto.DireccionResponse, error) {
	d := &model.Direccion{UsuarioID: usuarioID}
	aplicarDireccion(d, req)
	err := s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if d.Predeterminada {
			if err := s.repo.ClearDefaultTx(tx, usuarioID, 0); err != nil {
				return fmt.Errorf("limpiar predeterminada: %w", err)
			}
		}
		return s.repo.CreateTx(tx, d)
	})
	if err != nil {
		return nil, err
	}
	resp := direccionToResponse(d)
	return &resp, nil
}

func (s *direccionService) Actualizar(ctx context.Context, usuarioID uint, req dto.ActualizarDireccionRequest) (*dto.DireccionResponse, error) {
	d, err := s.propia(ctx, usuarioID, req.ID)
	if err != nil {
		return nil, err
	}
	aplicarDireccion(d, req.CrearDireccionRequest)
	err = s.tx.WithinTx(ctx, func(tx *gorm.DB) error {
		if d.Predeterminada {
			if err := s.repo.ClearDefaultTx(tx, usuarioID, d.ID); err != nil {
				return fmt.Errorf("limpiar predeterminada: %w", err)
			}
		}
		return s.repo.UpdateTx(tx, d)
	})
	if err != nil {
		return nil, err
	}
	resp := direccionToResponse(d)
	return &resp, nil
}

func (s *direccionService) Eliminar(ctx context.Context, usuarioID, id uint) error {
	if _, err := s.propia(ctx, usuarioID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// propia loads an address and checks that usuarioID owns it.
func (s *direccionService) propia(ctx context.Context, usuarioID, id uint) (*model.Direccion, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDireccionNoEncontrada
		}
		return nil, err
	}
	if d.UsuarioID != usuarioID {
		return nil, ErrAccesoDenegado
	}
	return d, nil
}

func aplicarDireccion(d *model.Direccion, req dto.CrearDireccionRequest) {
	d.Alias = req.Alias
	d.Linea1 = req.AddressLine1
	d.Ciudad = req.City
	d.CodigoPostal = req.PostalCode
	d.Predeterminada = req.IsDefault
}
