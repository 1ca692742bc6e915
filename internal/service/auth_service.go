package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/config"
	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/model"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

// bcrypt rejects longer inputs; the validator's max counts runes, not bytes.
const maxPasswordBytes = 72

func validarLargoPassword(pw string) error {
	if len(pw) > maxPasswordBytes {
		return ErrPasswordLarga
	}
	return nil
}

type AuthService interface {
	// Login checks the configured administrator first, then customers.
	Login(ctx context.Context, req dto.LoginRequest) (*dto.Identidad, error)
	Registrar(ctx context.Context, req dto.RegistroRequest) (uint, error)
	ActualizarPerfil(ctx context.Context, usuarioID uint, req dto.ActualizarPerfilRequest) (*dto.Identidad, error)
	CambiarPassword(ctx context.Context, usuarioID uint, req dto.CambiarPasswordRequest) error
}

type authService struct {
	repo repository.UsuarioRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.UsuarioRepository, cfg *config.Config) AuthService {
	if cfg.AdminPasswordHash == "" {
		log.Warn().Msg("ADMIN_PASSWORD_HASH vacío: el acceso de administrador está deshabilitado")
	}
	return &authService{repo: repo, cfg: cfg}
}

func normalizarEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.Identidad, error) {
	email := normalizarEmail(req.Email)

	if s.cfg.AdminPasswordHash != "" && email == normalizarEmail(s.cfg.AdminEmail) {
		if bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(req.Password)) == nil {
			return &dto.Identidad{Nombre: "Administrador", Email: email, EsAdmin: true}, nil
		}
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredencialesInvalidas
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrCredencialesInvalidas
	}
	return usuarioToIdentidad(u), nil
}

func (s *authService) Registrar(ctx context.Context, req dto.RegistroRequest) (uint, error) {
	if err := validarLargoPassword(req.Password); err != nil {
		return 0, err
	}
	email := normalizarEmail(req.Email)
	if email == normalizarEmail(s.cfg.AdminEmail) {
		return 0, ErrEmailRegistrado
	}
	existe, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if existe {
		return 0, ErrEmailRegistrado
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	u := &model.Usuario{
		Nombre:       strings.TrimSpace(req.Name),
		Email:        email,
		Telefono:     strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrEmailRegistrado
		}
		return 0, fmt.Errorf("crear usuario: %w", err)
	}
	log.Info().Uint("usuario_id", u.ID).Msg("usuario registrado")
	return u.ID, nil
}

func (s *authService) ActualizarPerfil(ctx context.Context, usuarioID uint, req dto.ActualizarPerfilRequest) (*dto.Identidad, error) {
	if err := s.repo.UpdatePerfil(ctx, usuarioID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Phone)); err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUsuarioNoEncontrado
		}
		return nil, err
	}
	return usuarioToIdentidad(u), nil
}

func (s *authService) CambiarPassword(ctx context.Context, usuarioID uint, req dto.CambiarPasswordRequest) error {
	if err := validarLargoPassword(req.NewPassword); err != nil {
		return err
	}
	u, err := s.repo.FindByID(ctx, usuarioID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUsuarioNoEncontrado
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrPasswordActualIncorrecta
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, usuarioID, string(hash))
}

func usuarioToIdentidad(u *model.Usuario) *dto.Identidad {
	return &dto.Identidad{
		UsuarioID: u.ID,
		Nombre:    u.Nombre,
		Email:     u.Email,
		Telefono:  u.Telefono,
	}
}
