package handler

import (
	"net/http"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/middleware"
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Sesiones rotates the caller's session on login, logout and profile changes.
type Sesiones interface {
	Iniciar(c *gin.Context, identidad *dto.Identidad) (*middleware.RequestContext, error)
	Cerrar(c *gin.Context) (*middleware.RequestContext, error)
}

type AuthHandler struct {
	svc      service.AuthService
	sesiones Sesiones
}

func NewAuthHandler(svc service.AuthService, sesiones Sesiones) *AuthHandler {
	return &AuthHandler{svc: svc, sesiones: sesiones}
}

// Login godoc
// @Summary Login de cliente o administrador
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credenciales"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} apierror.APIError
// @Router /api.php [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	id, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Error al iniciar sesión")
		return
	}
	rc, err := h.sesiones.Iniciar(c, id)
	if err != nil {
		respondError(c, err, "Error al iniciar sesión")
		return
	}
	ok(c, gin.H{"message": "Login exitoso", "user": id.Response(), "csrf_token": rc.CSRFToken})
}

// Register godoc
// @Summary Registro de cliente
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RegistroRequest true "Datos del cliente"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apierror.ValidationError
// @Router /api.php [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegistroRequest
	if !bindAndValidate(c, &req) {
		return
	}
	userID, err := h.svc.Registrar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Error al registrar usuario")
		return
	}
	ok(c, gin.H{"message": "Usuario registrado exitosamente", "user_id": userID})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	rc, err := h.sesiones.Cerrar(c)
	if err != nil {
		respondError(c, err, "Error al cerrar sesión")
		return
	}
	ok(c, gin.H{"message": "Sesión cerrada exitosamente", "csrf_token": rc.CSRFToken})
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	rc := identidad(c)
	if !rc.Autenticado() {
		fail(c, http.StatusUnauthorized, "No autenticado")
		return
	}
	ok(c, gin.H{"user": rc.Identidad.Response()})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req dto.ActualizarPerfilRequest
	if !bindAndValidate(c, &req) {
		return
	}
	rc := identidad(c)
	id, err := h.svc.ActualizarPerfil(c.Request.Context(), rc.Identidad.UsuarioID, req)
	if err != nil {
		respondError(c, err, "Error al actualizar perfil")
		return
	}
	// The session carries the name and phone, so it is reissued.
	if _, err := h.sesiones.Iniciar(c, id); err != nil {
		log.Warn().Err(err).Uint("usuario_id", id.UsuarioID).Msg("no se pudo renovar la sesión tras actualizar el perfil")
	}
	ok(c, gin.H{"message": "Perfil actualizado exitosamente", "user": id.Response()})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req dto.CambiarPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.CambiarPassword(c.Request.Context(), identidad(c).Identidad.UsuarioID, req); err != nil {
		respondError(c, err, "Error al cambiar la contraseña")
		return
	}
	ok(c, gin.H{"message": "Contraseña actualizada exitosamente"})
}

// CSRF hands the current session's token to clients that cannot read it
// from a rendered page.
func (h *AuthHandler) CSRF(c *gin.Context) {
	ok(c, gin.H{"csrf_token": identidad(c).CSRFToken})
}
