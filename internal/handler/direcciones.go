package handler

import (
	"errors"
	"net/http"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/gin-gonic/gin"
)

type DireccionesHandler struct{ svc service.DireccionService }

func NewDireccionesHandler(svc service.DireccionService) *DireccionesHandler {
	return &DireccionesHandler{svc: svc}
}

func (h *DireccionesHandler) GetUserAddresses(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context(), identidad(c).Identidad.UsuarioID)
	if err != nil {
		respondError(c, err, "Error al obtener direcciones")
		return
	}
	ok(c, gin.H{"addresses": resp})
}

// GetDefault answers success=false without an error status when the user
// has no default address.
func (h *DireccionesHandler) GetDefault(c *gin.Context) {
	resp, err := h.svc.Predeterminada(c.Request.Context(), identidad(c).Identidad.UsuarioID)
	if errors.Is(err, service.ErrSinDireccionDefault) {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		return
	}
	if err != nil {
		respondError(c, err, "Error al obtener la dirección")
		return
	}
	ok(c, gin.H{"address": resp})
}

func (h *DireccionesHandler) Create(c *gin.Context) {
	var req dto.CrearDireccionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), identidad(c).Identidad.UsuarioID, req)
	if err != nil {
		respondError(c, err, "Error al crear dirección")
		return
	}
	ok(c, gin.H{"message": "Dirección creada exitosamente", "address_id": resp.ID, "address": resp})
}

func (h *DireccionesHandler) Update(c *gin.Context) {
	var req dto.ActualizarDireccionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), identidad(c).Identidad.UsuarioID, req)
	if err != nil {
		respondError(c, err, "Error al actualizar dirección")
		return
	}
	ok(c, gin.H{"message": "Dirección actualizada exitosamente", "address": resp})
}

func (h *DireccionesHandler) Delete(c *gin.Context) {
	var req dto.IDRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), identidad(c).Identidad.UsuarioID, req.ID); err != nil {
		respondError(c, err, "Error al eliminar dirección")
		return
	}
	ok(c, gin.H{"message": "Dirección eliminada exitosamente"})
}
