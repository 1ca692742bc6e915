package handler

import (
	"fmt"
	"net/http"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/gin-gonic/gin"
)

type CategoriasHandler struct{ svc service.CategoriaService }

func NewCategoriasHandler(svc service.CategoriaService) *CategoriasHandler {
	return &CategoriasHandler{svc: svc}
}

// GetAll godoc
// @Summary Categorías activas
// @Tags category
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/categories [get]
func (h *CategoriasHandler) GetAll(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error al listar categorías")
		return
	}
	ok(c, gin.H{"categories": resp})
}

func (h *CategoriasHandler) GetByID(c *gin.Context) {
	id, valid := queryUint(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, "ID de categoría requerido")
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Error al obtener la categoría")
		return
	}
	ok(c, gin.H{"category": resp})
}

func (h *CategoriasHandler) Create(c *gin.Context) {
	var req dto.CrearCategoriaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Error al crear categoría")
		return
	}
	ok(c, gin.H{"message": "Categoría creada exitosamente", "category_id": resp.ID, "category": resp})
}

func (h *CategoriasHandler) Update(c *gin.Context) {
	var req dto.ActualizarCategoriaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Error al actualizar categoría")
		return
	}
	ok(c, gin.H{"message": "Categoría actualizada exitosamente", "category": resp})
}

// CheckDelete answers success=false when deleting would deactivate products,
// so the admin UI asks for confirmation first.
func (h *CategoriasHandler) CheckDelete(c *gin.Context) {
	id, valid := queryUint(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, "ID de categoría requerido")
		return
	}
	resp, err := h.svc.VerificarEliminacion(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Error al verificar la categoría")
		return
	}
	if !resp.HasProducts {
		ok(c, gin.H{
			"has_products":  false,
			"product_count": 0,
			"message":       "La categoría puede eliminarse sin problemas",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":          false,
		"has_products":     true,
		"product_count":    resp.ProductCount,
		"other_categories": resp.OtherCategories,
		"message":          fmt.Sprintf("Esta categoría tiene %d producto(s) asociado(s)", resp.ProductCount),
	})
}

func (h *CategoriasHandler) Delete(c *gin.Context) {
	var req dto.IDRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), req.ID); err != nil {
		respondError(c, err, "Error al eliminar la categoría")
		return
	}
	ok(c, gin.H{"message": "Categoría eliminada exitosamente"})
}
