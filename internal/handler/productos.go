package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/gin-gonic/gin"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ProductosHandler struct{ svc service.ProductoService }

func NewProductosHandler(svc service.ProductoService) *ProductosHandler {
	return &ProductosHandler{svc: svc}
}

func (h *ProductosHandler) listar(c *gin.Context, filter dto.ProductoFilter) {
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Error al listar productos")
		return
	}
	if !identidad(c).EsAdmin() {
		for i := range resp {
			resp[i] = resp[i].SinCosto()
		}
	}
	ok(c, gin.H{"products": resp})
}

// GetAll godoc
// @Summary Catálogo visible
// @Tags product
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/products [get]
func (h *ProductosHandler) GetAll(c *gin.Context) {
	h.listar(c, dto.ProductoFilter{})
}

func (h *ProductosHandler) GetFeatured(c *gin.Context) {
	h.listar(c, dto.ProductoFilter{SoloDestacado: true})
}

func (h *ProductosHandler) GetByCategory(c *gin.Context) {
	id, valid := queryUint(c, "category_id")
	if !valid {
		fail(c, http.StatusBadRequest, "ID de categoría requerido")
		return
	}
	h.listar(c, dto.ProductoFilter{CategoriaID: id})
}

func (h *ProductosHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, "Término de búsqueda requerido")
		return
	}
	h.listar(c, dto.ProductoFilter{Busqueda: q})
}

// GetByID godoc
// @Summary Detalle de producto
// @Tags product
// @Produce json
// @Param id query int true "ID de producto"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apierror.APIError
// @Router /api/products/detail [get]
func (h *ProductosHandler) GetByID(c *gin.Context) {
	id, valid := queryUint(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, "ID de producto requerido")
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Error al obtener el producto")
		return
	}
	p := *resp
	if !identidad(c).EsAdmin() {
		p = p.SinCosto()
	}
	ok(c, gin.H{"product": p})
}

func (h *ProductosHandler) Create(c *gin.Context) {
	var req dto.CrearProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Error al crear producto")
		return
	}
	ok(c, gin.H{"message": "Producto creado exitosamente", "product_id": resp.ID, "product": resp})
}

func (h *ProductosHandler) Update(c *gin.Context) {
	var req dto.ActualizarProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Error al actualizar producto")
		return
	}
	ok(c, gin.H{"message": "Producto actualizado exitosamente", "product": resp})
}

func (h *ProductosHandler) Delete(c *gin.Context) {
	var req dto.IDRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), req.ID); err != nil {
		respondError(c, err, "Error al eliminar producto")
		return
	}
	ok(c, gin.H{"message": "Producto eliminado exitosamente"})
}

// Export streams the full catalog, inactive products included, as XLSX.
func (h *ProductosHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.Exportar(c.Request.Context(), &buf); err != nil {
		respondError(c, err, "Error al exportar productos")
		return
	}
	enviarXLSX(c, "productos", buf.Bytes())
}

// PriceHistory lists a product's price and cost changes, newest first.
func (h *ProductosHandler) PriceHistory(c *gin.Context) {
	var filter dto.HistorialPrecioFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.HistorialPrecios(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Error al obtener el historial de precios")
		return
	}
	ok(c, gin.H{"history": resp.History, "total": resp.Total, "page": resp.Page, "limit": resp.Limit})
}

func enviarXLSX(c *gin.Context, prefijo string, data []byte) {
	nombre := fmt.Sprintf("%s_%s.xlsx", prefijo, time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+nombre+`"`)
	c.Data(http.StatusOK, mimeXLSX, data)
}
