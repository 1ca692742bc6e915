package handler

import (
	"bytes"
	"net/http"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/gin-gonic/gin"
)

type PedidosHandler struct{ svc service.PedidoService }

func NewPedidosHandler(svc service.PedidoService) *PedidosHandler {
	return &PedidosHandler{svc: svc}
}

// Create godoc
// @Summary Checkout del carrito
// @Description Crea el pedido y descuenta stock en una única transacción.
// @Tags order
// @Accept json
// @Produce json
// @Param body body dto.CrearPedidoRequest true "Carrito y datos de envío"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /api/orders [post]
func (h *PedidosHandler) Create(c *gin.Context) {
	var req dto.CrearPedidoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), identidad(c).Identidad.UsuarioID, req)
	if err != nil {
		respondError(c, err, "Error al crear el pedido")
		return
	}
	ok(c, gin.H{"message": "Pedido creado exitosamente", "order_id": resp.OrderID, "total": resp.Total})
}

func (h *PedidosHandler) GetUserOrders(c *gin.Context) {
	resp, err := h.svc.ListarPorUsuario(c.Request.Context(), identidad(c).Identidad.UsuarioID)
	if err != nil {
		respondError(c, err, "Error al obtener pedidos")
		return
	}
	ok(c, gin.H{"orders": resp})
}

func (h *PedidosHandler) GetAllOrders(c *gin.Context) {
	resp, err := h.svc.ListarTodos(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error al obtener pedidos")
		return
	}
	ok(c, gin.H{"orders": resp})
}

func (h *PedidosHandler) GetOrderDetails(c *gin.Context) {
	id, valid := queryUint(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, "ID de pedido requerido")
		return
	}
	resp, err := h.svc.ObtenerDetalle(c.Request.Context(), id, identidad(c).Identidad)
	if err != nil {
		respondError(c, err, "Error al obtener el pedido")
		return
	}
	ok(c, gin.H{"order": resp.Order, "items": resp.Items})
}

func (h *PedidosHandler) UpdateStatus(c *gin.Context) {
	var req dto.ActualizarEstadoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.ActualizarEstado(c.Request.Context(), req); err != nil {
		respondError(c, err, "Error al actualizar el estado del pedido")
		return
	}
	ok(c, gin.H{"message": "Estado del pedido actualizado exitosamente"})
}

// GetStats godoc
// @Summary Estadísticas del dashboard
// @Tags order
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apierror.APIError
// @Router /api/admin/stats [get]
func (h *PedidosHandler) GetStats(c *gin.Context) {
	resp, err := h.svc.Estadisticas(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error al obtener estadísticas")
		return
	}
	ok(c, gin.H{"stats": resp})
}

func (h *PedidosHandler) Export(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.svc.Exportar(c.Request.Context(), &buf); err != nil {
		respondError(c, err, "Error al exportar pedidos")
		return
	}
	enviarXLSX(c, "pedidos", buf.Bytes())
}
