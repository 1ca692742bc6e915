package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubProductos struct {
	list      []dto.ProductoResponse
	historial dto.HistorialPrecioFilter
}

func (s *stubProductos) Listar(context.Context, dto.ProductoFilter) ([]dto.ProductoResponse, error) {
	out := make([]dto.ProductoResponse, len(s.list))
	copy(out, s.list)
	return out, nil
}
func (s *stubProductos) ObtenerPorID(_ context.Context, id uint) (*dto.ProductoResponse, error) {
	p := s.list[0]
	return &p, nil
}
func (s *stubProductos) Crear(context.Context, dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	return nil, nil
}
func (s *stubProductos) Actualizar(context.Context, dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	return nil, nil
}
func (s *stubProductos) Eliminar(context.Context, uint) error {
	return nil
}
func (s *stubProductos) Exportar(context.Context, io.Writer) error {
	return nil
}
func (s *stubProductos) HistorialPrecios(_ context.Context, f dto.HistorialPrecioFilter) (*dto.HistorialPrecioListResponse, error) {
	s.historial = f
	return &dto.HistorialPrecioListResponse{History: []dto.HistorialPrecioItem{}, Page: f.Page, Limit: f.Limit}, nil
}

type stubCategorias struct{ verificar *dto.VerificarEliminacionResponse }

func (s *stubCategorias) Listar(context.Context) ([]dto.CategoriaResponse, error) {
	return nil, nil
}
func (s *stubCategorias) ObtenerPorID(context.Context, uint) (*dto.CategoriaResponse, error) {
	return nil, nil
}
func (s *stubCategorias) Crear(context.Context, dto.CrearCategoriaRequest) (*dto.CategoriaResponse, error) {
	return nil, nil
}
func (s *stubCategorias) Actualizar(context.Context, dto.ActualizarCategoriaRequest) (*dto.CategoriaResponse, error) {
	return nil, nil
}
func (s *stubCategorias) VerificarEliminacion(context.Context, uint) (*dto.VerificarEliminacionResponse, error) {
	return s.verificar, nil
}
func (s *stubCategorias) Eliminar(context.Context, uint) error {
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func init() { gin.SetMode(gin.TestMode) }

func serve(h gin.HandlerFunc, target string, rc *middleware.RequestContext) map[string]any {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	if rc != nil {
		c.Set(middleware.RequestContextKey, rc)
	}
	h(c)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	out["_status"] = float64(w.Code)
	return out
}

func costo() *decimal.Decimal {
	d := decimal.RequireFromString("60.00")
	return &d
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestProductos_CostOnlyForAdmin(t *testing.T) {
	svc := &stubProductos{list: []dto.ProductoResponse{{ID: 1, Name: "LED", Price: decimal.NewFromInt(100), Cost: costo()}}}
	h := NewProductosHandler(svc)

	anon := serve(h.GetAll, "/", nil)
	require.Equal(t, true, anon["success"])
	p := anon["products"].([]any)[0].(map[string]any)
	assert.NotContains(t, p, "cost")

	cliente := &middleware.RequestContext{Identidad: &dto.Identidad{UsuarioID: 3}}
	det := serve(h.GetByID, "/?id=1", cliente)
	assert.NotContains(t, det["product"].(map[string]any), "cost")

	admin := &middleware.RequestContext{Identidad: &dto.Identidad{EsAdmin: true}}
	adm := serve(h.GetAll, "/", admin)
	assert.Contains(t, adm["products"].([]any)[0].(map[string]any), "cost")

	assert.NotNil(t, svc.list[0].Cost, "stored responses are never mutated")
}

func TestProductos_QueryValidation(t *testing.T) {
	h := NewProductosHandler(&stubProductos{})

	res := serve(h.GetByCategory, "/?category_id=abc", nil)
	assert.Equal(t, float64(http.StatusBadRequest), res["_status"])
	assert.Equal(t, false, res["success"])

	res = serve(h.Search, "/?q=%20%20", nil)
	assert.Equal(t, float64(http.StatusBadRequest), res["_status"])

	res = serve(h.GetByID, "/?id=0", nil)
	assert.Equal(t, float64(http.StatusBadRequest), res["_status"])
}

func TestProductos_PriceHistoryQuery(t *testing.T) {
	svc := &stubProductos{}
	h := NewProductosHandler(svc)

	res := serve(h.PriceHistory, "/?id=7&page=2&limit=10", nil)
	require.Equal(t, true, res["success"])
	assert.Equal(t, dto.HistorialPrecioFilter{ProductoID: 7, Page: 2, Limit: 10}, svc.historial)

	res = serve(h.PriceHistory, "/?page=1", nil)
	assert.Equal(t, float64(http.StatusBadRequest), res["_status"])
	assert.Equal(t, "required", res["fields"].(map[string]any)["id"])

	res = serve(h.PriceHistory, "/?id=7&limit=500", nil)
	assert.Equal(t, float64(http.StatusBadRequest), res["_status"])
}

func TestCategorias_CheckDelete(t *testing.T) {
	stub := &stubCategorias{verificar: &dto.VerificarEliminacionResponse{
		HasProducts:     true,
		ProductCount:    2,
		OtherCategories: []dto.CategoriaResponse{{ID: 9, Name: "Sustratos"}},
	}}
	h := NewCategoriasHandler(stub)

	res := serve(h.CheckDelete, "/?id=1", nil)
	assert.Equal(t, float64(http.StatusOK), res["_status"])
	assert.Equal(t, false, res["success"])
	assert.Equal(t, float64(2), res["product_count"])
	assert.Equal(t, "Esta categoría tiene 2 producto(s) asociado(s)", res["message"])
	assert.Len(t, res["other_categories"], 1)

	stub.verificar = &dto.VerificarEliminacionResponse{OtherCategories: []dto.CategoriaResponse{}}
	res = serve(h.CheckDelete, "/?id=1", nil)
	assert.Equal(t, true, res["success"])
	assert.Equal(t, false, res["has_products"])
}
