package service_test

import (
	"context"
	"testing"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCategoriaSvc(s *memStore) (service.CategoriaService, *stubCategoriaRepo, *mapCache) {
	repo := &stubCategoriaRepo{s: s}
	cache := newMapCache()
	return service.NewCategoriaService(repo, stubProductoRepo{s}, snapshotTx{s}, cache), repo, cache
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCategoria_CrearRejectsDuplicateName(t *testing.T) {
	s := newMemStore()
	svc, _, _ := buildCategoriaSvc(s)

	c, err := svc.Crear(context.Background(), dto.CrearCategoriaRequest{Name: "  Iluminación "})
	require.NoError(t, err)
	assert.Equal(t, "Iluminación", c.Name)
	assert.True(t, c.IsActive)

	_, err = svc.Crear(context.Background(), dto.CrearCategoriaRequest{Name: "iluminación"})
	assert.ErrorIs(t, err, service.ErrCategoriaDuplicada)
}

func TestCategoria_NameOfInactiveCategoryCanBeReused(t *testing.T) {
	s := newMemStore()
	s.seedCategoria("Macetas", false)
	svc, _, _ := buildCategoriaSvc(s)

	_, err := svc.Crear(context.Background(), dto.CrearCategoriaRequest{Name: "Macetas"})
	assert.NoError(t, err)
}

func TestCategoria_ActualizarKeepsOwnName(t *testing.T) {
	s := newMemStore()
	c := s.seedCategoria("Fertilizantes", true)
	s.seedCategoria("Sustratos", true)
	svc, _, _ := buildCategoriaSvc(s)

	upd, err := svc.Actualizar(context.Background(), dto.ActualizarCategoriaRequest{
		ID: c.ID, CrearCategoriaRequest: dto.CrearCategoriaRequest{Name: "Fertilizantes", Image: "img/categorias/fert.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "img/categorias/fert.png", upd.Image)

	_, err = svc.Actualizar(context.Background(), dto.ActualizarCategoriaRequest{
		ID: c.ID, CrearCategoriaRequest: dto.CrearCategoriaRequest{Name: "Sustratos"},
	})
	assert.ErrorIs(t, err, service.ErrCategoriaDuplicada)
}

func TestCategoria_ListarOnlyActive(t *testing.T) {
	s := newMemStore()
	s.seedCategoria("Activa", true)
	s.seedCategoria("Inactiva", false)
	svc, _, _ := buildCategoriaSvc(s)

	list, err := svc.Listar(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Activa", list[0].Name)

	_, err = svc.ObtenerPorID(context.Background(), 2)
	assert.ErrorIs(t, err, service.ErrCategoriaNoEncontrada)
}

func TestCategoria_EliminarCascadesToProducts(t *testing.T) {
	s := newMemStore()
	c1 := s.seedCategoria("C1", true)
	c2 := s.seedCategoria("C2", true)
	p1 := s.seedProducto(c1.ID, "P1", "10", "5", 3)
	p2 := s.seedProducto(c1.ID, "P2", "10", "5", 3)
	p3 := s.seedProducto(c2.ID, "P3", "10", "5", 3)
	svc, _, cache := buildCategoriaSvc(s)
	cache.entries[p3.ID] = dto.ProductoResponse{ID: p3.ID}

	require.NoError(t, svc.Eliminar(context.Background(), c1.ID))

	assert.False(t, s.categorias[c1.ID].Activo)
	assert.False(t, s.productos[p1.ID].Activo)
	assert.False(t, s.productos[p2.ID].Activo)
	assert.True(t, s.productos[p3.ID].Activo)
	assert.Empty(t, cache.entries, "catalog cache must be flushed")
}

func TestCategoria_EliminarRollsBackOnFailure(t *testing.T) {
	s := newMemStore()
	c1 := s.seedCategoria("C1", true)
	p1 := s.seedProducto(c1.ID, "P1", "10", "5", 3)
	svc, repo, _ := buildCategoriaSvc(s)
	repo.failSoftDelete = true

	err := svc.Eliminar(context.Background(), c1.ID)
	require.Error(t, err)

	assert.True(t, s.categorias[c1.ID].Activo)
	assert.True(t, s.productos[p1.ID].Activo, "product deactivation must roll back")
}

func TestCategoria_EliminarMissing(t *testing.T) {
	s := newMemStore()
	svc, _, _ := buildCategoriaSvc(s)
	assert.ErrorIs(t, svc.Eliminar(context.Background(), 42), service.ErrCategoriaNoEncontrada)
}

func TestCategoria_VerificarEliminacion(t *testing.T) {
	s := newMemStore()
	c1 := s.seedCategoria("Iluminación", true)
	c2 := s.seedCategoria("Sustratos", true)
	s.seedProducto(c1.ID, "LED 100W", "100", "60", 2)
	s.seedProducto(c1.ID, "LED 200W", "180", "110", 1)
	off := s.seedProducto(c1.ID, "Sodio 400W", "90", "50", 1)
	p := s.productos[off.ID]
	p.Activo = false
	s.productos[off.ID] = p
	svc, _, _ := buildCategoriaSvc(s)

	res, err := svc.VerificarEliminacion(context.Background(), c1.ID)
	require.NoError(t, err)
	assert.True(t, res.HasProducts)
	assert.Equal(t, int64(2), res.ProductCount)
	require.Len(t, res.OtherCategories, 1)
	assert.Equal(t, c2.ID, res.OtherCategories[0].ID)

	empty, err := svc.VerificarEliminacion(context.Background(), c2.ID)
	require.NoError(t, err)
	assert.False(t, empty.HasProducts)
	assert.Zero(t, empty.ProductCount)
}

func TestCategoria_DeactivatedCategoryHidesItsProducts(t *testing.T) {
	s := newMemStore()
	c := s.seedCategoria("Semillas", true)
	p := s.seedProducto(c.ID, "Feminizadas x3", "30", "15", 10)
	svc, _, cache := buildCategoriaSvc(s)
	prod := service.NewProductoService(stubProductoRepo{s}, &stubCategoriaRepo{s: s}, &stubHistorialRepo{s: s}, snapshotTx{s}, cache)

	_, err := prod.ObtenerPorID(context.Background(), p.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Eliminar(context.Background(), c.ID))

	_, err = prod.ObtenerPorID(context.Background(), p.ID)
	assert.ErrorIs(t, err, service.ErrProductoNoEncontrado)

	list, err := prod.Listar(context.Background(), dto.ProductoFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
