package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
	"github.com/gianlucacontedesign/terpenitos/internal/model"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"
	"github.com/gianlucacontedesign/terpenitos/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// ── In-memory store ───────────────────────────────────────────────────────────

// memStore backs every stub repository. snapshotTx copies it before a unit of
// work and puts the copy back when the work fails, which is what a rollback
// looks like from the outside.
type memStore struct {
	seq         uint
	now         time.Time
	usuarios    map[uint]model.Usuario
	categorias  map[uint]model.Categoria
	productos   map[uint]model.Producto
	pedidos     map[uint]model.Pedido
	items       []model.PedidoItem
	direcciones map[uint]model.Direccion
	historial   []model.HistorialPrecio

	// failItemAfter makes CreateItemTx fail once this many items exist.
	failItemAfter int
	// beforeDecrement runs right before each guarded decrement.
	beforeDecrement func(id uint)
}

func newMemStore() *memStore {
	return &memStore{
		now:           time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		usuarios:      map[uint]model.Usuario{},
		categorias:    map[uint]model.Categoria{},
		productos:     map[uint]model.Producto{},
		pedidos:       map[uint]model.Pedido{},
		direcciones:   map[uint]model.Direccion{},
		failItemAfter: -1,
	}
}

func (s *memStore) nextID() uint {
	s.seq++
	return s.seq
}

// tick returns strictly increasing timestamps so "newest first" is stable.
func (s *memStore) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func (s *memStore) clone() *memStore {
	c := *s
	c.usuarios = copyMap(s.usuarios)
	c.categorias = copyMap(s.categorias)
	c.productos = copyMap(s.productos)
	c.pedidos = copyMap(s.pedidos)
	c.direcciones = copyMap(s.direcciones)
	c.items = append([]model.PedidoItem(nil), s.items...)
	c.historial = append([]model.HistorialPrecio(nil), s.historial...)
	return &c
}

func copyMap[V any](m map[uint]V) map[uint]V {
	out := make(map[uint]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) seedCategoria(nombre string, activa bool) *model.Categoria {
	c := model.Categoria{ID: s.nextID(), Nombre: nombre, Activo: activa, CreatedAt: s.tick()}
	s.categorias[c.ID] = c
	return &c
}

func (s *memStore) seedProducto(categoriaID uint, nombre, precio, costo string, stock int) *model.Producto {
	p := model.Producto{
		ID:          s.nextID(),
		Nombre:      nombre,
		CategoriaID: categoriaID,
		Precio:      decimal.RequireFromString(precio),
		Costo:       decimal.RequireFromString(costo),
		Stock:       stock,
		Activo:      true,
		CreatedAt:   s.tick(),
	}
	s.productos[p.ID] = p
	return &p
}

func (s *memStore) visible(p model.Producto) bool {
	c, ok := s.categorias[p.CategoriaID]
	return p.Activo && ok && c.Activo
}

// snapshotTx is a Transactor over memStore.
type snapshotTx struct{ s *memStore }

func (t snapshotTx) WithinTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	snap := t.s.clone()
	if err := fn(nil); err != nil {
		failItemAfter, hook := t.s.failItemAfter, t.s.beforeDecrement
		*t.s = *snap
		t.s.failItemAfter, t.s.beforeDecrement = failItemAfter, hook
		return err
	}
	return nil
}

var _ repository.Transactor = snapshotTx{}

// ── Producto ──────────────────────────────────────────────────────────────────

type stubProductoRepo struct{ s *memStore }

func (r stubProductoRepo) Create(_ context.Context, p *model.Producto) error {
	p.ID = r.s.nextID()
	p.CreatedAt = r.s.tick()
	r.s.productos[p.ID] = *p
	return nil
}

func (r stubProductoRepo) FindByID(_ context.Context, id uint) (*model.Producto, error) {
	p, ok := r.s.productos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.withCategoria(p), nil
}

func (r stubProductoRepo) FindVisibleByID(_ context.Context, id uint) (*model.Producto, error) {
	p, ok := r.s.productos[id]
	if !ok || !r.s.visible(p) {
		return nil, gorm.ErrRecordNotFound
	}
	return r.withCategoria(p), nil
}

func (r stubProductoRepo) withCategoria(p model.Producto) *model.Producto {
	if c, ok := r.s.categorias[p.CategoriaID]; ok {
		p.Categoria = &c
	}
	return &p
}

func (r stubProductoRepo) ListVisible(_ context.Context, f dto.ProductoFilter) ([]model.Producto, error) {
	var out []model.Producto
	for _, p := range r.s.productos {
		if !r.s.visible(p) {
			continue
		}
		if f.CategoriaID != 0 && p.CategoriaID != f.CategoriaID {
			continue
		}
		if f.SoloDestacado && !p.Destacado {
			continue
		}
		if f.Busqueda != "" && !strings.Contains(strings.ToLower(p.Nombre+" "+p.Descripcion), strings.ToLower(f.Busqueda)) {
			continue
		}
		out = append(out, *r.withCategoria(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r stubProductoRepo) ListAll(_ context.Context) ([]model.Producto, error) {
	out := make([]model.Producto, 0, len(r.s.productos))
	for _, p := range r.s.productos {
		out = append(out, *r.withCategoria(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r stubProductoRepo) UpdateTx(_ *gorm.DB, p *model.Producto) error {
	if _, ok := r.s.productos[p.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *p
	cp.Categoria = nil
	r.s.productos[p.ID] = cp
	return nil
}

func (r stubProductoRepo) SoftDelete(_ context.Context, id uint) (bool, error) {
	p, ok := r.s.productos[id]
	if !ok || !p.Activo {
		return false, nil
	}
	p.Activo = false
	r.s.productos[id] = p
	return true, nil
}

func (r stubProductoRepo) CountActiveByCategoria(_ context.Context, categoriaID uint) (int64, error) {
	var n int64
	for _, p := range r.s.productos {
		if p.CategoriaID == categoriaID && p.Activo {
			n++
		}
	}
	return n, nil
}

func (r stubProductoRepo) InventoryTotals(_ context.Context) (repository.InventarioTotales, error) {
	var t repository.InventarioTotales
	for _, p := range r.s.productos {
		if !r.s.visible(p) {
			continue
		}
		q := decimal.NewFromInt(int64(p.Stock))
		t.Capital = t.Capital.Add(p.Precio.Mul(q))
		t.Costo = t.Costo.Add(p.Costo.Mul(q))
		t.Stock += int64(p.Stock)
	}
	return t, nil
}

func (r stubProductoRepo) FindByIDTx(_ *gorm.DB, id uint) (*model.Producto, error) {
	return r.FindByID(context.Background(), id)
}

func (r stubProductoRepo) DecrementStockTx(_ *gorm.DB, id uint, cantidad int, precio decimal.Decimal) (bool, error) {
	if r.s.beforeDecrement != nil {
		r.s.beforeDecrement(id)
	}
	p, ok := r.s.productos[id]
	if !ok || !p.Activo || p.Stock < cantidad || !p.Precio.Equal(precio) {
		return false, nil
	}
	p.Stock -= cantidad
	r.s.productos[id] = p
	return true, nil
}

func (r stubProductoRepo) SoftDeleteByCategoriaTx(_ *gorm.DB, categoriaID uint) (int64, error) {
	var n int64
	for id, p := range r.s.productos {
		if p.CategoriaID == categoriaID && p.Activo {
			p.Activo = false
			r.s.productos[id] = p
			n++
		}
	}
	return n, nil
}

var _ repository.ProductoRepository = stubProductoRepo{}

// ── HistorialPrecio ───────────────────────────────────────────────────────────

type stubHistorialRepo struct {
	s *memStore
	// fail simulates a storage error on insert.
	fail bool
}

func (r *stubHistorialRepo) CreateTx(_ *gorm.DB, h *model.HistorialPrecio) error {
	if r.fail {
		return errors.New("disk full")
	}
	h.ID = r.s.nextID()
	h.CreatedAt = r.s.tick()
	r.s.historial = append(r.s.historial, *h)
	return nil
}

func (r *stubHistorialRepo) ListByProducto(_ context.Context, productoID uint, page, limit int) ([]model.HistorialPrecio, int64, error) {
	var all []model.HistorialPrecio
	for i := len(r.s.historial) - 1; i >= 0; i-- {
		if r.s.historial[i].ProductoID == productoID {
			all = append(all, r.s.historial[i])
		}
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	from := (page - 1) * limit
	if from >= len(all) {
		return nil, int64(len(all)), nil
	}
	to := from + limit
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], int64(len(all)), nil
}

var _ repository.HistorialPrecioRepository = (*stubHistorialRepo)(nil)

// ── Categoria ─────────────────────────────────────────────────────────────────

type stubCategoriaRepo struct {
	s *memStore
	// failSoftDelete simulates a storage error on the category row.
	failSoftDelete bool
}

func (r *stubCategoriaRepo) Create(_ context.Context, c *model.Categoria) error {
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.tick()
	r.s.categorias[c.ID] = *c
	return nil
}

func (r *stubCategoriaRepo) ListActive(_ context.Context) ([]model.Categoria, error) {
	var out []model.Categoria
	for _, c := range r.s.categorias {
		if c.Activo {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (r *stubCategoriaRepo) FindActiveByID(_ context.Context, id uint) (*model.Categoria, error) {
	c, ok := r.s.categorias[id]
	if !ok || !c.Activo {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *stubCategoriaRepo) ExistsActiveByName(_ context.Context, nombre string, excludeID uint) (bool, error) {
	for _, c := range r.s.categorias {
		if c.Activo && c.ID != excludeID && strings.EqualFold(c.Nombre, nombre) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCategoriaRepo) Update(_ context.Context, c *model.Categoria) error {
	r.s.categorias[c.ID] = *c
	return nil
}

func (r *stubCategoriaRepo) SoftDeleteTx(_ *gorm.DB, id uint) (bool, error) {
	if r.failSoftDelete {
		return false, errors.New("disk full")
	}
	c, ok := r.s.categorias[id]
	if !ok || !c.Activo {
		return false, nil
	}
	c.Activo = false
	r.s.categorias[id] = c
	return true, nil
}

var _ repository.CategoriaRepository = (*stubCategoriaRepo)(nil)

// ── Pedido ────────────────────────────────────────────────────────────────────

type stubPedidoRepo struct{ s *memStore }

func (r stubPedidoRepo) CreateTx(_ *gorm.DB, p *model.Pedido) error {
	p.ID = r.s.nextID()
	p.CreatedAt = r.s.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	cp.Items = nil
	r.s.pedidos[p.ID] = cp
	return nil
}

func (r stubPedidoRepo) CreateItemTx(_ *gorm.DB, item *model.PedidoItem) error {
	if r.s.failItemAfter >= 0 && len(r.s.items) >= r.s.failItemAfter {
		return errors.New("connection reset")
	}
	item.ID = r.s.nextID()
	r.s.items = append(r.s.items, *item)
	return nil
}

func (r stubPedidoRepo) FindByID(_ context.Context, id uint) (*model.Pedido, error) {
	p, ok := r.s.pedidos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if u, ok := r.s.usuarios[p.UsuarioID]; ok {
		p.Usuario = &u
	}
	return &p, nil
}

func (r stubPedidoRepo) ListItems(_ context.Context, pedidoID uint) ([]model.PedidoItem, error) {
	var out []model.PedidoItem
	for _, it := range r.s.items {
		if it.PedidoID == pedidoID {
			if p, ok := r.s.productos[it.ProductoID]; ok {
				it.Producto = &p
			}
			out = append(out, it)
		}
	}
	return out, nil
}

func (r stubPedidoRepo) list(keep func(model.Pedido) bool) []model.Pedido {
	var out []model.Pedido
	for _, p := range r.s.pedidos {
		if keep(p) {
			if u, ok := r.s.usuarios[p.UsuarioID]; ok {
				p.Usuario = &u
			}
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r stubPedidoRepo) ListByUsuario(_ context.Context, usuarioID uint) ([]model.Pedido, error) {
	return r.list(func(p model.Pedido) bool { return p.UsuarioID == usuarioID }), nil
}

func (r stubPedidoRepo) ListAll(_ context.Context) ([]model.Pedido, error) {
	return r.list(func(model.Pedido) bool { return true }), nil
}

func (r stubPedidoRepo) UpdateEstado(_ context.Context, id uint, estado string) (bool, error) {
	p, ok := r.s.pedidos[id]
	if !ok {
		return false, nil
	}
	p.Estado = estado
	p.UpdatedAt = r.s.tick()
	r.s.pedidos[id] = p
	return true, nil
}

func (r stubPedidoRepo) Stats(_ context.Context) (repository.PedidoStats, error) {
	var st repository.PedidoStats
	for _, p := range r.s.pedidos {
		st.Total++
		switch p.Estado {
		case model.EstadoProcesando:
			st.Pendientes++
		case model.EstadoEntregado:
			st.Entregados++
			st.Facturacion = st.Facturacion.Add(p.Total)
		}
	}
	return st, nil
}

var _ repository.PedidoRepository = stubPedidoRepo{}

// ── Direccion ─────────────────────────────────────────────────────────────────

type stubDireccionRepo struct{ s *memStore }

func (r stubDireccionRepo) ListByUsuario(_ context.Context, usuarioID uint) ([]model.Direccion, error) {
	var out []model.Direccion
	for _, d := range r.s.direcciones {
		if d.UsuarioID == usuarioID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Predeterminada != out[j].Predeterminada {
			return out[i].Predeterminada
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r stubDireccionRepo) FindByID(_ context.Context, id uint) (*model.Direccion, error) {
	d, ok := r.s.direcciones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (r stubDireccionRepo) FindDefault(_ context.Context, usuarioID uint) (*model.Direccion, error) {
	for _, d := range r.s.direcciones {
		if d.UsuarioID == usuarioID && d.Predeterminada {
			return &d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r stubDireccionRepo) Delete(_ context.Context, id uint) error {
	delete(r.s.direcciones, id)
	return nil
}

func (r stubDireccionRepo) CreateTx(_ *gorm.DB, d *model.Direccion) error {
	d.ID = r.s.nextID()
	d.CreatedAt = r.s.tick()
	r.s.direcciones[d.ID] = *d
	return nil
}

func (r stubDireccionRepo) UpdateTx(_ *gorm.DB, d *model.Direccion) error {
	r.s.direcciones[d.ID] = *d
	return nil
}

func (r stubDireccionRepo) ClearDefaultTx(_ *gorm.DB, usuarioID, exceptID uint) error {
	for id, d := range r.s.direcciones {
		if d.UsuarioID == usuarioID && id != exceptID && d.Predeterminada {
			d.Predeterminada = false
			r.s.direcciones[id] = d
		}
	}
	return nil
}

var _ repository.DireccionRepository = stubDireccionRepo{}

// ── Usuario ───────────────────────────────────────────────────────────────────

type stubUsuarioRepo struct{ s *memStore }

func (r stubUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	for _, existing := range r.s.usuarios {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = r.s.nextID()
	r.s.usuarios[u.ID] = *u
	return nil
}

func (r stubUsuarioRepo) FindByID(_ context.Context, id uint) (*model.Usuario, error) {
	u, ok := r.s.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r stubUsuarioRepo) FindByEmail(_ context.Context, email string) (*model.Usuario, error) {
	for _, u := range r.s.usuarios {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r stubUsuarioRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	return err == nil, nil
}

func (r stubUsuarioRepo) UpdatePerfil(_ context.Context, id uint, nombre, telefono string) error {
	u, ok := r.s.usuarios[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Nombre, u.Telefono = nombre, telefono
	r.s.usuarios[id] = u
	return nil
}

func (r stubUsuarioRepo) UpdatePassword(_ context.Context, id uint, hash string) error {
	u, ok := r.s.usuarios[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	r.s.usuarios[id] = u
	return nil
}

var _ repository.UsuarioRepository = stubUsuarioRepo{}

// ── Cache and listeners ───────────────────────────────────────────────────────

// mapCache is an in-process CatalogoCache that counts hits. antesDeGuardar
// runs between the database read and the store.
type mapCache struct {
	entries        map[uint]dto.ProductoResponse
	hits           int
	gen            int64
	antesDeGuardar func()
}

func newMapCache() *mapCache { return &mapCache{entries: map[uint]dto.ProductoResponse{}} }

func (c *mapCache) Producto(_ context.Context, id uint) (*dto.ProductoResponse, bool) {
	p, ok := c.entries[id]
	if ok {
		c.hits++
	}
	return &p, ok
}

func (c *mapCache) Generacion(context.Context) int64 { return c.gen }

func (c *mapCache) GuardarProducto(_ context.Context, p *dto.ProductoResponse, gen int64) {
	if c.antesDeGuardar != nil {
		c.antesDeGuardar()
	}
	if gen != c.gen {
		return
	}
	c.entries[p.ID] = *p
}

func (c *mapCache) InvalidarProductos(_ context.Context, ids ...uint) {
	c.gen++
	for _, id := range ids {
		delete(c.entries, id)
	}
}

func (c *mapCache) InvalidarTodo(context.Context) {
	c.gen++
	c.entries = map[uint]dto.ProductoResponse{}
}

var _ service.CatalogoCache = (*mapCache)(nil)

type mockEventos struct{ mock.Mock }

func (m *mockEventos) PedidoCreado(ctx context.Context, p *model.Pedido)      { m.Called(ctx, p) }
func (m *mockEventos) EstadoActualizado(ctx context.Context, p *model.Pedido) { m.Called(ctx, p) }

var _ service.PedidoEventos = (*mockEventos)(nil)
