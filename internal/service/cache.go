package service

import (
	"context"

	"github.com/gianlucacontedesign/terpenitos/internal/dto"
)

// CatalogoCache stores product detail responses between requests. Writers
// invalidate the entries they touch; a cache miss always falls back to the
// database.
//
// Every invalidation bumps a generation. Readers take Generacion before
// loading from the database and hand it to GuardarProducto, which stores
// nothing if an invalidation ran in between.
type CatalogoCache interface {
	Producto(ctx context.Context, id uint) (*dto.ProductoResponse, bool)
	Generacion(ctx context.Context) int64
	GuardarProducto(ctx context.Context, p *dto.ProductoResponse, gen int64)
	InvalidarProductos(ctx context.Context, ids ...uint)
	InvalidarTodo(ctx context.Context)
}

type sinCache struct{}

func (sinCache) Producto(context.Context, uint) (*dto.ProductoResponse, bool) {
	return nil, false
}

func (sinCache) Generacion(context.Context) int64 { return 0 }

func (sinCache) GuardarProducto(context.Context, *dto.ProductoResponse, int64) {}

func (sinCache) InvalidarProductos(context.Context, ...uint) {}

func (sinCache) InvalidarTodo(context.Context) {}

func cacheOrNoop(c CatalogoCache) CatalogoCache {
	if c == nil {
		return sinCache{}
	}
	return c
}
