package service

import (
	"context"

	"github.com/gianlucacontedesign/terpenitos/internal/model"
)

// PedidoEventos is notified after an order change has been committed.
// Implementations must return quickly; a failing listener never fails the
// operation that triggered it.
type PedidoEventos interface {
	PedidoCreado(ctx context.Context, p *model.Pedido)
	EstadoActualizado(ctx context.Context, p *model.Pedido)
}
