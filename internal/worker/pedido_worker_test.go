package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/model"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type enviado struct {
	to, subject, body, adjunto string
}

type fakeMailer struct {
	enabled bool
	err     error
	sent    []enviado
}

func (m *fakeMailer) Enabled() bool { return m.enabled }
func (m *fakeMailer) Send(to, subject, body, adjunto string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, enviado{to, subject, body, adjunto})
	return nil
}

// stubPedidos implements only what the worker reads.
type stubPedidos struct {
	repository.PedidoRepository
	pedidos map[uint]model.Pedido
	items   []model.PedidoItem
}

func (s *stubPedidos) FindByID(_ context.Context, id uint) (*model.Pedido, error) {
	p, ok := s.pedidos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (s *stubPedidos) ListItems(_ context.Context, id uint) ([]model.PedidoItem, error) {
	return s.items, nil
}

func newStubPedidos() *stubPedidos {
	return &stubPedidos{
		pedidos: map[uint]model.Pedido{
			10: {
				ID: 10, UsuarioID: 3, Estado: model.EstadoEnviado,
				Total:          decimal.RequireFromString("120.00"),
				DireccionEnvio: "Calle 123", Telefono: "1122334455",
				CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
				Usuario:   &model.Usuario{ID: 3, Nombre: "Ana", Email: "ana@example.com"},
			},
			11: {ID: 11, UsuarioID: 4, Usuario: &model.Usuario{ID: 4, Nombre: "Sin mail"}},
		},
		items: []model.PedidoItem{
			{PedidoID: 10, ProductoID: 1, Cantidad: 2, Precio: decimal.RequireFromString("50.00"), NombreProducto: "Sustrato 50L"},
			{PedidoID: 10, ProductoID: 2, Cantidad: 1, Precio: decimal.RequireFromString("20.00"), NombreProducto: "Perlita 5L"},
		},
	}
}

func payload(t *testing.T, id uint) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(PedidoJobPayload{PedidoID: id})
	require.NoError(t, err)
	return raw
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestPedidoWorker_ConfirmationWithReceipt(t *testing.T) {
	mailer := &fakeMailer{enabled: true}
	w := NewPedidoWorker(newStubPedidos(), mailer, t.TempDir(), "https://terpenitos.com")

	require.NoError(t, w.ProcesarCreado(context.Background(), payload(t, 10)))

	require.Len(t, mailer.sent, 1)
	m := mailer.sent[0]
	assert.Equal(t, "ana@example.com", m.to)
	assert.Contains(t, m.subject, "#10")
	assert.Contains(t, m.body, "2 x Sustrato 50L  $100.00")
	assert.Contains(t, m.body, "Total: $120.00")
	assert.Contains(t, m.body, "https://terpenitos.com/perfil")

	info, err := os.Stat(m.adjunto)
	require.NoError(t, err, "receipt PDF must exist")
	assert.Greater(t, info.Size(), int64(0))
}

func TestPedidoWorker_StatusNotice(t *testing.T) {
	mailer := &fakeMailer{enabled: true}
	w := NewPedidoWorker(newStubPedidos(), mailer, t.TempDir(), "https://terpenitos.com")

	require.NoError(t, w.ProcesarEstado(context.Background(), payload(t, 10)))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "Tu pedido #10 está enviado", mailer.sent[0].subject)
	assert.Empty(t, mailer.sent[0].adjunto)
}

func TestPedidoWorker_SkipsWhenNothingToSend(t *testing.T) {
	disabled := &fakeMailer{}
	w := NewPedidoWorker(newStubPedidos(), disabled, t.TempDir(), "")
	assert.NoError(t, w.ProcesarCreado(context.Background(), payload(t, 10)))
	assert.Empty(t, disabled.sent)

	enabled := &fakeMailer{enabled: true}
	w = NewPedidoWorker(newStubPedidos(), enabled, t.TempDir(), "")
	assert.NoError(t, w.ProcesarEstado(context.Background(), payload(t, 11)), "customer without e-mail")
	assert.Empty(t, enabled.sent)
}

func TestPedidoWorker_PermanentFailures(t *testing.T) {
	w := NewPedidoWorker(newStubPedidos(), &fakeMailer{enabled: true}, t.TempDir(), "")
	var perm permanentError

	err := w.ProcesarCreado(context.Background(), json.RawMessage(`{"pedido_id":`))
	assert.True(t, errors.As(err, &perm), "malformed payload")

	err = w.ProcesarCreado(context.Background(), payload(t, 999))
	assert.True(t, errors.As(err, &perm), "missing order")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPedidoWorker_SMTPFailureIsRetryable(t *testing.T) {
	mailer := &fakeMailer{enabled: true, err: errors.New("dial tcp: i/o timeout")}
	w := NewPedidoWorker(newStubPedidos(), mailer, t.TempDir(), "")

	err := w.ProcesarEstado(context.Background(), payload(t, 10))
	require.Error(t, err)
	var perm permanentError
	assert.False(t, errors.As(err, &perm))
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, backoff(1))
	assert.Equal(t, 2*time.Minute, backoff(2))
	assert.Equal(t, 8*time.Minute, backoff(3))
}

func TestDispatcher_NilRedisDropsJobs(t *testing.T) {
	d := NewDispatcher(nil)
	assert.NoError(t, d.Enqueue(context.Background(), JobPedidoCreado, PedidoJobPayload{PedidoID: 1}))
	d.PedidoCreado(context.Background(), &model.Pedido{ID: 1})
}
