package worker

// pedido_worker.go
// Sends order e-mails: the confirmation with the PDF receipt attached when an
// order is created, and a short notice when its status changes.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gianlucacontedesign/terpenitos/internal/infra"
	"github.com/gianlucacontedesign/terpenitos/internal/model"
	"github.com/gianlucacontedesign/terpenitos/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notificador is the part of infra.Mailer the worker needs.
type Notificador interface {
	Enabled() bool
	Send(to, subject, body, adjunto string) error
}

type PedidoWorker struct {
	pedidos     repository.PedidoRepository
	mailer      Notificador
	storagePath string
	siteURL     string
}

func NewPedidoWorker(pedidos repository.PedidoRepository, mailer Notificador, storagePath, siteURL string) *PedidoWorker {
	return &PedidoWorker{pedidos: pedidos, mailer: mailer, storagePath: storagePath, siteURL: siteURL}
}

// Handlers maps job types to this worker's methods for StartWorkerPool.
func (w *PedidoWorker) Handlers() map[string]JobHandler {
	return map[string]JobHandler{
		JobPedidoCreado:      w.ProcesarCreado,
		JobEstadoActualizado: w.ProcesarEstado,
	}
}

func (w *PedidoWorker) ProcesarCreado(ctx context.Context, raw json.RawMessage) error {
	p, ok, err := w.cargar(ctx, raw)
	if err != nil || !ok {
		return err
	}
	items, err := w.pedidos.ListItems(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("items del pedido %d: %w", p.ID, err)
	}
	p.Items = items

	pdfPath, err := infra.GenerarComprobantePDF(p, w.storagePath)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Terpenitos Growshop: recibimos tu pedido #%d", p.ID)
	if err := w.mailer.Send(p.Usuario.Email, subject, cuerpoConfirmacion(p, w.siteURL), pdfPath); err != nil {
		return fmt.Errorf("enviar confirmación: %w", err)
	}
	log.Info().Uint("pedido_id", p.ID).Str("to", p.Usuario.Email).Msg("pedido_worker: confirmación enviada")
	return nil
}

func (w *PedidoWorker) ProcesarEstado(ctx context.Context, raw json.RawMessage) error {
	p, ok, err := w.cargar(ctx, raw)
	if err != nil || !ok {
		return err
	}
	subject := fmt.Sprintf("Tu pedido #%d está %s", p.ID, strings.ToLower(p.Estado))
	body := fmt.Sprintf("Hola %s,\n\nEl estado de tu pedido #%d cambió a: %s.\n\nPodés seguirlo en %s/perfil\n",
		p.Usuario.Nombre, p.ID, p.Estado, w.siteURL)
	if err := w.mailer.Send(p.Usuario.Email, subject, body, ""); err != nil {
		return fmt.Errorf("enviar aviso de estado: %w", err)
	}
	log.Info().Uint("pedido_id", p.ID).Str("estado", p.Estado).Msg("pedido_worker: aviso de estado enviado")
	return nil
}

// cargar decodes the payload and reloads the order with its customer. ok is
// false when there is nothing to send.
func (w *PedidoWorker) cargar(ctx context.Context, raw json.RawMessage) (*model.Pedido, bool, error) {
	var payload PedidoJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, Permanente(fmt.Errorf("payload inválido: %w", err))
	}
	if !w.mailer.Enabled() {
		log.Debug().Uint("pedido_id", payload.PedidoID).Msg("pedido_worker: SMTP deshabilitado, se omite")
		return nil, false, nil
	}
	p, err := w.pedidos.FindByID(ctx, payload.PedidoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, Permanente(err)
		}
		return nil, false, err
	}
	if p.Usuario == nil || p.Usuario.Email == "" {
		log.Warn().Uint("pedido_id", p.ID).Msg("pedido_worker: pedido sin email de cliente")
		return nil, false, nil
	}
	return p, true, nil
}

func cuerpoConfirmacion(p *model.Pedido, siteURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hola %s,\n\nGracias por tu compra. Recibimos tu pedido #%d:\n\n", p.Usuario.Nombre, p.ID)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "  %d x %s  $%s\n", it.Cantidad, it.NombreProducto, it.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: $%s\nEnvío a: %s\n\n", p.Total.StringFixed(2), p.DireccionEnvio)
	fmt.Fprintf(&b, "Adjuntamos el comprobante. Podés seguir tu pedido en %s/perfil\n", siteURL)
	return b.String()
}
