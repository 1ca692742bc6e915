package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueuePedidos = "jobs:pedidos"

	JobPedidoCreado      = "pedido_creado"
	JobEstadoActualizado = "estado_actualizado"

	// JobIlegible tags DLQ entries whose raw job never decoded.
	JobIlegible = "ilegible"

	maxIntentos  = 4
	errorBackoff = time.Second
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// PedidoJobPayload identifies the order a job refers to; workers reload it.
type PedidoJobPayload struct {
	PedidoID uint   `json:"pedido_id"`
	Estado   string `json:"estado,omitempty"`
}

// JobHandler processes one job payload. Returning an error wrapped with
// Permanente sends the job straight to the DLQ; any other error schedules a
// retry.
type JobHandler func(ctx context.Context, payload json.RawMessage) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanente marks err as not worth retrying.
func Permanente(err error) error { return permanentError{err: err} }

// Dispatcher enqueues async jobs into Redis lists. The worker pool dequeues
// them via BRPOP. A nil client disables the queue.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// PedidoCreado queues the confirmation e-mail with the PDF receipt.
func (d *Dispatcher) PedidoCreado(ctx context.Context, p *model.Pedido) {
	d.enqueueOrLog(ctx, JobPedidoCreado, PedidoJobPayload{PedidoID: p.ID})
}

// EstadoActualizado queues the status change e-mail.
func (d *Dispatcher) EstadoActualizado(ctx context.Context, p *model.Pedido) {
	d.enqueueOrLog(ctx, JobEstadoActualizado, PedidoJobPayload{PedidoID: p.ID, Estado: p.Estado})
}

func (d *Dispatcher) enqueueOrLog(ctx context.Context, jobType string, payload interface{}) {
	if err := d.Enqueue(ctx, jobType, payload); err != nil {
		log.Error().Err(err).Str("type", jobType).Msg("dispatcher: no se pudo encolar el job")
	}
}

// Enqueue pushes a job to QueuePedidos.
func (d *Dispatcher) Enqueue(ctx context.Context, jobType string, payload interface{}) error {
	if d.rdb == nil {
		log.Debug().Str("type", jobType).Msg("dispatcher: redis deshabilitado, job descartado")
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, QueuePedidos, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming QueuePedidos.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU. The returned
// WaitGroup completes once every worker has observed ctx cancellation.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers map[string]JobHandler, numWorkers int) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, rdb, handlers, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers map[string]JobHandler, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop; waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueuePedidos).Result()
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue // timeout or context cancelled
			}
			if err != nil {
				log.Error().Err(err).Int("worker", id).Msg("worker: brpop")
				esperar(ctx, errorBackoff)
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

// esperar sleeps for d or until ctx is cancelled.
func esperar(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers map[string]JobHandler, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		// Kept as a JSON string so the entry itself stays decodable.
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, rdb, queue, JobIlegible, quoted, "job ilegible: "+err.Error(), 0)
		return
	}
	handle, ok := handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "tipo de job desconocido", job.Attempts)
		return
	}

	err := handle(ctx, job.Payload)
	if err == nil {
		return
	}
	job.Attempts++

	var perm permanentError
	if errors.As(err, &perm) || job.Attempts >= maxIntentos {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Int("attempts", job.Attempts).Msg("job fallido, se reintentará")
	if err := scheduleRetry(ctx, rdb, job); err != nil {
		log.Error().Err(err).Str("type", job.Type).Msg("no se pudo programar el reintento")
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), job.Attempts)
	}
}
