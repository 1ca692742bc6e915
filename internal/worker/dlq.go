package worker

// dlq.go: dead letter queue.
// Jobs that exhaust their retries, or fail permanently, land in the Redis
// list dlq:{original_queue} for manual inspection.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// EntradaDLQ keeps the failed job next to why and when it was given up.
type EntradaDLQ struct {
	Cola      string          `json:"cola"`
	Tipo      string          `json:"tipo"`
	Payload   json.RawMessage `json:"payload"`
	Motivo    string          `json:"motivo"`
	Intentos  int             `json:"intentos"`
	FalladoEn time.Time       `json:"fallado_en"`
}

// SendToDLQ parks a job in the dead letter queue of its source queue.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	data, err := json.Marshal(EntradaDLQ{
		Cola:      queue,
		Tipo:      jobType,
		Payload:   payload,
		Motivo:    reason,
		Intentos:  attempts,
		FalladoEn: time.Now().UTC(),
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal")
		return
	}
	if err := rdb.LPush(ctx, DLQPrefix+queue, data).Err(); err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: push")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job movido a la cola de fallidos")
}

// DLQLength returns the number of entries in a DLQ; the health endpoint
// reports it for QueuePedidos.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// ListDLQ returns up to limit entries of a DLQ, newest first. Entries that
// no longer decode are skipped.
func ListDLQ(ctx context.Context, rdb *redis.Client, queue string, limit int64) ([]EntradaDLQ, error) {
	if limit <= 0 {
		limit = 20
	}
	raws, err := rdb.LRange(ctx, DLQPrefix+queue, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]EntradaDLQ, 0, len(raws))
	for _, raw := range raws {
		var e EntradaDLQ
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: entrada ilegible")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// RequeueDLQ moves up to limite of the oldest DLQ entries back onto their queue
// with a fresh attempt count. Each move runs under WATCH on the DLQ, so
// concurrent requeues never push the same entry twice.
func RequeueDLQ(ctx context.Context, rdb *redis.Client, queue string, limite int) (int, error) {
	key := DLQPrefix + queue
	moved := 0
	conflictos := 0
	for limite <= 0 || moved < limite {
		ok, err := requeueUltima(ctx, rdb, key, queue)
		if errors.Is(err, redis.TxFailedErr) {
			conflictos++
			if conflictos > maxConflictosWatch {
				return moved, fmt.Errorf("requeue %s: demasiados conflictos: %w", key, err)
			}
			continue
		}
		if err != nil {
			return moved, err
		}
		if !ok {
			break
		}
		conflictos = 0
		moved++
	}
	if moved > 0 {
		log.Info().Str("queue", queue).Int("jobs", moved).Msg("dlq: jobs reencolados")
	}
	return moved, nil
}

const maxConflictosWatch = 50

// requeueUltima moves the oldest entry of key. It reports false when the DLQ
// is empty and redis.TxFailedErr when another client touched it meanwhile.
func requeueUltima(ctx context.Context, rdb *redis.Client, key, queue string) (bool, error) {
	moved := false
	err := rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.LIndex(ctx, key, -1).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var e EntradaDLQ
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return fmt.Errorf("entrada ilegible en %s: %w", key, err)
		}
		encoded, err := json.Marshal(Job{Type: e.Tipo, Payload: e.Payload})
		if err != nil {
			return err
		}
		destino := e.Cola
		if destino == "" {
			destino = queue
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.RPop(ctx, key)
			p.LPush(ctx, destino, encoded)
			return nil
		})
		moved = err == nil
		return err
	}, key)
	return moved, err
}

// PurgeDLQ drops every entry of a DLQ and reports how many there were.
func PurgeDLQ(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	n, err := DLQLength(ctx, rdb, queue)
	if err != nil || n == 0 {
		return 0, err
	}
	return n, rdb.Del(ctx, DLQPrefix+queue).Err()
}
