package worker

// retry_cron.go
// Failed jobs wait in a sorted set scored by their next attempt time. A
// background goroutine moves due jobs back onto QueuePedidos, skipping ticks
// while the mail circuit breaker is open.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	RetrySet          = "jobs:pedidos:retry"
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 20
)

// backoff grows 30s, 2m, 8m ... with the attempt number.
func backoff(attempts int) time.Duration {
	d := 30 * time.Second
	for i := 1; i < attempts; i++ {
		d *= 4
	}
	return d
}

func scheduleRetry(ctx context.Context, rdb *redis.Client, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	next := time.Now().Add(backoff(job.Attempts))
	return rdb.ZAdd(ctx, RetrySet, redis.Z{Score: float64(next.Unix()), Member: encoded}).Err()
}

// StartRetryCron ticks every 30s until ctx is cancelled. paused, when not nil,
// is consulted on each tick; a true result skips the tick.
func StartRetryCron(ctx context.Context, rdb *redis.Client, paused func() bool) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				if paused != nil && paused() {
					log.Debug().Msg("retry_cron: circuit breaker abierto, se omite el ciclo")
					continue
				}
				requeueDue(ctx, rdb, time.Now())
			}
		}
	}()
}

// moverSiSigue pushes a member onto the queue and drops it from the retry set
// in one step. A member another cron already took is left alone; a failed
// push aborts the script before the ZREM, so the job is never lost.
var moverSiSigue = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	return 0
end
redis.call('LPUSH', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[1], ARGV[1])
return 1
`)

// requeueDue moves jobs whose score is <= now back to the queue.
func requeueDue(ctx context.Context, rdb *redis.Client, now time.Time) int {
	due, err := rdb.ZRangeByScore(ctx, RetrySet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: query failed")
		return 0
	}
	moved := 0
	for _, member := range due {
		n, err := moverSiSigue.Run(ctx, rdb, []string{RetrySet, QueuePedidos}, member).Int()
		if err != nil {
			log.Error().Err(err).Msg("retry_cron: requeue failed")
			continue
		}
		moved += n
	}
	if moved > 0 {
		log.Info().Int("jobs", moved).Msg("retry_cron: jobs reencolados")
	}
	return moved
}
