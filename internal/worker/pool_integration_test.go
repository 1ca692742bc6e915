//go:build integration

package worker

// Run with: go test -tags integration ./internal/worker/... -v

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func popJob(t *testing.T, rdb *redis.Client) string {
	t.Helper()
	res, err := rdb.BRPop(context.Background(), 2*time.Second, QueuePedidos).Result()
	require.NoError(t, err)
	return res[1]
}

func TestPool_EnqueueAndProcess(t *testing.T) {
	rdb := setupRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan uint, 1)
	handlers := map[string]JobHandler{
		JobPedidoCreado: func(_ context.Context, raw json.RawMessage) error {
			var p PedidoJobPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			got <- p.PedidoID
			return nil
		},
	}
	wg := StartWorkerPool(ctx, rdb, handlers, 2)
	require.NoError(t, NewDispatcher(rdb).Enqueue(ctx, JobPedidoCreado, PedidoJobPayload{PedidoID: 77}))

	select {
	case id := <-got:
		assert.Equal(t, uint(77), id)
	case <-time.After(10 * time.Second):
		t.Fatal("job was not processed")
	}
	cancel()
	wg.Wait()
}

func TestPool_PermanentFailureGoesToDLQ(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	handlers := map[string]JobHandler{
		JobPedidoCreado: func(context.Context, json.RawMessage) error {
			return Permanente(errors.New("pedido inexistente"))
		},
	}
	require.NoError(t, NewDispatcher(rdb).Enqueue(ctx, JobPedidoCreado, PedidoJobPayload{PedidoID: 1}))
	processJob(ctx, rdb, handlers, QueuePedidos, popJob(t, rdb))

	n, err := DLQLength(ctx, rdb, QueuePedidos)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	raw, err := rdb.LIndex(ctx, DLQPrefix+QueuePedidos, 0).Result()
	require.NoError(t, err)
	var entry EntradaDLQ
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))
	assert.Equal(t, JobPedidoCreado, entry.Tipo)
	assert.Equal(t, "pedido inexistente", entry.Motivo)
	assert.Equal(t, 1, entry.Intentos)
}

func TestPool_TransientFailureIsRetriedThenDeadLettered(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	calls := 0
	handlers := map[string]JobHandler{
		JobEstadoActualizado: func(context.Context, json.RawMessage) error {
			calls++
			return errors.New("smtp timeout")
		},
	}
	require.NoError(t, NewDispatcher(rdb).Enqueue(ctx, JobEstadoActualizado, PedidoJobPayload{PedidoID: 5}))

	for i := 1; i < maxIntentos; i++ {
		processJob(ctx, rdb, handlers, QueuePedidos, popJob(t, rdb))
		n, err := rdb.ZCard(ctx, RetrySet).Result()
		require.NoError(t, err)
		require.Equal(t, int64(1), n, "attempt %d waits in the retry set", i)

		// Nothing is due yet.
		assert.Zero(t, requeueDue(ctx, rdb, time.Now()))
		assert.Equal(t, 1, requeueDue(ctx, rdb, time.Now().Add(time.Hour)))
	}
	processJob(ctx, rdb, handlers, QueuePedidos, popJob(t, rdb))

	assert.Equal(t, maxIntentos, calls)
	n, err := DLQLength(ctx, rdb, QueuePedidos)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPool_UnknownJobTypeGoesToDLQ(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, NewDispatcher(rdb).Enqueue(ctx, "desconocido", map[string]int{"x": 1}))
	processJob(ctx, rdb, map[string]JobHandler{}, QueuePedidos, popJob(t, rdb))

	n, err := DLQLength(ctx, rdb, QueuePedidos)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDLQ_ListRequeuePurge(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	for id := uint(1); id <= 3; id++ {
		raw, err := json.Marshal(PedidoJobPayload{PedidoID: id})
		require.NoError(t, err)
		SendToDLQ(ctx, rdb, QueuePedidos, JobPedidoCreado, raw, "smtp caído", maxIntentos)
	}
	require.NoError(t, rdb.LPush(ctx, DLQPrefix+QueuePedidos, "{roto").Err())

	entradas, err := ListDLQ(ctx, rdb, QueuePedidos, 10)
	require.NoError(t, err)
	require.Len(t, entradas, 3, "unreadable entries are skipped")
	assert.Equal(t, "smtp caído", entradas[0].Motivo)

	// The malformed entry is the newest; requeue takes the oldest first.
	n, err := RequeueDLQ(ctx, rdb, QueuePedidos, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var job Job
	require.NoError(t, json.Unmarshal([]byte(popJob(t, rdb)), &job))
	assert.Equal(t, JobPedidoCreado, job.Type)
	assert.Zero(t, job.Attempts)
	var p PedidoJobPayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, uint(1), p.PedidoID)

	left, err := DLQLength(ctx, rdb, QueuePedidos)
	require.NoError(t, err)
	assert.Equal(t, int64(2), left)

	purged, err := PurgeDLQ(ctx, rdb, QueuePedidos)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
	left, err = DLQLength(ctx, rdb, QueuePedidos)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestPool_UndecodableJobGoesToDLQ(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, rdb.LPush(ctx, QueuePedidos, "{roto").Err())
	processJob(ctx, rdb, map[string]JobHandler{}, QueuePedidos, popJob(t, rdb))

	entradas, err := ListDLQ(ctx, rdb, QueuePedidos, 10)
	require.NoError(t, err)
	require.Len(t, entradas, 1)
	assert.Equal(t, JobIlegible, entradas[0].Tipo)
	assert.Zero(t, entradas[0].Intentos)
	var original string
	require.NoError(t, json.Unmarshal(entradas[0].Payload, &original))
	assert.Equal(t, "{roto", original)
}

func TestDLQ_ConcurrentRequeueMovesEachEntryOnce(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	const total = 30
	for id := uint(1); id <= total; id++ {
		raw, err := json.Marshal(PedidoJobPayload{PedidoID: id})
		require.NoError(t, err)
		SendToDLQ(ctx, rdb, QueuePedidos, JobPedidoCreado, raw, "smtp caído", maxIntentos)
	}

	var wg sync.WaitGroup
	movidos := make([]int, 4)
	for i := range movidos {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := RequeueDLQ(ctx, rdb, QueuePedidos, 0)
			assert.NoError(t, err)
			movidos[i] = n
		}(i)
	}
	wg.Wait()

	suma := 0
	for _, n := range movidos {
		suma += n
	}
	assert.Equal(t, total, suma)
	queued, err := rdb.LRange(ctx, QueuePedidos, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, queued, total)
	vistos := map[uint]bool{}
	for _, raw := range queued {
		var job Job
		require.NoError(t, json.Unmarshal([]byte(raw), &job))
		var p PedidoJobPayload
		require.NoError(t, json.Unmarshal(job.Payload, &p))
		assert.False(t, vistos[p.PedidoID], "pedido %d requeued twice", p.PedidoID)
		vistos[p.PedidoID] = true
	}
	left, err := DLQLength(ctx, rdb, QueuePedidos)
	require.NoError(t, err)
	assert.Zero(t, left)
}

func TestRetryCron_ConcurrentTicksMoveEachJobOnce(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	const total = retryBatchSize
	for id := uint(1); id <= total; id++ {
		raw, err := json.Marshal(PedidoJobPayload{PedidoID: id})
		require.NoError(t, err)
		require.NoError(t, scheduleRetry(ctx, rdb, Job{Type: JobPedidoCreado, Payload: raw, Attempts: 1}))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	suma := 0
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := requeueDue(ctx, rdb, time.Now().Add(time.Hour))
			mu.Lock()
			suma += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, total, suma)
	n, err := rdb.LLen(ctx, QueuePedidos).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(total), n)
	n, err = rdb.ZCard(ctx, RetrySet).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRetryCron_FailedPushKeepsJobInRetrySet(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	require.NoError(t, scheduleRetry(ctx, rdb, Job{Type: JobPedidoCreado, Payload: json.RawMessage(`{"pedido_id":1}`), Attempts: 1}))
	// A key of the wrong type makes LPUSH fail.
	require.NoError(t, rdb.Set(ctx, QueuePedidos, "x", 0).Err())

	assert.Zero(t, requeueDue(ctx, rdb, time.Now().Add(time.Hour)))
	n, err := rdb.ZCard(ctx, RetrySet).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
