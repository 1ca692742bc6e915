package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// contarComandos counts every command the client attempts.
type contarComandos struct{ n atomic.Int32 }

func (h *contarComandos) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *contarComandos) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.n.Add(1)
		return next(ctx, cmd)
	}
}

func (h *contarComandos) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRunWorker_BacksOffWhenRedisIsDown(t *testing.T) {
	// Nothing listens on port 1, so every BRPOP fails right away.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer rdb.Close()
	hook := &contarComandos{}
	rdb.AddHook(hook)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		runWorker(ctx, rdb, nil, 0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
	assert.LessOrEqual(t, hook.n.Load(), int32(2), "failed pops must wait before retrying")
}

func TestEsperar_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	esperar(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}
