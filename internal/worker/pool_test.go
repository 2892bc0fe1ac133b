package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPoolRunsTasks(t *testing.T) {
	pool := NewPool(PoolOptions{Workers: 2, QueueSize: 8, Logger: zap.NewNop()})

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		ok := pool.Submit("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
		require.True(t, ok)
	}
	require.True(t, pool.Submit("fail", func(ctx context.Context) error { return errors.New("boom") }))
	require.True(t, pool.Submit("panic", func(ctx context.Context) error { panic("boom") }))

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Equal(t, int32(5), ran.Load())
}

func TestPoolSubmitNeverBlocksWhenFull(t *testing.T) {
	pool := NewPool(PoolOptions{Workers: 1, QueueSize: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	require.True(t, pool.Submit("block", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	require.True(t, pool.Submit("queued", func(ctx context.Context) error { return nil }))

	done := make(chan bool)
	go func() {
		done <- pool.Submit("dropped", func(ctx context.Context) error { return nil })
	}()
	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	close(release)
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestPoolTaskContextIsNotCancelled(t *testing.T) {
	pool := NewPool(PoolOptions{Workers: 1, QueueSize: 1})

	errCh := make(chan error, 1)
	require.True(t, pool.Submit("ctx", func(ctx context.Context) error {
		errCh <- ctx.Err()
		return nil
	}))
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.NoError(t, <-errCh)
}

func TestPoolRejectsAfterShutdown(t *testing.T) {
	pool := NewPool(PoolOptions{})
	require.NoError(t, pool.Shutdown(context.Background()))

	assert.False(t, pool.Submit("late", func(ctx context.Context) error { return nil }))
	assert.ErrorIs(t, pool.Shutdown(context.Background()), ErrPoolClosed)
}

func TestPoolShutdownHonoursDeadline(t *testing.T) {
	pool := NewPool(PoolOptions{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	defer close(release)
	require.True(t, pool.Submit("slow", func(ctx context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, pool.Shutdown(ctx), context.DeadlineExceeded)
}
