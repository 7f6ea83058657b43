package detach

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunner_GoDoesNotBlockCaller(t *testing.T) {
	r := NewRunner(zap.NewNop(), Options{MaxInFlight: 1})
	release := make(chan struct{})
	started := make(chan struct{})

	r.Go("slow", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})

	returned := make(chan struct{})
	go func() {
		r.Go("queued", func(ctx context.Context) error { return nil })
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("Go blocked while the semaphore was held")
	}

	<-started
	close(release)
	require.NoError(t, r.Close(context.Background()))
}

func TestRunner_DropsWhenBacklogFull(t *testing.T) {
	var dropped atomic.Int32
	r := NewRunner(zap.NewNop(), Options{MaxInFlight: 1, MaxBacklog: 1, OnFailure: func(name string) {
		if name == "overflow" {
			dropped.Add(1)
		}
	}})
	release := make(chan struct{})
	var ran atomic.Int32
	slow := func(ctx context.Context) error {
		<-release
		ran.Add(1)
		return nil
	}

	r.Go("slow", slow)
	r.Go("waiting", slow)
	for i := 0; i < 5; i++ {
		r.Go("overflow", slow)
	}
	assert.Equal(t, int32(5), dropped.Load())

	close(release)
	require.NoError(t, r.Close(context.Background()))
	assert.Equal(t, int32(2), ran.Load())
}

func TestRunner_FailuresAndPanicsAreReported(t *testing.T) {
	var mu sync.Mutex
	var failed []string
	r := NewRunner(zap.NewNop(), Options{MaxInFlight: 4, OnFailure: func(name string) {
		mu.Lock()
		failed = append(failed, name)
		mu.Unlock()
	}})

	var ok atomic.Bool
	r.Go("error", func(ctx context.Context) error { return errors.New("db down") })
	r.Go("panic", func(ctx context.Context) error { panic("boom") })
	r.Go("fine", func(ctx context.Context) error { ok.Store(true); return nil })

	require.NoError(t, r.Close(context.Background()))
	assert.True(t, ok.Load())
	assert.ElementsMatch(t, []string{"error", "panic"}, failed)
}

func TestRunner_TimeoutCancelsTaskContext(t *testing.T) {
	r := NewRunner(zap.NewNop(), Options{MaxInFlight: 1, Timeout: 20 * time.Millisecond})
	errc := make(chan error, 1)

	r.Go("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		errc <- ctx.Err()
		return ctx.Err()
	})

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled")
	}
	require.NoError(t, r.Close(context.Background()))
}

func TestRunner_CloseHonoursDeadline(t *testing.T) {
	r := NewRunner(zap.NewNop(), Options{MaxInFlight: 1})
	r.Go("stuck", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Close(ctx), context.DeadlineExceeded)
}
