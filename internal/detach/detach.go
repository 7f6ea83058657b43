// Package detach runs fire-and-forget tasks. The caller never waits on a task and
// never sees its error; failures and panics are logged and counted.
package detach

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

type Task func(ctx context.Context) error

type Options struct {
	MaxInFlight int64
	// MaxBacklog caps tasks waiting for a free slot. Defaults to 64 per slot.
	MaxBacklog int64
	Timeout    time.Duration
	// OnFailure is called with the task name after a task errors or panics.
	OnFailure func(name string)
}

type Runner struct {
	log     *zap.Logger
	sem     *semaphore.Weighted
	admit   *semaphore.Weighted
	timeout time.Duration
	onFail  func(string)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(log *zap.Logger, opts Options) *Runner {
	if opts.MaxInFlight < 1 {
		opts.MaxInFlight = 1
	}
	if opts.MaxBacklog < 1 {
		opts.MaxBacklog = 64 * opts.MaxInFlight
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		log:     log,
		sem:     semaphore.NewWeighted(opts.MaxInFlight),
		admit:   semaphore.NewWeighted(opts.MaxInFlight + opts.MaxBacklog),
		timeout: opts.Timeout,
		onFail:  opts.OnFailure,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Go starts fn on its own goroutine and returns immediately. When the backlog is
// full the task is dropped and reported as failed.
func (r *Runner) Go(name string, fn Task) {
	if !r.admit.TryAcquire(1) {
		r.log.Warn("detached task dropped", zap.String("task", name), zap.String("reason", "backlog full"))
		r.fail(name)
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.admit.Release(1)

		if err := r.sem.Acquire(r.ctx, 1); err != nil {
			r.log.Warn("detached task dropped", zap.String("task", name), zap.Error(err))
			r.fail(name)
			return
		}
		defer r.sem.Release(1)

		if err := r.run(name, fn); err != nil {
			r.log.Warn("detached task failed", zap.String("task", name), zap.Error(err))
			r.fail(name)
		}
	}()
}

func (r *Runner) run(name string, fn Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in %s: %v", name, p)
		}
	}()

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return fn(ctx)
}

func (r *Runner) fail(name string) {
	if r.onFail != nil {
		r.onFail(name)
	}
}

// Close waits for in-flight tasks until ctx is done, then cancels whatever is
// still running.
func (r *Runner) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}
