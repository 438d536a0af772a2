package tier

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// BackfillPool is the bounded, supervised worker pool fire-and-forget
// backfills run on. It exists so post-response repairs never become
// unbounded detached goroutines — a fixed number of workers drain a
// buffered job channel, started once at Init and stopped once at
// shutdown, mirroring the teacher's package-level worker-channel pattern.
type BackfillPool struct {
	jobs   chan func(context.Context)
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.SugaredLogger
}

// NewBackfillPool starts workers workers draining a channel buffered to
// queueSize. Jobs submitted after Stop are dropped.
func NewBackfillPool(workers, queueSize int, logger *zap.SugaredLogger) *BackfillPool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &BackfillPool{
		jobs:   make(chan func(context.Context), queueSize),
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *BackfillPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(job)
		}
	}
}

func (p *BackfillPool) run(job func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Errorw("backfill job panicked", "panic", r)
		}
	}()
	job(p.ctx)
}

// Submit enqueues a fire-and-forget job. The caller never observes its
// error — backfill failures are logged and swallowed, never propagated
// to the request that triggered them.
func (p *BackfillPool) Submit(job func(context.Context)) {
	select {
	case p.jobs <- job:
	default:
		p.logger.Warnw("backfill queue full, dropping job")
	}
}

// Stop signals all workers to exit after draining in-flight jobs and
// waits for them to return. Already-queued jobs not yet picked up are
// abandoned.
func (p *BackfillPool) Stop() {
	p.cancel()
	p.wg.Wait()
}
