// Package worker provides a fixed-size pool that runs synthesis calls off
// the request goroutines.
//
// The pool bounds how many engine subprocesses run at once; requests
// queue for a worker slot, so one long synthesis never blocks unrelated
// requests indefinitely while still protecting the host from unbounded
// subprocess fan-out.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/book-expert/logger"

	"github.com/book-expert/piper-web/internal/core"
)

// DefaultWorkers is the pool size when the configuration leaves it unset.
const DefaultWorkers = 2

// ErrPoolStopped is returned when a job is submitted after the pool's
// run context was cancelled.
var ErrPoolStopped = errors.New("synthesis pool is stopped")

type job struct {
	ctx     context.Context
	request core.SynthesisRequest
	result  chan result
}

type result struct {
	artifact core.AudioArtifact
	err      error
}

// Pool dispatches synthesis requests to a fixed number of workers. It
// implements core.Synthesizer so callers cannot tell pooled and direct
// invocation apart.
type Pool struct {
	synthesizer core.Synthesizer
	workers     int
	jobs        chan job
	log         *logger.Logger

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewPool creates a pool over the given synthesizer. A non-positive
// worker count selects DefaultWorkers.
func NewPool(synthesizer core.Synthesizer, workers int, log *logger.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Pool{
		synthesizer: synthesizer,
		workers:     workers,
		jobs:        make(chan job),
		log:         log,
		done:        make(chan struct{}),
	}
}

// Run starts the workers and blocks until the context is cancelled, then
// waits for in-flight jobs to finish.
func (p *Pool) Run(ctx context.Context) {
	var waitGroup sync.WaitGroup

	for range p.workers {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()
			p.work(ctx)
		}()
	}

	<-ctx.Done()

	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	waitGroup.Wait()
	close(p.done)
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pending := <-p.jobs:
			artifact, err := p.synthesizer.Synthesize(pending.ctx, pending.request)
			if err != nil {
				p.log.Error("Synthesis job for voice %s failed: %v", pending.request.VoiceID, err)
			}

			pending.result <- result{artifact: artifact, err: err}
		}
	}
}

// Synthesize submits the request to the pool and waits for its result.
// The caller's context covers both the queue wait and the synthesis
// itself.
func (p *Pool) Synthesize(ctx context.Context, req core.SynthesisRequest) (core.AudioArtifact, error) {
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()

	if stopped {
		return core.AudioArtifact{}, ErrPoolStopped
	}

	pending := job{
		ctx:     ctx,
		request: req,
		result:  make(chan result, 1),
	}

	select {
	case p.jobs <- pending:
	case <-p.done:
		return core.AudioArtifact{}, ErrPoolStopped
	case <-ctx.Done():
		return core.AudioArtifact{}, fmt.Errorf("synthesis job abandoned in queue: %w", ctx.Err())
	}

	select {
	case res := <-pending.result:
		return res.artifact, res.err
	case <-ctx.Done():
		return core.AudioArtifact{}, fmt.Errorf("synthesis job abandoned: %w", ctx.Err())
	}
}
