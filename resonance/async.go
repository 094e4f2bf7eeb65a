package resonance

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-bore/geometry"
	"github.com/RyanBlaney/sonido-bore/logging"
)

var ErrPoolClosed = errors.New("resonance: pool closed")

// Mode selects which pipeline a job runs
type Mode string

const (
	ModeAuto           Mode = "auto"
	ModeTransferMatrix Mode = "tmm"
	ModeSimplified     Mode = "simplified"
)

// ParseMode validates a mode name. The empty string means ModeAuto.
func ParseMode(name string) (Mode, error) {
	switch Mode(name) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeTransferMatrix, ModeSimplified:
		return Mode(name), nil
	default:
		return "", fmt.Errorf("resonance: unknown mode %q", name)
	}
}

// Run analyzes points with the given mode
func (a *Analyzer) Run(ctx context.Context, mode Mode, points []geometry.Point) (*AnalysisResult, error) {
	switch mode {
	case ModeTransferMatrix:
		return a.AnalyzeTransferMatrix(ctx, points)
	case ModeSimplified:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return a.AnalyzeSimplified(points, "")
	default:
		return a.Analyze(ctx, points)
	}
}

// Job is one queued analysis
type Job struct {
	ID     string
	Mode   Mode
	Points []geometry.Point
}

// Outcome is the result of a Job
type Outcome struct {
	JobID  string
	Result *AnalysisResult
	Err    error
}

type queuedJob struct {
	ctx context.Context
	job Job
	out chan Outcome
}

// Pool runs analyses on a fixed set of worker goroutines.
type Pool struct {
	analyzer *Analyzer
	jobs     chan queuedJob
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	logger logging.Logger
}

// NewPool starts workers goroutines; workers <= 0 uses GOMAXPROCS.
func NewPool(analyzer *Analyzer, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		analyzer: analyzer,
		jobs:     make(chan queuedJob, workers),
		logger: logging.WithFields(logging.Fields{
			"component": "resonance_pool",
		}),
	}

	for range workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for q := range p.jobs {
				p.run(q)
			}
		}()
	}

	return p
}

func (p *Pool) run(q queuedJob) {
	defer close(q.out)

	if err := q.ctx.Err(); err != nil {
		q.out <- Outcome{JobID: q.job.ID, Err: err}
		return
	}

	result, err := p.analyzer.Run(q.ctx, q.job.Mode, q.job.Points)
	if err != nil {
		p.logger.Debug("Job failed", logging.Fields{"job": q.job.ID, "error": err.Error()})
	}
	q.out <- Outcome{JobID: q.job.ID, Result: result, Err: err}
}

// Submit queues job and returns a channel that receives exactly one
// Outcome and is then closed. Submitting to a closed pool, or a ctx that
// ends before a worker is free, yields an Outcome carrying the error.
func (p *Pool) Submit(ctx context.Context, job Job) <-chan Outcome {
	out := make(chan Outcome, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		out <- Outcome{JobID: job.ID, Err: ErrPoolClosed}
		close(out)
		return out
	}

	select {
	case p.jobs <- queuedJob{ctx: ctx, job: job, out: out}:
	case <-ctx.Done():
		out <- Outcome{JobID: job.ID, Err: ctx.Err()}
		close(out)
	}

	return out
}

// Close stops accepting jobs, lets queued jobs finish and waits for the
// workers to exit. It is safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
