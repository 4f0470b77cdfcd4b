package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/task"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/transcript"
)

// Pool runs a fixed number of Pipeline workers consuming tasks from one
// input channel, emitting each produced transcript (successful or partial)
// to an output channel for the orchestrator, per spec §5's scheduling model (a
// pool of recording-pipeline workers, default 4, configurable).
type Pool struct {
	Pipeline *Pipeline
	Workers  int
	Logger   *slog.Logger
}

// NewPool builds a Pool of n workers (clamped to at least 1) around p.
func NewPool(p *Pipeline, n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{Pipeline: p, Workers: n, Logger: slog.Default()}
}

// Run drains in until ctx is cancelled or in is closed, fanning each task
// out to one of Workers goroutines. Every produced transcript (successful
// or partial) is sent to out; tasks that error before a transcript exists
// are logged and dropped, not retried automatically (spec §5 cancellation
// policy — in-flight work lost on shutdown is not redelivered).
func (p *Pool) Run(ctx context.Context, in <-chan *task.AudioTask, out chan<- transcript.Transcript) {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.Workers; i++ {
		g.Go(func() error {
			p.worker(ctx, in, out)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pool) worker(ctx context.Context, in <-chan *task.AudioTask, out chan<- transcript.Transcript) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			rec, err := p.Pipeline.Process(ctx, t)
			if err != nil {
				p.Logger.Warn("pipeline: task failed", "id", t.ID, "error", err)
				if rec.Transcription.Transcript == "" && rec.Transcription.Error == "" {
					continue
				}
			}
			select {
			case out <- rec:
			case <-ctx.Done():
				return
			}
		}
	}
}
