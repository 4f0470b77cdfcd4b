package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Hurricane0017/agri-advisor/internal/adminserver"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/pipeline"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/task"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/transcript"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/watcher"
)

// runCmd starts the long-running service: watch -> pipeline -> orchestrate
// -> deliver, with an admin HTTP surface alongside it.
func runCmd() *cobra.Command {
	var configPaths []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the orchestration engine until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPaths)
		},
	}
	cmd.Flags().StringSliceVar(&configPaths, "config-path", nil, "additional directory to search for config.yaml")
	return cmd
}

// liveStats tracks the counters internal/adminserver's /status endpoint
// reports.
type liveStats struct {
	taskCh chan *task.AudioTask

	mu            sync.Mutex
	lastProcessed time.Time
	haveProcessed bool
}

// queueDepth approximates in-flight work as the buffered task channel's
// current length; tasks already claimed by a pool worker are not counted,
// so this undercounts work in the Converting/Transcribing/Translating
// stages, but it is enough to show a caller whether the queue is backing up.
func (s *liveStats) queueDepth() int { return len(s.taskCh) }

func (s *liveStats) lastProcessedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProcessed, s.haveProcessed
}

func (s *liveStats) recordProcessed(t time.Time) {
	s.mu.Lock()
	s.lastProcessed = t
	s.haveProcessed = true
	s.mu.Unlock()
}

func runServe(ctx context.Context, configPaths []string) error {
	a, err := buildApp(configPaths)
	if err != nil {
		return err
	}
	defer a.tracerShutdown()

	taskCh := make(chan *task.AudioTask, 64)
	transcriptCh := make(chan transcript.Transcript, 64)
	stats := &liveStats{taskCh: taskCh}

	pool := pipeline.NewPool(a.pipeline, a.cfg.PipelineWorkers)
	pool.Logger = a.logger.Slog()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w := watcher.New(a.dirs.Monitor, a.dedup,
			watcher.WithStabilityWindow(a.cfg.StabilityWindow),
			watcher.WithMaxWait(a.cfg.MaxWait),
			watcher.WithLogger(a.logger.Slog()))
		if err := w.Start(ctx, taskCh); err != nil && ctx.Err() == nil {
			a.logger.Error(ctx, "watcher stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		pool.Run(ctx, taskCh, transcriptCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeTranscripts(ctx, a, transcriptCh, stats)
	}()

	var adminSrv *http.Server
	if a.cfg.AdminAddr != "" {
		admin := adminserver.New(a.health, adminStats(stats.queueDepth, stats.lastProcessedAt))
		admin.Logger = a.logger.Slog()
		adminSrv = &http.Server{Addr: a.cfg.AdminAddr, Handler: admin.Engine(nil)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error(ctx, "admin server stopped", "error", err)
			}
		}()
	}

	<-ctx.Done()
	a.logger.Info(ctx, "shutting down")

	if adminSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = adminSrv.Shutdown(shutdownCtx)
		cancel()
	}

	wg.Wait()
	return nil
}

func consumeTranscripts(ctx context.Context, a *app, in <-chan transcript.Transcript, stats *liveStats) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-in:
			if !ok {
				return
			}
			handleTranscript(ctx, a, t)
			stats.recordProcessed(time.Now())
		}
	}
}

// handleTranscript runs C4 (orchestrate) then C5 (deliver) for one
// transcript-ready task, per spec §4's pipeline. Errors are logged, not
// propagated — one farmer's failed call must not stop the service.
func handleTranscript(ctx context.Context, a *app, t transcript.Transcript) {
	if !t.Success {
		a.logger.Warn(ctx, "skipping orchestration for failed transcript", "id", t.AudioTaskID)
		return
	}

	result, err := a.orch.Handle(ctx, t)
	if err != nil {
		a.logger.Error(ctx, "orchestration failed", "id", t.AudioTaskID, "error", err)
		return
	}

	sourceLang := t.Transcription.Language
	transcriptFile := fmt.Sprintf("%s_transcript.json", t.AudioTaskID)

	_, err = a.delivery.Deliver(ctx, t.AudioTaskID, transcriptFile, t.SourceText(), result.Profile.Phone, result.FinalMessage, sourceLang)
	if err != nil {
		a.logger.Error(ctx, "delivery failed", "id", t.AudioTaskID, "error", err)
	}
}
