package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hurricane0017/agri-advisor/internal/ivr/task"
)

// replayCmd reprocesses a single recording synchronously end-to-end
// (convert -> transcribe -> translate -> orchestrate -> deliver), bypassing
// the watcher and its dedup gate entirely. Useful for replaying a call that
// failed mid-pipeline or for local debugging against one fixture file —
// spec's Non-goals exclude durable job queues, but a manual single-file
// replay is an operator tool, not a queue.
func replayCmd() *cobra.Command {
	var configPaths []string

	cmd := &cobra.Command{
		Use:   "replay <audio-file>",
		Short: "Reprocess a single recording synchronously",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args[0], configPaths)
		},
	}
	cmd.Flags().StringSliceVar(&configPaths, "config-path", nil, "additional directory to search for config.yaml")
	return cmd
}

func runReplay(ctx context.Context, path string, configPaths []string) error {
	a, err := buildApp(configPaths)
	if err != nil {
		return err
	}
	defer a.tracerShutdown()

	t := task.New(path)
	rec, err := a.pipeline.Process(ctx, t)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	fmt.Printf("transcript: %q (language %s)\n", rec.SourceText(), rec.Transcription.Language)

	if !rec.Success {
		return fmt.Errorf("transcript marked unsuccessful, not orchestrating")
	}

	result, err := a.orch.Handle(ctx, rec)
	if err != nil {
		return fmt.Errorf("orchestrate: %w", err)
	}
	fmt.Printf("final message: %s\n", result.FinalMessage)

	transcriptFile := fmt.Sprintf("%s_transcript.json", t.ID)
	artifact, err := a.delivery.Deliver(ctx, t.ID, transcriptFile, rec.SourceText(), result.Profile.Phone, result.FinalMessage, rec.Transcription.Language)
	if err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	fmt.Printf("response artifact written for %s (tts=%s, chunks=%d)\n", t.ID, artifact.Metadata.TTSService, artifact.Metadata.Chunks)
	return nil
}
