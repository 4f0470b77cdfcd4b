// Command orchestrator runs the IVR orchestration engine: it watches a
// directory for new recordings, runs them through the recording pipeline,
// dispatches the transcript to the domain orchestrator, and delivers the
// synthesised response back as audio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes per spec §5's "Exit codes (for any CLI entry points)".
const (
	ExitOK            = 0
	ExitFatalStartup  = 1
	ExitMisconfigured = 2
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := &cobra.Command{
		Use:     "orchestrator",
		Short:   "Run the agri-advisor IVR orchestration engine",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(replayCmd())
	rootCmd.AddCommand(healthcheckCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a startup/runtime error to the spec's exit code contract.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if _, ok := err.(*misconfigError); ok {
		return ExitMisconfigured
	}
	return ExitFatalStartup
}

// misconfigError marks an error as a misconfiguration (exit code 2) rather
// than a fatal startup error (exit code 1) — e.g. an unreadable watch
// directory is a startup error, but an invalid flag combination or a config
// value out of range is a misconfiguration.
type misconfigError struct{ error }

func misconfigf(format string, args ...any) error {
	return &misconfigError{fmt.Errorf(format, args...)}
}
