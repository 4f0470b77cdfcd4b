package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Hurricane0017/agri-advisor/o11y"
)

// healthcheckCmd builds the same wiring run would use, runs every
// registered health check once, prints the results, and exits non-zero if
// any component is unhealthy — suitable for a container orchestrator's
// liveness probe when the admin HTTP surface is disabled.
func healthcheckCmd() *cobra.Command {
	var configPaths []string

	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check database connectivity and LLM configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealthcheck(cmd.Context(), configPaths)
		},
	}
	cmd.Flags().StringSliceVar(&configPaths, "config-path", nil, "additional directory to search for config.yaml")
	return cmd
}

func runHealthcheck(ctx context.Context, configPaths []string) error {
	a, err := buildApp(configPaths)
	if err != nil {
		return err
	}
	defer a.tracerShutdown()

	results := a.health.CheckAll(ctx)
	unhealthy := false
	for _, r := range results {
		fmt.Printf("%-10s %-10s %s\n", r.Component, r.Status, r.Message)
		if r.Status == o11y.Unhealthy {
			unhealthy = true
		}
	}
	if unhealthy {
		return fmt.Errorf("one or more components are unhealthy")
	}
	return nil
}
