// Package orchestration provides workflow composition patterns built on
// core.Runnable. The orchestrator (internal/ivr/orchestrator) uses
// ScatterGather to fan a query out to every matching specialist concurrently
// and aggregate their findings.
//
// Usage:
//
//	sg := orchestration.NewScatterGather(aggregator, worker1, worker2)
//	result, err := sg.Invoke(ctx, input)
package orchestration
