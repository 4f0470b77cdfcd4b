// Package orchestrator implements the C4 component: profile resolution,
// query extraction and classification, concurrent specialist dispatch, and
// synthesis into a farmer-facing response, per spec §4.4.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Hurricane0017/agri-advisor/config"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/specialist"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/transcript"
	"github.com/Hurricane0017/agri-advisor/llm"
	"github.com/Hurricane0017/agri-advisor/o11y"
)

// OrchestrationResult is the orchestrator's final output for one call, per
// spec §4.4's six steps.
type OrchestrationResult struct {
	Profile  profile.FarmerProfile
	Query    query.Query
	Findings []finding.AgentFinding

	// Specific-mode synthesis.
	Answer string

	// Generic-mode synthesis artifacts.
	Strategy   string
	Roadmap    *Roadmap
	Hyperlocal *Hyperlocal

	// FinalMessage is the step-6 rewrite in the pivot language, addressed
	// to the farmer by name when available.
	FinalMessage string
}

// Orchestrator implements Handle per spec §4.4.
type Orchestrator struct {
	LLM          llm.ChatModel
	ProfileStore profile.Store
	Registry     *specialist.Registry
	Cfg          config.Config

	sem     *semaphore.Weighted
	semInit sync.Once
}

// specialistSem lazily builds the process-wide bound on concurrent
// specialist invocations (spec's concurrency model: up to
// config.MaxConcurrentAgents specialists in flight at once, across every
// call the orchestrator is handling concurrently, not just one call's four
// agents). Built with sync.Once since Handle runs on every pipeline
// worker's goroutine against the same *Orchestrator.
func (o *Orchestrator) specialistSem() *semaphore.Weighted {
	o.semInit.Do(func() {
		n := int64(o.Cfg.MaxConcurrentAgents)
		if n < 1 {
			n = 4
		}
		o.sem = semaphore.NewWeighted(n)
	})
	return o.sem
}

// Handle runs all six steps for one transcript-ready task.
func (o *Orchestrator) Handle(ctx context.Context, t transcript.Transcript) (OrchestrationResult, error) {
	start := time.Now()
	ctx, span := o11y.StartSpan(ctx, "orchestrator.Handle", o11y.Attrs{"audio_task_id": t.AudioTaskID})
	defer span.End()
	defer func() { o11y.OperationDuration(ctx, float64(time.Since(start).Milliseconds())) }()

	var result OrchestrationResult

	result.Profile = o.resolveProfile(ctx, t)
	result.Query = o.extractQuery(ctx, t, result.Profile)
	span.SetAttributes(o11y.Attrs{"pipeline_kind": string(result.Query.PipelineKind)})

	findings, err := o.dispatch(ctx, result.Query, result.Profile)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(o11y.StatusError, err.Error())
		return result, err
	}
	result.Findings = findings

	if result.Query.PipelineKind == query.Generic {
		result.Strategy, result.Roadmap, result.Hyperlocal = o.synthesizeGeneric(ctx, findings)
	} else {
		result.Answer = o.synthesizeSpecific(ctx, result.Query, findings)
	}

	result.FinalMessage = o.finalRewrite(ctx, result)
	return result, nil
}

func specialistDeadline(cfg config.Config) time.Duration {
	if cfg.SpecialistDeadline > 0 {
		return cfg.SpecialistDeadline
	}
	return 30 * time.Second
}
