package orchestrator

import (
	"context"
	"errors"
	"iter"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Hurricane0017/agri-advisor/core"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/finding"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/profile"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/query"
	"github.com/Hurricane0017/agri-advisor/internal/ivr/specialist"
	"github.com/Hurricane0017/agri-advisor/orchestration"
)

// specialistRunnable adapts one Specialist invocation to core.Runnable so
// the teacher's ScatterGather can fan it out alongside its siblings, each
// under its own per-specialist deadline per spec §4.4 Step 4.
type specialistRunnable struct {
	s        specialist.Specialist
	query    string
	profile  profile.FarmerProfile
	mode     specialist.Mode
	deadline time.Duration
	sem      *semaphore.Weighted
}

func (r *specialistRunnable) Invoke(ctx context.Context, _ any, _ ...core.Option) (any, error) {
	if r.sem != nil {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer r.sem.Release(1)
	}

	ctx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	f, err := r.s.Process(ctx, r.query, r.profile, r.mode)
	if err != nil {
		// A caller-contract violation, not a recoverable specialist
		// failure; ScatterGather aborts the whole dispatch on this.
		return nil, err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && f.Status != finding.Ok {
		f.Status = finding.Failed
		f.Err = context.DeadlineExceeded
	}
	return f, nil
}

func (r *specialistRunnable) Stream(ctx context.Context, input any, opts ...core.Option) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		res, err := r.Invoke(ctx, input, opts...)
		yield(res, err)
	}
}

// dispatch implements spec §4.4 Step 4: invoke the selected specialists
// concurrently in the mode matching the query's pipeline kind, wait for
// all to return, and collect findings. A specialist reporting Failed does
// not abort the dispatch; only the absence of any Ok finding does (step 5
// requires at least one).
func (o *Orchestrator) dispatch(ctx context.Context, q query.Query, p profile.FarmerProfile) ([]finding.AgentFinding, error) {
	mode := specialist.ModeFor(q.PipelineKind)
	agents := q.RequiredAgents
	if len(agents) == 0 {
		agents = query.AllAgents
	}

	deadline := specialistDeadline(o.Cfg)
	var runnables []core.Runnable
	for _, tag := range agents {
		s, ok := o.Registry.Get(tag)
		if !ok {
			continue
		}
		runnables = append(runnables, &specialistRunnable{s: s, query: q.ExtractedQuestion, profile: p, mode: mode, deadline: deadline, sem: o.specialistSem()})
	}

	aggregate := func(results []any) (any, error) {
		findings := make([]finding.AgentFinding, 0, len(results))
		for _, r := range results {
			if f, ok := r.(finding.AgentFinding); ok {
				findings = append(findings, f)
			}
		}
		return findings, nil
	}

	sg := orchestration.NewScatterGather(aggregate, runnables...)
	res, err := sg.Invoke(ctx, nil)
	if err != nil {
		return nil, core.NewError("orchestrator.dispatch", core.ErrAgentFailed, "specialist dispatch failed", err)
	}

	findings, _ := res.([]finding.AgentFinding)
	if !anyOk(findings) {
		return findings, core.NewError("orchestrator.dispatch", core.ErrAllAgentsFailed, "no specialist returned a usable finding", nil)
	}
	return findings, nil
}

func anyOk(findings []finding.AgentFinding) bool {
	for _, f := range findings {
		if f.Status == finding.Ok {
			return true
		}
	}
	return false
}
