package cp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/limaJavier/schooltimetable/pkg/sat"
)

type Status int

const (
	// A solution was found and no better one exists
	Optimal Status = iota
	// A solution was found but the deadline passed before it was proven optimal
	Feasible
	// No assignment satisfies every constraint
	Infeasible
	// The deadline passed before any solution was found
	Timeout
)

func (status Status) String() string {
	switch status {
	case Optimal:
		return "OPTIMAL"
	case Feasible:
		return "FEASIBLE"
	case Infeasible:
		return "INFEASIBLE"
	default:
		return "TIMEOUT_NO_SOLUTION"
	}
}

// Solved reports whether the outcome carries values for every variable
func (status Status) Solved() bool {
	return status == Optimal || status == Feasible
}

type Params struct {
	// Wall-clock budget of the whole solve, zero means no limit besides the context
	TimeLimit time.Duration
	// Number of objective bounds probed in parallel during optimization
	Workers int
	// Defaults to the embedded gini backend
	Solver sat.SATSolver
}

type Outcome struct {
	Status Status
	// One value per model variable, set only when Status.Solved()
	Values    Values
	Objective int64
	// Proven lower bound of the objective
	Bound     int64
	Variables uint64
	Clauses   int
	// Number of satisfiability calls made
	Calls   int
	Elapsed time.Duration
}

// A round of probes gets this fraction of the remaining time limit, so that hard bounds cannot starve
// the rounds after them
const probeShare = 4

// Shortest time a round of probes is given
const minProbeSlice = 100 * time.Millisecond

type probe struct {
	bound    int64
	solution sat.SATSolution
	timedOut bool
}

// Solve translates the model into CNF, finds a first solution and then tightens the objective bound by
// probing Params.Workers bounds per round until the optimum is proven or the time limit expires. A round
// runs on a share of the remaining time; a round which settles no bound is followed by one which may use
// all of it.
// Engine failures are returned as errors, never as a status.
func Solve(ctx context.Context, model *Model, params Params) (Outcome, error) {
	start := time.Now()
	if params.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.TimeLimit)
		defer cancel()
	}
	solver := params.Solver
	if solver == nil {
		solver = sat.NewGiniSolver()
	}
	workers := max(params.Workers, 1)

	enc := encode(model)
	outcome := Outcome{
		Variables: enc.instance.Variables,
		Clauses:   len(enc.instance.Clauses),
	}
	finish := func(status Status) (Outcome, error) {
		outcome.Status = status
		outcome.Elapsed = time.Since(start)
		return outcome, nil
	}

	outcome.Calls++
	solution, err := solver.Solve(ctx, enc.instance)
	if errors.Is(err, sat.ErrTimeout) {
		return finish(Timeout)
	} else if err != nil {
		return Outcome{}, fmt.Errorf("cannot solve model: %w", err)
	} else if solution == nil {
		return finish(Infeasible)
	}
	if err := outcome.accept(model, enc, solution); err != nil {
		return Outcome{}, err
	}
	if !model.hasObjective {
		outcome.Bound = outcome.Objective
		return finish(Optimal)
	}

	outcome.Bound = max(enc.objectiveOffset, model.objectiveFloor)
	settled := true
	for outcome.Bound < outcome.Objective && ctx.Err() == nil {
		probes := probeBounds(outcome.Bound, outcome.Objective, workers)
		roundCtx, cancel := probeContext(ctx, settled)

		group := errgroup.Group{}
		for i := range probes {
			group.Go(func() error {
				solution, err := solver.Solve(roundCtx, enc.withObjectiveAtMost(probes[i].bound))
				if errors.Is(err, sat.ErrTimeout) {
					probes[i].timedOut = true
					return nil
				}
				probes[i].solution = solution
				return err
			})
		}
		outcome.Calls += len(probes)
		err := group.Wait()
		cancel()
		if err != nil {
			return Outcome{}, fmt.Errorf("cannot tighten objective bound: %w", err)
		}

		settled = false
		for _, probe := range probes {
			if probe.timedOut {
				continue
			}
			settled = true
			if probe.solution == nil {
				outcome.Bound = max(outcome.Bound, probe.bound+1)
			} else if err := outcome.accept(model, enc, probe.solution); err != nil {
				return Outcome{}, err
			}
		}
	}

	if outcome.Bound >= outcome.Objective {
		outcome.Bound = outcome.Objective
		return finish(Optimal)
	}
	return finish(Feasible)
}

// accept decodes a solution and keeps it when it improves on the current one
func (outcome *Outcome) accept(model *Model, enc *encoding, solution sat.SATSolution) error {
	values := enc.decode(model, solution)
	if violations := model.Violations(values); len(violations) > 0 {
		return fmt.Errorf("solver returned an assignment violating %v", violations)
	}

	objective := model.Objective.Eval(values)
	if outcome.Values == nil || objective < outcome.Objective {
		outcome.Values = values
		outcome.Objective = objective
	}
	return nil
}

// probeContext limits a round of probes to a share of the time left, or to all of it when the previous
// round settled nothing or the context has no deadline
func probeContext(ctx context.Context, share bool) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok || !share {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, max(time.Until(deadline)/probeShare, minProbeSlice))
}

// probeBounds spreads up to workers distinct bounds over [lower, upper). The last one is always upper-1,
// which only asks for any improvement and is usually the quickest to settle.
func probeBounds(lower, upper int64, workers int) []probe {
	span := upper - lower
	bounds := make([]int64, 0, workers)
	for i := 1; i < workers; i++ {
		bounds = append(bounds, lower+span*int64(i)/int64(workers))
	}
	bounds = append(bounds, upper-1)
	bounds = slices.Compact(bounds)

	probes := make([]probe, len(bounds))
	for i, bound := range bounds {
		probes[i] = probe{bound: bound}
	}
	return probes
}
