package sat

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// How often a running embedded search checks whether its context is done
const giniPollInterval = 5 * time.Millisecond

type giniSolver struct{}

// NewGiniSolver returns the embedded backend, which needs no external binary
func NewGiniSolver() SATSolver {
	return &giniSolver{}
}

func (solver *giniSolver) Solve(ctx context.Context, sat SAT) (SATSolution, error) {
	if ctx.Err() != nil {
		return nil, contextError(ctx)
	}

	g := gini.NewVc(int(sat.Variables), len(sat.Clauses))
	for _, clause := range sat.Clauses {
		for _, literal := range clause {
			g.Add(z.Dimacs2Lit(int(literal)))
		}
		g.Add(z.LitNull)
	}

	search := g.GoSolve()
	ticker := time.NewTicker(giniPollInterval)
	defer ticker.Stop()

	result := 0
	for done := false; !done; {
		select {
		case <-ctx.Done():
			if result = search.Stop(); result == 0 {
				return nil, contextError(ctx)
			}
			done = true
		case <-ticker.C:
			result, done = search.Test()
		}
	}

	if result < 0 { // Unsatisfiable
		return nil, nil
	}

	solution := make(SATSolution, 0, sat.Variables)
	maxVar := g.MaxVar()
	for variable := uint64(1); variable <= sat.Variables; variable++ {
		// Variables which never occurred in a clause are unconstrained
		if z.Var(variable) > maxVar || !g.Value(z.Var(variable).Pos()) {
			solution = append(solution, -int64(variable))
		} else {
			solution = append(solution, int64(variable))
		}
	}
	return solution, nil
}
