package sat

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// ErrTimeout is returned when the context deadline expires before the solver reached an answer. It never
// means the instance is unsatisfiable.
var ErrTimeout = errors.New("sat solver: deadline exceeded before an answer was found")

type SATSolver interface {
	// Returns a solution of the SAT instance if satisfiable, else returns nil (these are valid outputs where error shall be nil)
	Solve(ctx context.Context, sat SAT) (SATSolution, error)
}

const Gini = "gini"

// Solvers lists every backend name understood by NewSolver
func Solvers() []string {
	names := append([]string{Gini}, lo.Keys(dialects)...)
	slices.Sort(names[1:])
	return names
}

// NewSolver returns the backend registered under name. External backends run the binary found in paths
// under the backend name (e.g. paths["kissat"]), falling back to the name itself looked up in $PATH.
func NewSolver(name string, paths map[string]string) (SATSolver, error) {
	if name == Gini {
		return NewGiniSolver(), nil
	}

	dialect, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unknown sat solver \"%v\", available solvers are %v", name, Solvers())
	}
	executable := name
	if path, ok := paths[name]; ok && path != "" {
		executable = path
	}
	return newExternalSolver(executable, dialect), nil
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}
