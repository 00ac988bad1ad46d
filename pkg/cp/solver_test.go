package cp

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/schooltimetable/pkg/sat"
)

func TestSolveAgreesWithBruteForce(t *testing.T) {
	random := rand.New(rand.NewPCG(7, 11))

	for instance := range 60 {
		//** Arrange
		model := randomModel(random)
		feasible, optimum := bruteForce(model)

		//** Act
		outcome, err := Solve(context.Background(), model, Params{Workers: 1 + instance%3})

		//** Assert
		require.NoError(t, err)
		if !feasible {
			assert.Equal(t, Infeasible, outcome.Status, "instance %d", instance)
			continue
		}
		require.Equal(t, Optimal, outcome.Status, "instance %d", instance)
		assert.Equal(t, optimum, outcome.Objective, "instance %d", instance)
		assert.Empty(t, model.Violations(outcome.Values), "instance %d", instance)
	}
}

func TestSolveBalancesLoad(t *testing.T) {
	//** Arrange
	model := balanceModel()

	//** Act
	outcome, err := Solve(context.Background(), model, Params{Workers: 4, TimeLimit: time.Minute})

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, Optimal, outcome.Status)
	assert.Equal(t, int64(1), outcome.Objective)
	assert.Equal(t, int64(1), outcome.Bound)
	high, low := Var(model.NumVars()-2), Var(model.NumVars()-1)
	assert.Equal(t, int64(3), outcome.Values.Int(high))
	assert.Equal(t, int64(2), outcome.Values.Int(low))
}

func TestSolveWithoutObjective(t *testing.T) {
	model := NewModel()
	a, b := model.NewBool("a"), model.NewBool("b")
	model.Add(Implies("a->b", a, b), Geq("a", Sum(a), 1))

	outcome, err := Solve(context.Background(), model, Params{})

	require.NoError(t, err)
	assert.Equal(t, Optimal, outcome.Status)
	assert.True(t, outcome.Values.Bool(a))
	assert.True(t, outcome.Values.Bool(b))
	assert.Equal(t, 1, outcome.Calls)
}

func TestSolveInfeasible(t *testing.T) {
	model := NewModel()
	vars := []Var{model.NewBool("a"), model.NewBool("b"), model.NewBool("c")}
	model.Add(Geq("at least two", Sum(vars...), 2), AtMostOne("at most one", vars...))
	model.Minimize(Sum(vars...))

	outcome, err := Solve(context.Background(), model, Params{Workers: 2})

	require.NoError(t, err)
	assert.Equal(t, Infeasible, outcome.Status)
	assert.Nil(t, outcome.Values)
}

func TestSolveTimeoutIsNotInfeasible(t *testing.T) {
	model := NewModel()
	a := model.NewBool("a")
	model.Add(Geq("a", Sum(a), 1))

	outcome, err := Solve(context.Background(), model, Params{TimeLimit: time.Nanosecond})

	require.NoError(t, err)
	assert.Equal(t, Timeout, outcome.Status)
	assert.False(t, outcome.Status.Solved())
}

func TestSolveEngineError(t *testing.T) {
	model := NewModel()
	model.NewBool("a")

	_, err := Solve(context.Background(), model, Params{Solver: failingSolver{}})

	assert.ErrorContains(t, err, "engine crashed")
}

func TestSolveProbesShareTheTimeLimit(t *testing.T) {
	//** Arrange
	model := balanceModel()
	solver := &recordingSolver{inner: sat.NewGiniSolver()}
	start := time.Now()

	//** Act
	outcome, err := Solve(context.Background(), model, Params{Workers: 2, TimeLimit: time.Minute, Solver: solver})

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, Optimal, outcome.Status)
	require.Greater(t, len(solver.deadlines), 1)
	assert.Greater(t, solver.deadlines[0].Sub(start), 50*time.Second)
	for _, deadline := range solver.deadlines[1:] {
		assert.Less(t, deadline.Sub(start), 20*time.Second)
	}
}

func TestSolveContinuesAfterStalledRound(t *testing.T) {
	//** Arrange
	// The first probe never answers within its share, the next round gets the rest of the time
	model := balanceModel()
	solver := &recordingSolver{inner: sat.NewGiniSolver(), stalls: 1}

	//** Act
	outcome, err := Solve(context.Background(), model, Params{Workers: 1, TimeLimit: 4 * time.Second, Solver: solver})

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, Optimal, outcome.Status)
	assert.Equal(t, int64(1), outcome.Objective)
	assert.Greater(t, outcome.Calls, 2)
}

func TestProbeBounds(t *testing.T) {
	assert.Equal(t, []probe{{bound: 0}}, probeBounds(0, 1, 8))
	assert.Equal(t, []probe{{bound: 9}}, probeBounds(0, 10, 1))
	assert.Equal(t, []probe{{bound: 6}, {bound: 10}}, probeBounds(1, 11, 2))
	assert.Equal(t, []probe{{bound: 3}, {bound: 6}, {bound: 9}, {bound: 11}}, probeBounds(0, 12, 4))
}

// recordingSolver notes the deadline of every call and lets the first probes after the initial solve run
// into their deadline
type recordingSolver struct {
	inner     sat.SATSolver
	stalls    int
	mutex     sync.Mutex
	deadlines []time.Time
}

func (solver *recordingSolver) Solve(ctx context.Context, instance sat.SAT) (sat.SATSolution, error) {
	solver.mutex.Lock()
	deadline, _ := ctx.Deadline()
	solver.deadlines = append(solver.deadlines, deadline)
	stall := len(solver.deadlines) > 1 && len(solver.deadlines) <= 1+solver.stalls
	solver.mutex.Unlock()

	if stall {
		<-ctx.Done()
		return nil, sat.ErrTimeout
	}
	return solver.inner.Solve(ctx, instance)
}

type failingSolver struct{}

func (failingSolver) Solve(context.Context, sat.SAT) (sat.SATSolution, error) {
	return nil, fmt.Errorf("engine crashed")
}

// balanceModel spreads seven items over three days, each day total squeezed between low and high, and
// minimizes high - low. Its two last variables are high and low.
func balanceModel() *Model {
	model := NewModel()
	days := make([][]Var, 3)
	for item := range 7 {
		choices := make([]Var, 0, len(days))
		for day := range days {
			v := model.NewBool(fmt.Sprintf("item%d@day%d", item, day))
			days[day] = append(days[day], v)
			choices = append(choices, v)
		}
		model.Add(ExactlyOne(fmt.Sprintf("item%d", item), choices...))
	}
	high := model.NewInt("high", 0, 7)
	low := model.NewInt("low", 0, 7)
	for day, vars := range days {
		model.Add(
			Leq(fmt.Sprintf("high%d", day), Sum(vars...).With(high, -1), 0),
			Geq(fmt.Sprintf("low%d", day), Sum(vars...).With(low, -1), 0),
		)
	}
	model.Minimize(Sum(high).Minus(Sum(low)))
	model.BoundObjective(0)
	return model
}

// randomModel mixes booleans and one small integer under random linear constraints
func randomModel(random *rand.Rand) *Model {
	model := NewModel()
	vars := []Var{
		model.NewBool("a"), model.NewBool("b"), model.NewBool("c"), model.NewBool("d"),
		model.NewInt("x", -1, 2),
	}
	randomExpr := func() LinearExpr {
		expr := LinearExpr{Constant: random.Int64N(3) - 1}
		for _, v := range vars {
			if random.IntN(2) == 0 {
				expr = expr.With(v, random.Int64N(5)-2)
			}
		}
		return expr
	}

	for i := range 1 + random.IntN(4) {
		name := fmt.Sprintf("c%d", i)
		rhs := random.Int64N(5) - 1
		switch random.IntN(4) {
		case 0:
			model.Add(Leq(name, randomExpr(), rhs))
		case 1:
			model.Add(Geq(name, randomExpr(), rhs))
		case 2:
			model.Add(Eq(name, randomExpr(), rhs))
		default:
			model.Add(Implies(name, vars[random.IntN(4)], vars[random.IntN(4)]))
		}
	}
	model.Minimize(randomExpr())
	return model
}

func bruteForce(model *Model) (feasible bool, optimum int64) {
	optimum = math.MaxInt64
	values := make(Values, model.NumVars())
	var search func(i int)
	search = func(i int) {
		if i == len(values) {
			if len(model.Violations(values)) == 0 {
				feasible = true
				optimum = min(optimum, model.Objective.Eval(values))
			}
			return
		}
		low, high := model.Domain(Var(i))
		for value := low; value <= high; value++ {
			values[i] = value
			search(i + 1)
		}
	}
	search(0)
	return feasible, optimum
}
