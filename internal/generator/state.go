package generator

import (
	"time"

	"github.com/google/uuid"
)

// State is the position of a run in its pipeline:
// Idle -> Validating -> {Invalid | Building} -> Solving -> {Infeasible | Timeout | Materializing} -> {Done | Failed}
type State string

const (
	Idle          State = "IDLE"
	Validating    State = "VALIDATING"
	Invalid       State = "INVALID"
	Building      State = "BUILDING"
	Solving       State = "SOLVING"
	Infeasible    State = "INFEASIBLE"
	Timeout       State = "TIMEOUT"
	Materializing State = "MATERIALIZING"
	Done          State = "DONE"
	Failed        State = "FAILED"
)

var transitions = map[State][]State{
	Idle:          {Validating, Failed},
	Validating:    {Invalid, Building, Failed},
	Building:      {Solving, Failed},
	Solving:       {Infeasible, Timeout, Materializing, Failed},
	Materializing: {Done, Failed},
}

func (state State) Terminal() bool {
	_, ok := transitions[state]
	return !ok
}

// Run is the report of one generation
type Run struct {
	Id    uuid.UUID `json:"run_id"`
	State State     `json:"state"`
	// Solver status, empty until the solver returned
	Status string `json:"status,omitempty"`
	// Model objective at the returned solution. Its balance part comes from Lmax/Lmin helpers which a
	// feasible, unproven solution may leave above the real extremes, so it bounds Spread from above.
	Objective int64 `json:"objective"`
	Bound     int64 `json:"bound"`
	// Busiest minus lightest weekday per class, summed, measured on the stored lessons
	Spread      uint64        `json:"spread"`
	Variables   uint64        `json:"variables"`
	Clauses     int           `json:"clauses"`
	Lessons     int           `json:"lessons"`
	Started     time.Time     `json:"started"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	SolveTime   time.Duration `json:"solve_ns"`
	SolverCalls int           `json:"solver_calls"`
}
