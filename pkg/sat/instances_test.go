package sat

import (
	"math/rand/v2"

	"github.com/samber/lo"
)

// plantedInstance builds a random 3-SAT instance which a hidden assignment satisfies, so every correct
// solver has to answer with a solution
func plantedInstance(random *rand.Rand, variables uint64, clauses int) SAT {
	hidden := make([]bool, variables+1)
	for v := range hidden {
		hidden[v] = random.IntN(2) == 0
	}

	instance := SAT{Variables: variables, Clauses: make([][]int64, 0, clauses)}
	for len(instance.Clauses) < clauses {
		clause := make([]int64, 0, 3)
		satisfied := false
		for range min(variables, 3) {
			variable := 1 + random.Int64N(int64(variables))
			literal := variable
			if random.IntN(2) == 0 {
				literal = -variable
			}
			satisfied = satisfied || (literal > 0) == hidden[variable]
			clause = append(clause, literal)
		}
		if satisfied {
			instance.Clauses = append(instance.Clauses, clause)
		}
	}
	return instance
}

// pigeonhole returns the classic unsatisfiable instance placing holes+1 pigeons into holes holes
func pigeonhole(holes int) SAT {
	pigeons := holes + 1
	variable := func(pigeon, hole int) int64 { return int64(pigeon*holes + hole + 1) }

	instance := SAT{Variables: uint64(pigeons * holes)}
	for pigeon := range pigeons {
		clause := make([]int64, 0, holes)
		for hole := range holes {
			clause = append(clause, variable(pigeon, hole))
		}
		instance.Clauses = append(instance.Clauses, clause)
	}
	for hole := range holes {
		for first := range pigeons {
			for second := first + 1; second < pigeons; second++ {
				instance.Clauses = append(instance.Clauses, []int64{-variable(first, hole), -variable(second, hole)})
			}
		}
	}
	return instance
}

// satisfies reports whether the solution never contradicts itself and satisfies every clause
func satisfies(instance SAT, solution SATSolution) bool {
	assigned := make(map[int64]bool, len(solution))
	for _, literal := range solution {
		if assigned[literal] || assigned[-literal] {
			return false
		}
		assigned[literal] = true
	}

	return lo.EveryBy(instance.Clauses, func(clause []int64) bool {
		return lo.SomeBy(clause, func(literal int64) bool { return assigned[literal] })
	})
}
