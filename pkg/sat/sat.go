package sat

import (
	"fmt"
	"strings"
)

// SATSolution lists one signed literal per variable: positive when the variable is true
type SATSolution []int64

type SAT struct {
	Variables uint64
	Clauses   [][]int64
}

func (s SAT) ToDIMACS() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "p cnf %d %d\n", s.Variables, len(s.Clauses))
	for _, clause := range s.Clauses {
		for _, literal := range clause {
			fmt.Fprintf(&builder, "%d ", literal)
		}
		builder.WriteString("0\n")
	}
	return builder.String()
}

// With returns a copy of the instance extended with the given clauses. The receiver's clause slice is
// never appended to, so several extensions of one base instance can be solved concurrently.
func (s SAT) With(clauses ...[]int64) SAT {
	extended := make([][]int64, 0, len(s.Clauses)+len(clauses))
	extended = append(extended, s.Clauses...)
	extended = append(extended, clauses...)
	return SAT{Variables: s.Variables, Clauses: extended}
}

// Assignment turns a solution into a lookup table indexed by variable (index 0 is unused)
func (solution SATSolution) Assignment(variables uint64) []bool {
	assignment := make([]bool, variables+1)
	for _, literal := range solution {
		if literal > 0 && uint64(literal) <= variables {
			assignment[literal] = true
		}
	}
	return assignment
}
