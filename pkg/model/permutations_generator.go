package model

import "math"

// Attributes' order in an assignment permutation
const (
	classAttribute = iota
	subjectAttribute
	teacherAttribute
	weekdayAttribute
	slotAttribute
)

type permutationGenerator struct {
	domains []uint64
}

// newPermutationGenerator returns a generator over the positions [0, domains[i]) of every attribute.
//
// All the constraints must take into account that if the value of permutation[i] (for all feasible i's)
// is math.MaxUint64 then the permutation is not ready to be evaluated if this evaluation involves
// permutation[i]
//
// Example:
//
//	generator := newPermutationGenerator(classes, subjects, teachers, weekdays, slots)
//
//	permutations := generator.ConstrainedPermutations([]func(permutation []uint64) bool{
//		func(permutation []uint64) bool {
//			// Verify "permutation[1] == math.MaxUint64", since the predicate "permutation[1] == 1" relies in this index
//			return permutation[1] == math.MaxUint64 || permutation[1] == 1
//		},
//	})
func newPermutationGenerator(domains ...uint64) permutationGenerator {
	return permutationGenerator{domains: domains}
}

// ConstrainedPermutations returns, in lexicographic order, every permutation satisfying all constraints
func (generator permutationGenerator) ConstrainedPermutations(constraints []func(permutation []uint64) bool) [][]uint64 {
	permutation := make([]uint64, len(generator.domains))
	for i := range permutation {
		permutation[i] = math.MaxUint64
	}

	permutations := make([][]uint64, 0)
	generator.constrainedPermutations(constraints, 0, permutation, &permutations)
	return permutations
}

func (generator permutationGenerator) constrainedPermutations(
	constraints []func(permutation []uint64) bool,
	currentDomain int,
	permutation []uint64,
	permutations *[][]uint64) {

	if currentDomain >= len(generator.domains) {
		permutationCopy := make([]uint64, len(permutation))
		copy(permutationCopy, permutation)
		*permutations = append(*permutations, permutationCopy)
		return
	}

	for i := uint64(0); i < generator.domains[currentDomain]; i++ {
		permutation[currentDomain] = i
		constraintViolated := false
		for _, constraint := range constraints {
			if !constraint(permutation) {
				constraintViolated = true
				break
			}
		}

		if constraintViolated {
			continue
		}

		generator.constrainedPermutations(constraints, currentDomain+1, permutation, permutations)
	}

	permutation[currentDomain] = math.MaxUint64
}
