package model

import (
	"fmt"

	"github.com/limaJavier/schooltimetable/pkg/cp"
)

const (
	BalancePenalty          = "balance"
	HardAdjacentPenalty     = "hard-adjacent"
	EasyWeekendEdgesPenalty = "easy-weekend-edges"
	LastSlotPenalty         = "last-slot"
	EmptyDaysPenalty        = "empty-days"
)

// Days per week a class may start without a first lesson before empty-days charges for it
const allowedEmptyDays = 2

// penalty adds its auxiliary variables and constraints to the model and returns its non-negative
// contribution to the objective
type penalty func(state constraintState, model *cp.Model) cp.LinearExpr

var penalties = map[string]penalty{
	BalancePenalty:          balancePenalty,
	HardAdjacentPenalty:     hardAdjacentPenalty,
	EasyWeekendEdgesPenalty: easyWeekendEdgesPenalty,
	LastSlotPenalty:         lastSlotPenalty,
	EmptyDaysPenalty:        emptyDaysPenalty,
}

// Penalties lists the penalty contributors BuildOptions may select
func Penalties() []string {
	return sortedNames(penalties)
}

// scheduledClasses returns the positions of the classes with at least one assignment
func scheduledClasses(state constraintState) []uint64 {
	order, _ := group(state.indexer, func(key assignmentKey) uint64 { return key[classAttribute] })
	return order
}

// Per class, Lmax - Lmin over the daily lesson totals
func balancePenalty(state constraintState, model *cp.Model) cp.LinearExpr {
	days := occupiedDays(state)

	objective := cp.LinearExpr{}
	for _, class := range scheduledClasses(state) {
		name := state.className(class)
		width := int64(len(state.catalog.shiftOrder(class)))
		high := model.NewInt(fmt.Sprintf("Lmax[%v]", name), 0, width)
		low := model.NewInt(fmt.Sprintf("Lmin[%v]", name), 0, width)

		for weekday := range state.catalog.weekdays {
			total := cp.Sum(days[[2]uint64{class, uint64(weekday)}]...)
			model.Add(
				cp.Leq(fmt.Sprintf("Lmax[%v,%v]", name, state.catalog.weekdays[weekday]), total.With(high, -1), 0),
				cp.Geq(fmt.Sprintf("Lmin[%v,%v]", name, state.catalog.weekdays[weekday]), total.With(low, -1), 0),
			)
		}
		spread := cp.Sum(high).Minus(cp.Sum(low))
		model.Add(cp.Geq(fmt.Sprintf("Lmax>=Lmin[%v]", name), spread, 0))
		objective = objective.Plus(spread)
	}
	return objective
}

// One point for every pair of hard subjects in consecutive slots of a class day
func hardAdjacentPenalty(state constraintState, model *cp.Model) cp.LinearExpr {
	_, hard := groupWhere(state.indexer, func(key assignmentKey) bool {
		return state.catalog.subjects[key[subjectAttribute]].Difficulty == Hard
	}, classTimeslot)

	objective := cp.LinearExpr{}
	for _, class := range scheduledClasses(state) {
		shiftOrder := state.catalog.shiftOrder(class)
		for weekday := range state.catalog.weekdays {
			for k := 1; k < len(shiftOrder); k++ {
				previous := hard[[3]uint64{class, uint64(weekday), shiftOrder[k-1]}]
				current := hard[[3]uint64{class, uint64(weekday), shiftOrder[k]}]
				if len(previous) == 0 || len(current) == 0 {
					continue
				}
				name := fmt.Sprintf("hard-adjacent[%v,%v,%v]", state.className(class), state.catalog.weekdays[weekday], state.catalog.slots[shiftOrder[k]])
				adjacent := model.NewBool(name)
				// adjacent >= previous + current - 1
				model.Add(cp.Geq(name, cp.Sum(adjacent).Minus(cp.Sum(previous...)).Minus(cp.Sum(current...)), -1))
				objective = objective.Plus(cp.Sum(adjacent))
			}
		}
	}
	return objective
}

// One point for every class without an easy subject on the first or on the last weekday
func easyWeekendEdgesPenalty(state constraintState, model *cp.Model) cp.LinearExpr {
	_, easy := groupWhere(state.indexer, func(key assignmentKey) bool {
		return state.catalog.subjects[key[subjectAttribute]].Difficulty == Easy
	}, classDay)

	edges := []uint64{0}
	if last := uint64(len(state.catalog.weekdays) - 1); last > 0 {
		edges = append(edges, last)
	}

	objective := cp.LinearExpr{}
	for _, class := range scheduledClasses(state) {
		for _, weekday := range edges {
			vars, ok := easy[[2]uint64{class, weekday}]
			if !ok {
				continue // The class has no easy subject at all
			}
			name := fmt.Sprintf("easy-edge[%v,%v]", state.className(class), state.catalog.weekdays[weekday])
			missing := model.NewBool(name)
			// missing >= 1 - easy lessons of the day
			model.Add(cp.Geq(name, cp.Sum(vars...).With(missing, 1), 1))
			objective = objective.Plus(cp.Sum(missing))
		}
	}
	return objective
}

// One point for every lesson in the last slot of its shift
func lastSlotPenalty(state constraintState, _ *cp.Model) cp.LinearExpr {
	objective := cp.LinearExpr{}
	for _, class := range scheduledClasses(state) {
		shiftOrder := state.catalog.shiftOrder(class)
		for weekday := range state.catalog.weekdays {
			if occupied, ok := state.indexer.Occupied([3]uint64{class, uint64(weekday), shiftOrder[len(shiftOrder)-1]}); ok {
				objective = objective.Plus(cp.Sum(occupied))
			}
		}
	}
	return objective
}

// One point for every day beyond allowedEmptyDays on which a class has no first lesson
func emptyDaysPenalty(state constraintState, model *cp.Model) cp.LinearExpr {
	weekdays := int64(len(state.catalog.weekdays))
	if weekdays <= allowedEmptyDays {
		return cp.LinearExpr{}
	}

	objective := cp.LinearExpr{}
	for _, class := range scheduledClasses(state) {
		first := make([]cp.Var, 0, weekdays)
		for weekday := range state.catalog.weekdays {
			if occupied, ok := state.indexer.Occupied([3]uint64{class, uint64(weekday), state.catalog.shiftOrder(class)[0]}); ok {
				first = append(first, occupied)
			}
		}
		name := fmt.Sprintf("empty-days[%v]", state.className(class))
		excess := model.NewInt(name, 0, weekdays)
		// excess >= (weekdays - first lessons) - allowedEmptyDays
		model.Add(cp.Geq(name, cp.Sum(first...).With(excess, 1), weekdays-allowedEmptyDays))
		objective = objective.Plus(cp.Sum(excess))
	}
	return objective
}
