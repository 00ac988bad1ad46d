package model

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/limaJavier/schooltimetable/pkg/cp"
)

type constraintState struct {
	catalog   catalog
	evaluator predicateEvaluator
	indexer   *indexer
	// (class, subject) positions with nonzero demand
	demanded [][2]uint64
}

func (state constraintState) className(class uint64) string {
	return state.catalog.classes[class].Name()
}

func (state constraintState) subjectName(subject uint64) string {
	return state.catalog.subjects[subject].Name
}

func (state constraintState) teacherName(teacher uint64) string {
	return state.catalog.teachers[teacher].Name
}

func classSubject(key assignmentKey) [2]uint64 {
	return [2]uint64{key[classAttribute], key[subjectAttribute]}
}

func classDay(key assignmentKey) [2]uint64 {
	return [2]uint64{key[classAttribute], key[weekdayAttribute]}
}

func classTimeslot(key assignmentKey) [3]uint64 {
	return [3]uint64{key[classAttribute], key[weekdayAttribute], key[slotAttribute]}
}

func classSubjectDay(key assignmentKey) [3]uint64 {
	return [3]uint64{key[classAttribute], key[subjectAttribute], key[weekdayAttribute]}
}

// occupiedDays groups the occupancy indicators of every class day, slots in catalog order
func occupiedDays(state constraintState) map[[2]uint64][]cp.Var {
	order, _ := group(state.indexer, classTimeslot)
	days := make(map[[2]uint64][]cp.Var)
	for _, slot := range order {
		day := [2]uint64{slot[0], slot[1]}
		occupied, _ := state.indexer.Occupied(slot)
		days[day] = append(days[day], occupied)
	}
	return days
}

// Exactly one teacher is bound to every demanded (class, subject), and only the bound teacher teaches it
func bindingConstraints(state constraintState) []cp.Constraint {
	bindings := make(map[[2]uint64][]cp.Var)
	for _, key := range state.indexer.bindingKeys {
		pair := [2]uint64{key[0], key[1]}
		bindings[pair] = append(bindings[pair], state.indexer.Binding(key))
	}

	constraints := make([]cp.Constraint, 0, len(state.demanded)+len(state.indexer.keys))
	for _, pair := range state.demanded {
		name := fmt.Sprintf("binding[%v,%v]", state.className(pair[0]), state.subjectName(pair[1]))
		constraints = append(constraints, cp.ExactlyOne(name, bindings[pair]...))
	}
	for i, key := range state.indexer.keys {
		constraints = append(constraints, cp.Implies("assignment->binding", state.indexer.vars[i], state.indexer.Binding(key.binding())))
	}
	return constraints
}

// Every demanded (class, subject) occurs exactly its required hours. A subject is taught at most once a
// day, so the hours are the days it is taught.
func hoursConstraints(state constraintState) []cp.Constraint {
	order, _ := group(state.indexer, classSubjectDay)
	days := make(map[[2]uint64][]cp.Var)
	for _, day := range order {
		pair := [2]uint64{day[0], day[1]}
		days[pair] = append(days[pair], state.indexer.Taught(day))
	}

	constraints := make([]cp.Constraint, 0, len(state.demanded))
	for _, pair := range state.demanded {
		name := fmt.Sprintf("hours[%v,%v]", state.className(pair[0]), state.subjectName(pair[1]))
		constraints = append(constraints, cp.Eq(name, cp.Sum(days[pair]...), int64(state.evaluator.Demand(pair[0], pair[1]))))
	}
	return constraints
}

// A subject occurs at most once a day in a class, and every day when its hours equal the weekday count
func dailyConstraints(state constraintState) []cp.Constraint {
	order, groups := group(state.indexer, classSubjectDay)
	weekdays := uint64(len(state.catalog.weekdays))

	constraints := make([]cp.Constraint, 0, len(order))
	for _, key := range order {
		class, subject, weekday := key[0], key[1], key[2]
		name := fmt.Sprintf("daily[%v,%v,%v]", state.className(class), state.subjectName(subject), state.catalog.weekdays[weekday])
		taught := state.indexer.Taught(key)
		// lessons of the day = taught, which is at most one
		constraints = append(constraints, cp.Eq(name, cp.Sum(groups[key]...).With(taught, -1), 0))
		if state.evaluator.Demand(class, subject) == weekdays {
			constraints = append(constraints, cp.Geq(name, cp.Sum(taught), 1))
		}
	}
	return constraints
}

// A class has at most one lesson per timeslot, which sets the occupancy of the slot
func classSlotConstraints(state constraintState) []cp.Constraint {
	order, groups := group(state.indexer, classTimeslot)

	constraints := make([]cp.Constraint, 0, len(order))
	for _, key := range order {
		name := fmt.Sprintf("class-slot[%v,%v,%v]", state.className(key[0]), state.catalog.weekdays[key[1]], state.catalog.slots[key[2]])
		occupied, _ := state.indexer.Occupied(key)
		constraints = append(constraints, cp.Eq(name, cp.Sum(groups[key]...).With(occupied, -1), 0))
	}
	return constraints
}

// A teacher gives at most one lesson per timeslot
func teacherSlotConstraints(state constraintState) []cp.Constraint {
	order, groups := group(state.indexer, func(key assignmentKey) [3]uint64 {
		return [3]uint64{key[teacherAttribute], key[weekdayAttribute], key[slotAttribute]}
	})

	constraints := make([]cp.Constraint, 0, len(order))
	for _, key := range order {
		if len(groups[key]) < 2 {
			continue
		}
		name := fmt.Sprintf("teacher-slot[%v,%v,%v]", state.teacherName(key[0]), state.catalog.weekdays[key[1]], state.catalog.slots[key[2]])
		constraints = append(constraints, cp.AtMostOne(name, groups[key]...))
	}
	return constraints
}

// A teacher's weekly lessons never exceed their capacity. The bound teacher gives every lesson of a
// (class, subject), so the load is the demand of the bindings they hold.
func teacherCapacityConstraints(state constraintState) []cp.Constraint {
	load := make(map[uint64]cp.LinearExpr)
	order := make([]uint64, 0)
	for _, key := range state.indexer.bindingKeys {
		teacher := key[2]
		if _, ok := load[teacher]; !ok {
			order = append(order, teacher)
		}
		load[teacher] = load[teacher].With(state.indexer.Binding(key), int64(state.evaluator.Demand(key[0], key[1])))
	}

	constraints := make([]cp.Constraint, 0, len(order))
	for _, teacher := range order {
		capacity := int64(state.catalog.teachers[teacher].Capacity(state.catalog.calendar))
		demand := lo.SumBy(load[teacher].Terms, func(term cp.Term) int64 { return term.Coef })
		if demand <= capacity {
			continue
		}
		name := fmt.Sprintf("capacity[%v]", state.teacherName(teacher))
		constraints = append(constraints, cp.Leq(name, load[teacher], capacity))
	}
	return constraints
}

// The occupied slots of a class day form a prefix of the shift: a slot is used only if the one before it is
func prefixConstraints(state constraintState) []cp.Constraint {
	order, _ := group(state.indexer, classDay)

	constraints := make([]cp.Constraint, 0)
	for _, key := range order {
		class, weekday := key[0], key[1]
		shiftOrder := state.catalog.shiftOrder(class)
		for k := 1; k < len(shiftOrder); k++ {
			current, ok := state.indexer.Occupied([3]uint64{class, weekday, shiftOrder[k]})
			if !ok {
				continue
			}
			name := fmt.Sprintf("prefix[%v,%v,%v]", state.className(class), state.catalog.weekdays[weekday], state.catalog.slots[shiftOrder[k]])
			if previous, ok := state.indexer.Occupied([3]uint64{class, weekday, shiftOrder[k-1]}); ok {
				constraints = append(constraints, cp.Implies(name, current, previous))
			} else {
				constraints = append(constraints, cp.Leq(name, cp.Sum(current), 0))
			}
		}
	}
	return constraints
}
