package model

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/limaJavier/schooltimetable/pkg/cp"
)

// assignmentKey holds the (class, subject, teacher, weekday, slot) positions of an assignment indicator
type assignmentKey [5]uint64

func (key assignmentKey) binding() bindingKey {
	return bindingKey{key[classAttribute], key[subjectAttribute], key[teacherAttribute]}
}

// bindingKey holds the (class, subject, teacher) positions of a teacher binding indicator
type bindingKey [3]uint64

// indexer maps assignment and binding attributes to model variables and back
type indexer struct {
	keys     []assignmentKey
	vars     []cp.Var
	index    map[assignmentKey]int
	bindings map[bindingKey]cp.Var
	// Binding keys in creation order
	bindingKeys []bindingKey
	// Per (class, weekday, slot): the class has a lesson then
	occupied map[[3]uint64]cp.Var
	// Per (class, subject, weekday): the subject is taught to the class that day
	taught map[[3]uint64]cp.Var
}

// newIndexer creates a binding for every distinct (class, subject, teacher) of the permutations, then an
// assignment per permutation, then the occupancy and daily indicators the assignments roll up into
func newIndexer(model *cp.Model, catalog catalog, permutations [][]uint64) *indexer {
	indexer := &indexer{
		keys:     make([]assignmentKey, len(permutations)),
		vars:     make([]cp.Var, len(permutations)),
		index:    make(map[assignmentKey]int, len(permutations)),
		bindings: make(map[bindingKey]cp.Var),
		occupied: make(map[[3]uint64]cp.Var),
		taught:   make(map[[3]uint64]cp.Var),
	}

	for i, permutation := range permutations {
		key := assignmentKey(permutation)
		indexer.keys[i] = key
		indexer.index[key] = i

		binding := key.binding()
		if _, ok := indexer.bindings[binding]; !ok {
			class, subject, teacher := catalog.attributes(key)
			indexer.bindings[binding] = model.NewBool(fmt.Sprintf("bind[%v,%v,%v]", class.Name(), subject.Name, teacher.Name))
			indexer.bindingKeys = append(indexer.bindingKeys, binding)
		}
	}

	for i, key := range indexer.keys {
		class, subject, teacher := catalog.attributes(key)
		weekday, lesson := catalog.weekdays[key[weekdayAttribute]], catalog.slots[key[slotAttribute]]
		indexer.vars[i] = model.NewBool(fmt.Sprintf("y[%v,%v,%v,%v,%v]", class.Name(), subject.Name, teacher.Name, weekday, lesson))
	}

	for _, key := range indexer.keys {
		class, subject, _ := catalog.attributes(key)
		weekday, lesson := catalog.weekdays[key[weekdayAttribute]], catalog.slots[key[slotAttribute]]
		if slot := classTimeslot(key); !lo.HasKey(indexer.occupied, slot) {
			indexer.occupied[slot] = model.NewBool(fmt.Sprintf("occupied[%v,%v,%v]", class.Name(), weekday, lesson))
		}
		if day := classSubjectDay(key); !lo.HasKey(indexer.taught, day) {
			indexer.taught[day] = model.NewBool(fmt.Sprintf("taught[%v,%v,%v]", class.Name(), subject.Name, weekday))
		}
	}

	return indexer
}

func (indexer *indexer) Index(key assignmentKey) (cp.Var, bool) {
	i, ok := indexer.index[key]
	if !ok {
		return 0, false
	}
	return indexer.vars[i], true
}

func (indexer *indexer) Binding(key bindingKey) cp.Var {
	return indexer.bindings[key]
}

// Occupied returns the indicator of a (class, weekday, slot) which has at least one assignment
func (indexer *indexer) Occupied(slot [3]uint64) (cp.Var, bool) {
	v, ok := indexer.occupied[slot]
	return v, ok
}

// Taught returns the indicator of a (class, subject, weekday) which has at least one assignment
func (indexer *indexer) Taught(day [3]uint64) cp.Var {
	return indexer.taught[day]
}

// group partitions the assignment variables by key, returning the keys in order of first appearance
func group[K comparable](indexer *indexer, key func(assignmentKey) K) ([]K, map[K][]cp.Var) {
	return groupWhere(indexer, func(assignmentKey) bool { return true }, key)
}

// groupWhere is group restricted to the assignments accepted by keep
func groupWhere[K comparable](indexer *indexer, keep func(assignmentKey) bool, key func(assignmentKey) K) ([]K, map[K][]cp.Var) {
	order := make([]K, 0)
	groups := make(map[K][]cp.Var)
	for i, assignment := range indexer.keys {
		if !keep(assignment) {
			continue
		}
		k := key(assignment)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], indexer.vars[i])
	}
	return order, groups
}
