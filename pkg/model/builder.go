package model

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/limaJavier/schooltimetable/pkg/cp"
)

type BuildOptions struct {
	// Weight of every penalty contributor in the objective, by name. Empty means balance alone.
	Penalties map[string]uint64
}

// Problem is a constraint model of one snapshot together with what is needed to decode its solutions
type Problem struct {
	Model       *cp.Model
	Snapshot    Snapshot
	Assignments int
	Bindings    int
	catalog     catalog
	indexer     *indexer
}

// catalog holds the snapshot entities sorted by id; model attributes are positions in these slices
type catalog struct {
	calendar Calendar
	classes  []SchoolClass
	subjects []Subject
	teachers []TeacherProfile
	weekdays []uint64
	// Every lesson slot of every shift, sorted
	slots []uint64
}

func newCatalog(snapshot Snapshot) catalog {
	sortedById := func(a, b uint64) int { return cmp.Compare(a, b) }

	classes := slices.Clone(snapshot.Classes)
	slices.SortFunc(classes, func(a, b SchoolClass) int { return sortedById(a.Id, b.Id) })
	subjects := slices.Clone(snapshot.Subjects)
	slices.SortFunc(subjects, func(a, b Subject) int { return sortedById(a.Id, b.Id) })
	teachers := slices.Clone(snapshot.Teachers)
	slices.SortFunc(teachers, func(a, b TeacherProfile) int { return sortedById(a.Id, b.Id) })

	slots := lo.Uniq(lo.Flatten(lo.Values(snapshot.Calendar.Shifts)))
	slices.Sort(slots)

	return catalog{
		calendar: snapshot.Calendar,
		classes:  classes,
		subjects: subjects,
		teachers: teachers,
		weekdays: snapshot.Calendar.Weekdays,
		slots:    slots,
	}
}

func (catalog catalog) attributes(key assignmentKey) (SchoolClass, Subject, TeacherProfile) {
	return catalog.classes[key[classAttribute]], catalog.subjects[key[subjectAttribute]], catalog.teachers[key[teacherAttribute]]
}

// shiftOrder returns the positions in catalog.slots of the class's shift slots, in teaching order
func (catalog catalog) shiftOrder(class uint64) []uint64 {
	return lo.Map(catalog.calendar.Slots(catalog.classes[class].Shift), func(lesson uint64, _ int) uint64 {
		return uint64(slices.Index(catalog.slots, lesson))
	})
}

// Build turns a snapshot into a constraint model: teacher bindings, assignment indicators, the hard rules
// and the objective made of the selected penalty contributors. The same snapshot and options always
// yield the same model.
func Build(snapshot Snapshot, options BuildOptions) (*Problem, error) {
	if err := snapshot.Calendar.Validate(); err != nil {
		return nil, err
	}
	weights := options.Penalties
	if len(weights) == 0 {
		weights = map[string]uint64{BalancePenalty: 1}
	}
	for name := range weights {
		if _, ok := penalties[name]; !ok {
			return nil, fmt.Errorf("unknown penalty \"%v\", available penalties are %v", name, Penalties())
		}
	}

	catalog := newCatalog(snapshot)
	requirements := snapshot.EffectiveRequirements()
	evaluator := newPredicateEvaluator(catalog, requirements)

	//** Enumerate the variable universe
	generator := newPermutationGenerator(
		uint64(len(catalog.classes)),
		uint64(len(catalog.subjects)),
		uint64(len(catalog.teachers)),
		uint64(len(catalog.weekdays)),
		uint64(len(catalog.slots)),
	)
	permutations := generator.ConstrainedPermutations([]func(permutation []uint64) bool{
		// Demand(c, s) > 0
		func(permutation []uint64) bool {
			class, subject := permutation[classAttribute], permutation[subjectAttribute]

			return class == math.MaxUint64 ||
				subject == math.MaxUint64 ||

				// Actual predicate
				evaluator.Demand(class, subject) > 0
		},
		// Qualified(t, s) = 1
		func(permutation []uint64) bool {
			subject, teacher := permutation[subjectAttribute], permutation[teacherAttribute]

			return subject == math.MaxUint64 ||
				teacher == math.MaxUint64 ||

				// Actual predicate
				evaluator.Qualified(teacher, subject)
		},
		// InShift(c, l) = 1
		func(permutation []uint64) bool {
			class, slot := permutation[classAttribute], permutation[slotAttribute]

			return class == math.MaxUint64 ||
				slot == math.MaxUint64 ||

				// Actual predicate
				evaluator.InShift(class, slot)
		},
	})

	model := cp.NewModel()
	state := constraintState{
		catalog:   catalog,
		evaluator: evaluator,
		indexer:   newIndexer(model, catalog, permutations),
		demanded:  demandedPairs(catalog, evaluator),
	}

	//** Hard constraints
	model.Add(buildConstraints(state, []func(state constraintState) []cp.Constraint{
		bindingConstraints,
		hoursConstraints,
		dailyConstraints,
		classSlotConstraints,
		teacherSlotConstraints,
		teacherCapacityConstraints,
		prefixConstraints,
	})...)

	//** Objective
	objective := cp.LinearExpr{}
	for _, name := range sortedNames(weights) {
		if weights[name] == 0 {
			continue
		}
		objective = objective.Plus(penalties[name](state, model).Scale(int64(weights[name])))
	}
	model.Minimize(objective)
	model.BoundObjective(0) // Every contributor is non-negative

	return &Problem{
		Model:       model,
		Snapshot:    snapshot,
		Assignments: len(state.indexer.keys),
		Bindings:    len(state.indexer.bindingKeys),
		catalog:     catalog,
		indexer:     state.indexer,
	}, nil
}

// buildConstraints runs every constraint family on its own goroutine and concatenates their results in
// declaration order
func buildConstraints(state constraintState, families []func(state constraintState) []cp.Constraint) []cp.Constraint {
	results := make([][]cp.Constraint, len(families))

	var wg sync.WaitGroup
	wg.Add(len(families))
	for i, family := range families {
		go func() {
			defer wg.Done()
			results[i] = family(state)
		}()
	}
	wg.Wait()

	return lo.Flatten(results)
}

// demandedPairs lists the (class, subject) positions with nonzero demand, in catalog order
func demandedPairs(catalog catalog, evaluator predicateEvaluator) [][2]uint64 {
	pairs := make([][2]uint64, 0)
	for class := range catalog.classes {
		for subject := range catalog.subjects {
			if evaluator.Demand(uint64(class), uint64(subject)) > 0 {
				pairs = append(pairs, [2]uint64{uint64(class), uint64(subject)})
			}
		}
	}
	return pairs
}

func sortedNames[V any](values map[string]V) []string {
	names := lo.Keys(values)
	slices.Sort(names)
	return names
}
