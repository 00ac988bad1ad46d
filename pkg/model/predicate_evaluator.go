package model

import "slices"

// Predicates over attribute positions of the sorted catalog
type predicateEvaluator interface {
	// Weekly hours the class requires of the subject
	Demand(class, subject uint64) uint64

	// Checks whether the teacher may teach the subject
	Qualified(teacher, subject uint64) bool

	// Checks whether the slot belongs to the class's shift
	InShift(class, slot uint64) bool
}

type matrixPredicateEvaluator struct {
	demand    [][]uint64
	qualified [][]bool
	inShift   [][]bool
}

func newPredicateEvaluator(catalog catalog, requirements []HoursRequirement) predicateEvaluator {
	evaluator := matrixPredicateEvaluator{
		demand:    make([][]uint64, len(catalog.classes)),
		qualified: make([][]bool, len(catalog.teachers)),
		inShift:   make([][]bool, len(catalog.classes)),
	}

	classPositions := positions(catalog.classes, func(class SchoolClass) uint64 { return class.Id })
	subjectPositions := positions(catalog.subjects, func(subject Subject) uint64 { return subject.Id })

	for class := range catalog.classes {
		evaluator.demand[class] = make([]uint64, len(catalog.subjects))
		evaluator.inShift[class] = make([]bool, len(catalog.slots))
		shiftSlots := catalog.calendar.Slots(catalog.classes[class].Shift)
		for slot, lesson := range catalog.slots {
			evaluator.inShift[class][slot] = slices.Contains(shiftSlots, lesson)
		}
	}
	for _, requirement := range requirements {
		class, classOk := classPositions[requirement.Class]
		subject, subjectOk := subjectPositions[requirement.Subject]
		if classOk && subjectOk {
			evaluator.demand[class][subject] = requirement.Hours
		}
	}
	for teacher := range catalog.teachers {
		evaluator.qualified[teacher] = make([]bool, len(catalog.subjects))
		for subject := range catalog.subjects {
			evaluator.qualified[teacher][subject] = catalog.teachers[teacher].Qualified(catalog.subjects[subject].Id)
		}
	}

	return &evaluator
}

func (evaluator *matrixPredicateEvaluator) Demand(class, subject uint64) uint64 {
	return evaluator.demand[class][subject]
}

func (evaluator *matrixPredicateEvaluator) Qualified(teacher, subject uint64) bool {
	return evaluator.qualified[teacher][subject]
}

func (evaluator *matrixPredicateEvaluator) InShift(class, slot uint64) bool {
	return evaluator.inShift[class][slot]
}

func positions[T any](items []T, id func(T) uint64) map[uint64]int {
	result := make(map[uint64]int, len(items))
	for i, item := range items {
		result[id(item)] = i
	}
	return result
}
