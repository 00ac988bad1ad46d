package model

import (
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// Violation is one reason a snapshot can never be scheduled
type Violation interface {
	// Operator facing description
	String() string
	// Stable machine readable name of the violation type
	Kind() string
}

type ValidationResult struct {
	Ok         bool
	Violations []Violation
}

type InvalidCalendar struct {
	Reason string
}

func (violation InvalidCalendar) Kind() string { return "invalid_calendar" }

func (violation InvalidCalendar) String() string {
	return fmt.Sprintf("invalid calendar: %v", violation.Reason)
}

// UnknownReference names a record pointing at a class, subject or study plan missing from the snapshot
type UnknownReference struct {
	Entity    string
	Id        uint64
	Reference string
	Target    uint64
}

func (violation UnknownReference) Kind() string { return "unknown_reference" }

func (violation UnknownReference) String() string {
	return fmt.Sprintf("%v %v references unknown %v %v", violation.Entity, violation.Id, violation.Reference, violation.Target)
}

type DuplicateRequirement struct {
	Class, Subject uint64
}

func (violation DuplicateRequirement) Kind() string { return "duplicate_requirement" }

func (violation DuplicateRequirement) String() string {
	return fmt.Sprintf("class %v has more than one hours requirement for subject %v", violation.Class, violation.Subject)
}

// HoursExceedShift is raised when a (class, subject) pair asks for more hours than the class's shift offers in a week
type HoursExceedShift struct {
	Class, Subject         uint64
	ClassName, SubjectName string
	Requested, Available   uint64
}

func (violation HoursExceedShift) Kind() string { return "hours_exceed_shift" }

func (violation HoursExceedShift) String() string {
	return fmt.Sprintf("%v requested for class %v: %v hours, but only %v weekly slots are available",
		violation.SubjectName, violation.ClassName, violation.Requested, violation.Available)
}

// DailySubjectLimit is raised when a subject needs more hours than there are weekdays, since a class
// takes a subject at most once a day
type DailySubjectLimit struct {
	Class, Subject         uint64
	ClassName, SubjectName string
	Hours, Weekdays        uint64
}

func (violation DailySubjectLimit) Kind() string { return "daily_subject_limit" }

func (violation DailySubjectLimit) String() string {
	return fmt.Sprintf("%v requested for class %v: %v hours, but a subject is taught at most once on each of the %v weekdays",
		violation.SubjectName, violation.ClassName, violation.Hours, violation.Weekdays)
}

// ClassOverloaded is raised when all the hours of a class do not fit in its shift
type ClassOverloaded struct {
	Class                uint64
	ClassName            string
	Requested, Available uint64
}

func (violation ClassOverloaded) Kind() string { return "class_overloaded" }

func (violation ClassOverloaded) String() string {
	return fmt.Sprintf("class %v requires %v weekly hours, but only %v weekly slots are available",
		violation.ClassName, violation.Requested, violation.Available)
}

type NoQualifiedTeacher struct {
	Subject     uint64
	SubjectName string
	Demand      uint64
}

func (violation NoQualifiedTeacher) Kind() string { return "no_qualified_teacher" }

func (violation NoQualifiedTeacher) String() string {
	return fmt.Sprintf("no teacher is qualified for %v (%v weekly hours demanded)", violation.SubjectName, violation.Demand)
}

// TeacherCapacityShortfall is raised when the qualified teachers of a subject cannot cover its demand
type TeacherCapacityShortfall struct {
	Subject          uint64
	SubjectName      string
	Demand, Capacity uint64
	Teachers         int
}

func (violation TeacherCapacityShortfall) Kind() string { return "teacher_capacity_shortfall" }

func (violation TeacherCapacityShortfall) String() string {
	return fmt.Sprintf("insufficient teacher capacity for %v: %v hours demanded, %v hours available from %v teacher(s)",
		violation.SubjectName, violation.Demand, violation.Capacity, violation.Teachers)
}

// Validate runs every static check and reports all violations together. Violations are ordered by check,
// then by class and subject.
func Validate(snapshot Snapshot) ValidationResult {
	violations := make([]Violation, 0)
	if err := snapshot.Calendar.Validate(); err != nil {
		// Slot arithmetic below is meaningless without a calendar
		return ValidationResult{Violations: append(violations, InvalidCalendar{Reason: err.Error()})}
	}

	classes := lo.SliceToMap(snapshot.Classes, func(class SchoolClass) (uint64, SchoolClass) { return class.Id, class })
	subjects := lo.SliceToMap(snapshot.Subjects, func(subject Subject) (uint64, Subject) { return subject.Id, subject })
	plans := lo.SliceToMap(snapshot.StudyPlans, func(plan StudyPlan) (uint64, bool) { return plan.Id, true })

	//** Structural checks
	for _, class := range snapshot.Classes {
		if _, ok := snapshot.Calendar.Shifts[class.Shift]; !ok {
			violations = append(violations, InvalidCalendar{Reason: fmt.Sprintf("class %v uses unknown shift %q", class.Name(), class.Shift)})
		}
		if class.StudyPlan != nil && !plans[*class.StudyPlan] {
			violations = append(violations, UnknownReference{Entity: "class", Id: class.Id, Reference: "study plan", Target: *class.StudyPlan})
		}
	}
	for _, plan := range snapshot.StudyPlans {
		for _, entry := range plan.Entries {
			if _, ok := subjects[entry.Subject]; !ok {
				violations = append(violations, UnknownReference{Entity: "study plan", Id: plan.Id, Reference: "subject", Target: entry.Subject})
			}
		}
	}
	for _, teacher := range snapshot.Teachers {
		for _, subject := range teacher.Subjects {
			if _, ok := subjects[subject]; !ok {
				violations = append(violations, UnknownReference{Entity: "teacher", Id: teacher.Id, Reference: "subject", Target: subject})
			}
		}
	}

	requirements := snapshot.EffectiveRequirements()
	seen := make(map[[2]uint64]bool, len(requirements))
	known := make([]HoursRequirement, 0, len(requirements))
	for _, requirement := range requirements {
		_, classOk := classes[requirement.Class]
		_, subjectOk := subjects[requirement.Subject]
		key := [2]uint64{requirement.Class, requirement.Subject}
		switch {
		case !classOk:
			violations = append(violations, UnknownReference{Entity: "hours requirement", Id: requirement.Subject, Reference: "class", Target: requirement.Class})
		case !subjectOk:
			violations = append(violations, UnknownReference{Entity: "hours requirement", Id: requirement.Class, Reference: "subject", Target: requirement.Subject})
		case seen[key]:
			violations = append(violations, DuplicateRequirement{Class: requirement.Class, Subject: requirement.Subject})
		default:
			known = append(known, requirement)
		}
		seen[key] = true
	}

	//** Per (class, subject) checks
	weekdays := uint64(len(snapshot.Calendar.Weekdays))
	for _, requirement := range known {
		class, subject := classes[requirement.Class], subjects[requirement.Subject]
		available := snapshot.Calendar.WeeklySlots(class.Shift)
		if requirement.Hours > available {
			violations = append(violations, HoursExceedShift{
				Class: class.Id, Subject: subject.Id, ClassName: class.Name(), SubjectName: subject.Name,
				Requested: requirement.Hours, Available: available,
			})
		}
		if requirement.Hours > weekdays {
			violations = append(violations, DailySubjectLimit{
				Class: class.Id, Subject: subject.Id, ClassName: class.Name(), SubjectName: subject.Name,
				Hours: requirement.Hours, Weekdays: weekdays,
			})
		}
	}

	//** Per class checks
	hoursPerClass := make(map[uint64]uint64)
	for _, requirement := range known {
		hoursPerClass[requirement.Class] += requirement.Hours
	}
	for _, classId := range sortedKeys(hoursPerClass) {
		class := classes[classId]
		available := snapshot.Calendar.WeeklySlots(class.Shift)
		if hoursPerClass[classId] > available {
			violations = append(violations, ClassOverloaded{Class: classId, ClassName: class.Name(), Requested: hoursPerClass[classId], Available: available})
		}
	}

	//** Per subject checks
	demand := make(map[uint64]uint64)
	for _, requirement := range known {
		demand[requirement.Subject] += requirement.Hours
	}
	for _, subjectId := range sortedKeys(demand) {
		if demand[subjectId] == 0 {
			continue
		}
		subject := subjects[subjectId]
		qualified := lo.Filter(snapshot.Teachers, func(teacher TeacherProfile, _ int) bool { return teacher.Qualified(subjectId) })
		if len(qualified) == 0 {
			violations = append(violations, NoQualifiedTeacher{Subject: subjectId, SubjectName: subject.Name, Demand: demand[subjectId]})
			continue
		}
		capacity := lo.SumBy(qualified, func(teacher TeacherProfile) uint64 { return teacher.Capacity(snapshot.Calendar) })
		if capacity < demand[subjectId] {
			violations = append(violations, TeacherCapacityShortfall{
				Subject: subjectId, SubjectName: subject.Name,
				Demand: demand[subjectId], Capacity: capacity, Teachers: len(qualified),
			})
		}
	}

	return ValidationResult{Ok: len(violations) == 0, Violations: violations}
}

func sortedKeys[V any](values map[uint64]V) []uint64 {
	keys := lo.Keys(values)
	slices.Sort(keys)
	return keys
}
