package model

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

type SchoolClass struct {
	Id        uint64
	Grade     uint64
	Letter    string
	Shift     Shift
	StudyPlan *uint64
}

func (class SchoolClass) Name() string {
	return fmt.Sprintf("%d%s", class.Grade, class.Letter)
}

type Subject struct {
	Id         uint64
	Name       string
	Difficulty Difficulty
	Area       string
}

type StudyPlanEntry struct {
	Subject      uint64
	HoursPerWeek uint64
}

type StudyPlan struct {
	Id      uint64
	Name    string
	Entries []StudyPlanEntry
}

// HoursRequirement is the number of weekly lessons a class receives of a subject
type HoursRequirement struct {
	Class   uint64
	Subject uint64
	Hours   uint64
}

type TeacherProfile struct {
	Id              uint64
	Name            string
	Subjects        []uint64
	MaxHoursPerWeek *uint64
}

func (teacher TeacherProfile) Capacity(calendar Calendar) uint64 {
	if teacher.MaxHoursPerWeek != nil {
		return *teacher.MaxHoursPerWeek
	}
	return calendar.TeacherCapacity()
}

func (teacher TeacherProfile) Qualified(subject uint64) bool {
	return slices.Contains(teacher.Subjects, subject)
}

// Room is advisory: it is attached to lessons after solving and never constrains the schedule
type Room struct {
	Id   uint64
	Name string
	// Subjects the room is equipped for, empty for a general purpose room
	Subjects []uint64
}

func (room Room) Serves(subject uint64) bool {
	return len(room.Subjects) == 0 || slices.Contains(room.Subjects, subject)
}

// Snapshot is everything one synthesis run reads. It is never mutated during the run.
type Snapshot struct {
	Calendar     Calendar
	Classes      []SchoolClass
	Subjects     []Subject
	Teachers     []TeacherProfile
	Rooms        []Room
	StudyPlans   []StudyPlan
	Requirements []HoursRequirement
}

// EffectiveRequirements returns the requirements sorted by class and subject. A class without any
// explicit requirement inherits the entries of its study plan.
func (snapshot Snapshot) EffectiveRequirements() []HoursRequirement {
	explicit := lo.GroupBy(snapshot.Requirements, func(requirement HoursRequirement) uint64 { return requirement.Class })
	plans := lo.SliceToMap(snapshot.StudyPlans, func(plan StudyPlan) (uint64, StudyPlan) { return plan.Id, plan })

	requirements := slices.Clone(snapshot.Requirements)
	for _, class := range snapshot.Classes {
		if _, ok := explicit[class.Id]; ok || class.StudyPlan == nil {
			continue
		}
		for _, entry := range plans[*class.StudyPlan].Entries {
			requirements = append(requirements, HoursRequirement{Class: class.Id, Subject: entry.Subject, Hours: entry.HoursPerWeek})
		}
	}

	slices.SortStableFunc(requirements, func(a, b HoursRequirement) int {
		return cmp.Or(cmp.Compare(a.Class, b.Class), cmp.Compare(a.Subject, b.Subject))
	})
	return requirements
}

// Lesson is one materialized occurrence. It is unique per (class, weekday, lesson).
type Lesson struct {
	Class   uint64
	Subject uint64
	Teacher uint64
	Weekday uint64
	Lesson  uint64
	Room    *uint64
}

func (lesson Lesson) TimeSlot() TimeSlot {
	return TimeSlot{Weekday: lesson.Weekday, Lesson: lesson.Lesson}
}

type Timetable []Lesson

// SortLessons orders lessons by weekday, lesson and class
func SortLessons(lessons []Lesson) {
	slices.SortFunc(lessons, func(a, b Lesson) int {
		return cmp.Or(
			cmp.Compare(a.Weekday, b.Weekday),
			cmp.Compare(a.Lesson, b.Lesson),
			cmp.Compare(a.Class, b.Class),
		)
	})
}

func SnapshotFromJson(file string) (Snapshot, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Snapshot{}, err
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(inputJson)
}

// DecodeSnapshot reads a snapshot from its generic JSON form. A missing calendar means DefaultCalendar.
func DecodeSnapshot(input map[string]any) (Snapshot, error) {
	var snapshot Snapshot
	if err := mapstructure.Decode(input, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("cannot decode snapshot: %v", err)
	}
	if len(snapshot.Calendar.Weekdays) == 0 && len(snapshot.Calendar.Shifts) == 0 {
		capacity := snapshot.Calendar.DefaultTeacherCapacity
		snapshot.Calendar = DefaultCalendar()
		if capacity > 0 {
			snapshot.Calendar.DefaultTeacherCapacity = capacity
		}
	}
	return snapshot, nil
}
