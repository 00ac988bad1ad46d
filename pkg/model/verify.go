package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// InvariantError lists every schedule invariant a timetable breaks
type InvariantError struct {
	Violations []string
}

func (err *InvariantError) Error() string {
	return fmt.Sprintf("timetable breaks %d invariant(s): %v", len(err.Violations), strings.Join(err.Violations, "; "))
}

// Verify re-checks every invariant an accepted timetable must hold against the snapshot it was built
// from. It returns nil or an *InvariantError.
func Verify(snapshot Snapshot, timetable Timetable) error {
	violations := make([]string, 0)
	fail := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	calendar := snapshot.Calendar
	classes := lo.SliceToMap(snapshot.Classes, func(class SchoolClass) (uint64, SchoolClass) { return class.Id, class })
	teachers := lo.SliceToMap(snapshot.Teachers, func(teacher TeacherProfile) (uint64, TeacherProfile) { return teacher.Id, teacher })
	hours := make(map[[2]uint64]uint64)
	for _, requirement := range snapshot.EffectiveRequirements() {
		hours[[2]uint64{requirement.Class, requirement.Subject}] = requirement.Hours
	}

	classAssistance := make(map[[3]uint64]bool)    // (class, weekday, lesson)
	teacherAssistance := make(map[[3]uint64]bool)  // (teacher, weekday, lesson)
	dailyOccurrences := make(map[[3]uint64]uint64) // (class, subject, weekday)
	occurrences := make(map[[2]uint64]uint64)      // (class, subject)
	boundTeachers := make(map[[2]uint64]uint64)    // (class, subject) -> teacher
	teacherLoad := make(map[uint64]uint64)

	for _, lesson := range timetable {
		class, classOk := classes[lesson.Class]
		teacher, teacherOk := teachers[lesson.Teacher]
		pair := [2]uint64{lesson.Class, lesson.Subject}
		switch {
		case !classOk:
			fail("lesson of unknown class %v", lesson.Class)
			continue
		case !teacherOk:
			fail("lesson taught by unknown teacher %v", lesson.Teacher)
			continue
		case !teacher.Qualified(lesson.Subject):
			fail("teacher %v is not qualified for subject %v", teacher.Name, lesson.Subject)
		}
		if !calendar.Contains(class.Shift, lesson.TimeSlot()) {
			fail("class %v has a lesson outside its shift at %v", class.Name(), lesson.TimeSlot())
		}

		classSlot := [3]uint64{lesson.Class, lesson.Weekday, lesson.Lesson}
		if classAssistance[classSlot] {
			fail("class %v has two lessons at %v", class.Name(), lesson.TimeSlot())
		}
		classAssistance[classSlot] = true

		teacherSlot := [3]uint64{lesson.Teacher, lesson.Weekday, lesson.Lesson}
		if teacherAssistance[teacherSlot] {
			fail("teacher %v has two lessons at %v", teacher.Name, lesson.TimeSlot())
		}
		teacherAssistance[teacherSlot] = true

		if bound, ok := boundTeachers[pair]; ok && bound != lesson.Teacher {
			fail("subject %v of class %v is taught by more than one teacher", lesson.Subject, class.Name())
		}
		boundTeachers[pair] = lesson.Teacher

		dailyOccurrences[[3]uint64{lesson.Class, lesson.Subject, lesson.Weekday}]++
		occurrences[pair]++
		teacherLoad[lesson.Teacher]++
	}

	//** Hours and daily occurrences
	pairs := lo.Uniq(append(lo.Keys(hours), lo.Keys(occurrences)...))
	slices.SortFunc(pairs, func(a, b [2]uint64) int { return slices.Compare(a[:], b[:]) })
	weekdays := uint64(len(calendar.Weekdays))
	for _, pair := range pairs {
		if occurrences[pair] != hours[pair] {
			fail("subject %v of class %v occurs %v times instead of %v", pair[1], pair[0], occurrences[pair], hours[pair])
		}
		for _, weekday := range calendar.Weekdays {
			count := dailyOccurrences[[3]uint64{pair[0], pair[1], weekday}]
			if count > 1 {
				fail("subject %v of class %v occurs %v times on weekday %v", pair[1], pair[0], count, weekday)
			}
			if hours[pair] == weekdays && count == 0 {
				fail("subject %v of class %v must occur every weekday but misses weekday %v", pair[1], pair[0], weekday)
			}
		}
	}

	//** No gaps
	for _, class := range snapshot.Classes {
		slots := calendar.Slots(class.Shift)
		for _, weekday := range calendar.Weekdays {
			for k := 1; k < len(slots); k++ {
				if classAssistance[[3]uint64{class.Id, weekday, slots[k]}] && !classAssistance[[3]uint64{class.Id, weekday, slots[k-1]}] {
					fail("class %v has a gap before lesson %v on weekday %v", class.Name(), slots[k], weekday)
				}
			}
		}
	}

	//** Capacity
	for _, teacher := range snapshot.Teachers {
		if capacity := teacher.Capacity(calendar); teacherLoad[teacher.Id] > capacity {
			fail("teacher %v gives %v weekly lessons, above their capacity of %v", teacher.Name, teacherLoad[teacher.Id], capacity)
		}
	}

	if len(violations) > 0 {
		return &InvariantError{Violations: violations}
	}
	return nil
}
