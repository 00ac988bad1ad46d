package model

import (
	"fmt"

	"github.com/limaJavier/schooltimetable/pkg/cp"
)

// Decode builds one lesson per true assignment indicator, taught by the teacher bound to its (class,
// subject). Rooms are left unset.
func Decode(problem *Problem, values cp.Values) (Timetable, error) {
	if len(values) != problem.Model.NumVars() {
		return nil, fmt.Errorf("expected %v values, got %v", problem.Model.NumVars(), len(values))
	}

	timetable := make(Timetable, 0)
	for i, key := range problem.indexer.keys {
		if !values.Bool(problem.indexer.vars[i]) {
			continue
		}
		class, subject, teacher := problem.catalog.attributes(key)
		if !values.Bool(problem.indexer.Binding(key.binding())) {
			return nil, fmt.Errorf("%v of class %v is assigned to %v, who is not bound to it", subject.Name, class.Name(), teacher.Name)
		}
		timetable = append(timetable, Lesson{
			Class:   class.Id,
			Subject: subject.Id,
			Teacher: teacher.Id,
			Weekday: problem.catalog.weekdays[key[weekdayAttribute]],
			Lesson:  problem.catalog.slots[key[slotAttribute]],
		})
	}

	SortLessons(timetable)
	return timetable, nil
}
