package model

import "github.com/samber/lo"

const (
	mathId = iota + 1
	artId
	physicsId
)

// scenarioA is one FIRST shift class taking Math six hours and Art two hours, each subject with a single
// qualified teacher of capacity 20
func scenarioA() Snapshot {
	return Snapshot{
		Calendar: DefaultCalendar(),
		Classes: []SchoolClass{
			{Id: 1, Grade: 5, Letter: "A", Shift: First},
		},
		Subjects: []Subject{
			{Id: mathId, Name: "Math", Difficulty: Hard},
			{Id: artId, Name: "Art", Difficulty: Easy},
		},
		Teachers: []TeacherProfile{
			{Id: 1, Name: "Ana", Subjects: []uint64{mathId}, MaxHoursPerWeek: lo.ToPtr[uint64](20)},
			{Id: 2, Name: "Bruno", Subjects: []uint64{artId}, MaxHoursPerWeek: lo.ToPtr[uint64](20)},
		},
		Rooms: []Room{
			{Id: 1, Name: "Room 1"},
		},
		Requirements: []HoursRequirement{
			{Class: 1, Subject: mathId, Hours: 6},
			{Class: 1, Subject: artId, Hours: 2},
		},
	}
}
