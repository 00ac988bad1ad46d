package model

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsScenarioA(t *testing.T) {
	result := Validate(scenarioA())

	assert.True(t, result.Ok)
	assert.Empty(t, result.Violations)
}

func TestValidateHoursExceedShift(t *testing.T) {
	//** Arrange
	snapshot := scenarioA()
	snapshot.Requirements[0].Hours = 50

	//** Act
	result := Validate(snapshot)

	//** Assert
	assert.False(t, result.Ok)
	assert.Contains(t, result.Violations, HoursExceedShift{
		Class: 1, Subject: mathId, ClassName: "5A", SubjectName: "Math", Requested: 50, Available: 42,
	})
	assert.Contains(t, result.Violations[0].String(), "50 hours, but only 42 weekly slots")
}

func TestValidateTeacherCapacityShortfall(t *testing.T) {
	//** Arrange
	snapshot := scenarioA()
	snapshot.Classes = append(snapshot.Classes, SchoolClass{Id: 2, Grade: 5, Letter: "B", Shift: Second})
	snapshot.Teachers[1].MaxHoursPerWeek = lo.ToPtr[uint64](4)
	snapshot.Requirements = []HoursRequirement{
		{Class: 1, Subject: artId, Hours: 5},
		{Class: 2, Subject: artId, Hours: 5},
	}

	//** Act
	result := Validate(snapshot)

	//** Assert
	assert.False(t, result.Ok)
	assert.Equal(t, []Violation{
		TeacherCapacityShortfall{Subject: artId, SubjectName: "Art", Demand: 10, Capacity: 4, Teachers: 1},
	}, result.Violations)
}

func TestValidateNoQualifiedTeacher(t *testing.T) {
	snapshot := scenarioA()
	snapshot.Subjects = append(snapshot.Subjects, Subject{Id: physicsId, Name: "Physics"})
	snapshot.Requirements = append(snapshot.Requirements, HoursRequirement{Class: 1, Subject: physicsId, Hours: 2})

	result := Validate(snapshot)

	assert.Equal(t, []Violation{NoQualifiedTeacher{Subject: physicsId, SubjectName: "Physics", Demand: 2}}, result.Violations)
}

func TestValidateDefaultCapacity(t *testing.T) {
	tests := []struct {
		name   string
		demand uint64
		ok     bool
	}{
		{name: "Within the SECOND shift weekly slots", demand: 36, ok: true},
		{name: "Beyond the SECOND shift weekly slots", demand: 37, ok: false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			//** Arrange
			snapshot := scenarioA()
			snapshot.Calendar.DefaultTeacherCapacity = 0
			snapshot.Teachers[0].MaxHoursPerWeek = nil
			snapshot.Requirements = nil
			for class := uint64(1); class <= 7; class++ {
				if class > 1 {
					snapshot.Classes = append(snapshot.Classes, SchoolClass{Id: class, Grade: class, Letter: "A", Shift: First})
				}
				hours := min(test.demand-(class-1)*6, 6)
				if hours > 0 && (class-1)*6 < test.demand {
					snapshot.Requirements = append(snapshot.Requirements, HoursRequirement{Class: class, Subject: mathId, Hours: hours})
				}
			}

			//** Act
			result := Validate(snapshot)

			//** Assert
			assert.Equal(t, test.ok, result.Ok, "%v", result.Violations)
			if !test.ok {
				assert.Equal(t, []Violation{
					TeacherCapacityShortfall{Subject: mathId, SubjectName: "Math", Demand: test.demand, Capacity: 36, Teachers: 1},
				}, result.Violations)
			}
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	//** Arrange
	snapshot := scenarioA()
	snapshot.Teachers[0].MaxHoursPerWeek = lo.ToPtr[uint64](3)
	snapshot.Requirements = append(snapshot.Requirements,
		HoursRequirement{Class: 9, Subject: mathId, Hours: 1},
		HoursRequirement{Class: 1, Subject: artId, Hours: 1},
	)
	snapshot.Requirements[1].Hours = 7

	//** Act
	result := Validate(snapshot)

	//** Assert
	require.False(t, result.Ok)
	kinds := lo.Map(result.Violations, func(violation Violation, _ int) string { return violation.Kind() })
	assert.Equal(t, []string{
		"duplicate_requirement",
		"unknown_reference",
		"daily_subject_limit",
		"teacher_capacity_shortfall",
	}, kinds)
}

func TestValidateClassOverloaded(t *testing.T) {
	snapshot := scenarioA()
	snapshot.Calendar.Shifts[First] = []uint64{1}

	result := Validate(snapshot)

	assert.Equal(t, []Violation{ClassOverloaded{Class: 1, ClassName: "5A", Requested: 8, Available: 6}}, result.Violations)
}

func TestValidateInvalidCalendar(t *testing.T) {
	snapshot := scenarioA()
	snapshot.Calendar.Weekdays = nil

	result := Validate(snapshot)

	assert.False(t, result.Ok)
	assert.Equal(t, []Violation{InvalidCalendar{Reason: "calendar has no weekdays"}}, result.Violations)
}

func TestValidateInheritsStudyPlan(t *testing.T) {
	//** Arrange
	snapshot := scenarioA()
	snapshot.StudyPlans = []StudyPlan{{Id: 1, Name: "Fifth grade", Entries: []StudyPlanEntry{{Subject: artId, HoursPerWeek: 30}}}}
	snapshot.Classes[0].StudyPlan = lo.ToPtr[uint64](1)
	snapshot.Classes = append(snapshot.Classes, SchoolClass{Id: 2, Grade: 5, Letter: "B", Shift: Second, StudyPlan: lo.ToPtr[uint64](1)})

	//** Act
	result := Validate(snapshot)

	//** Assert
	// Class 1 keeps its explicit rows; class 2 inherits 30 hours of Art
	assert.Equal(t, []HoursRequirement{
		{Class: 1, Subject: mathId, Hours: 6},
		{Class: 1, Subject: artId, Hours: 2},
		{Class: 2, Subject: artId, Hours: 30},
	}, snapshot.EffectiveRequirements())
	assert.Equal(t, []Violation{
		DailySubjectLimit{Class: 2, Subject: artId, ClassName: "5B", SubjectName: "Art", Hours: 30, Weekdays: 6},
		TeacherCapacityShortfall{Subject: artId, SubjectName: "Art", Demand: 32, Capacity: 20, Teachers: 1},
	}, result.Violations)
}
