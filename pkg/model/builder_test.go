package model

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/schooltimetable/pkg/cp"
)

func solve(t *testing.T, snapshot Snapshot, options BuildOptions) (Timetable, cp.Outcome) {
	t.Helper()

	problem, err := Build(snapshot, options)
	require.NoError(t, err)

	outcome, err := cp.Solve(context.Background(), problem.Model, cp.Params{TimeLimit: 30 * time.Second, Workers: 4})
	require.NoError(t, err)
	if !outcome.Status.Solved() {
		return nil, outcome
	}

	timetable, err := Decode(problem, outcome.Values)
	require.NoError(t, err)
	return timetable, outcome
}

func TestBuildScenarioA(t *testing.T) {
	//** Arrange
	snapshot := scenarioA()

	//** Act
	timetable, outcome := solve(t, snapshot, BuildOptions{})

	//** Assert
	require.True(t, outcome.Status.Solved(), "status %v", outcome.Status)
	assert.NoError(t, Verify(snapshot, timetable))
	assert.Len(t, timetable, 8)

	math := lo.Filter(timetable, func(lesson Lesson, _ int) bool { return lesson.Subject == mathId })
	assert.ElementsMatch(t, snapshot.Calendar.Weekdays, lo.Map(math, func(lesson Lesson, _ int) uint64 { return lesson.Weekday }))
	assert.True(t, lo.EveryBy(math, func(lesson Lesson) bool { return lesson.Teacher == 1 }))

	art := lo.Filter(timetable, func(lesson Lesson, _ int) bool { return lesson.Subject == artId })
	assert.Len(t, art, 2)
	assert.NotEqual(t, art[0].Weekday, art[1].Weekday)
	assert.True(t, lo.EveryBy(art, func(lesson Lesson) bool { return lesson.Teacher == 2 }))

	// Eight lessons over six days cannot be spread evenly
	if outcome.Status == cp.Optimal {
		assert.Equal(t, int64(1), outcome.Objective)
	}
}

func TestBuildBindsOneTeacherPerSubject(t *testing.T) {
	//** Arrange
	snapshot := scenarioA()
	snapshot.Teachers = append(snapshot.Teachers,
		TeacherProfile{Id: 3, Name: "Carla", Subjects: []uint64{mathId, artId}, MaxHoursPerWeek: lo.ToPtr[uint64](3)},
	)

	//** Act
	timetable, outcome := solve(t, snapshot, BuildOptions{})

	//** Assert
	require.True(t, outcome.Status.Solved())
	assert.NoError(t, Verify(snapshot, timetable))
	for _, subject := range []uint64{mathId, artId} {
		teachers := lo.Uniq(lo.FilterMap(timetable, func(lesson Lesson, _ int) (uint64, bool) {
			return lesson.Teacher, lesson.Subject == subject
		}))
		assert.Len(t, teachers, 1, "subject %v", subject)
	}
	// Carla cannot take Math alone, capacity 3 is below 6 hours
	assert.False(t, lo.SomeBy(timetable, func(lesson Lesson) bool { return lesson.Subject == mathId && lesson.Teacher == 3 }))
}

func TestBuildInfeasibleDespiteValidation(t *testing.T) {
	//** Arrange
	// Two classes take Math every day, which puts it in their first slot, but both depend on Ana
	snapshot := scenarioA()
	snapshot.Classes = append(snapshot.Classes, SchoolClass{Id: 2, Grade: 5, Letter: "B", Shift: First})
	snapshot.Requirements = []HoursRequirement{
		{Class: 1, Subject: mathId, Hours: 6},
		{Class: 2, Subject: mathId, Hours: 6},
	}
	require.True(t, Validate(snapshot).Ok)

	//** Act
	timetable, outcome := solve(t, snapshot, BuildOptions{})

	//** Assert
	assert.Equal(t, cp.Infeasible, outcome.Status)
	assert.Nil(t, timetable)
}

func TestBuildIsDeterministic(t *testing.T) {
	snapshot := SyntheticSnapshot(SyntheticParams{Classes: 3, Subjects: 4, Rooms: 2, Seed: 3})

	first, err := Build(snapshot, BuildOptions{Penalties: map[string]uint64{BalancePenalty: 1, HardAdjacentPenalty: 2}})
	require.NoError(t, err)
	second, err := Build(snapshot, BuildOptions{Penalties: map[string]uint64{HardAdjacentPenalty: 2, BalancePenalty: 1}})
	require.NoError(t, err)

	assert.Equal(t, first.Model.NumVars(), second.Model.NumVars())
	assert.Equal(t, first.Model.Constraints, second.Model.Constraints)
	assert.Equal(t, first.Model.Objective, second.Model.Objective)
}

func TestBuildRejectsUnknownPenalty(t *testing.T) {
	_, err := Build(scenarioA(), BuildOptions{Penalties: map[string]uint64{"fewest-teachers": 1}})

	assert.ErrorContains(t, err, "unknown penalty")
}

func TestBuildWithEveryPenalty(t *testing.T) {
	//** Arrange
	snapshot := scenarioA()
	snapshot.Subjects = append(snapshot.Subjects, Subject{Id: physicsId, Name: "Physics", Difficulty: Hard})
	snapshot.Teachers[0].Subjects = append(snapshot.Teachers[0].Subjects, physicsId)
	snapshot.Requirements = append(snapshot.Requirements, HoursRequirement{Class: 1, Subject: physicsId, Hours: 4})
	weights := lo.SliceToMap(Penalties(), func(name string) (string, uint64) { return name, 1 })

	//** Act
	timetable, outcome := solve(t, snapshot, BuildOptions{Penalties: weights})

	//** Assert
	require.True(t, outcome.Status.Solved())
	assert.NoError(t, Verify(snapshot, timetable))
	assert.Len(t, timetable, 12)
	assert.GreaterOrEqual(t, outcome.Objective, int64(0))
}

func TestBuildLastSlotPenaltyAvoidsLastSlot(t *testing.T) {
	snapshot := scenarioA()

	timetable, outcome := solve(t, snapshot, BuildOptions{Penalties: map[string]uint64{LastSlotPenalty: 1}})

	require.Equal(t, cp.Optimal, outcome.Status)
	assert.Equal(t, int64(0), outcome.Objective)
	assert.False(t, lo.SomeBy(timetable, func(lesson Lesson) bool { return lesson.Lesson == 7 }))
}

func TestBuildFiveDayCalendar(t *testing.T) {
	//** Arrange
	snapshot := scenarioA()
	snapshot.Calendar = Calendar{
		Weekdays: []uint64{1, 2, 3, 4, 5},
		Shifts:   map[Shift][]uint64{First: {1, 2, 3, 4}, Second: {5, 6, 7, 8}},
	}
	snapshot.Requirements[0].Hours = 5
	require.True(t, Validate(snapshot).Ok)

	//** Act
	timetable, outcome := solve(t, snapshot, BuildOptions{})

	//** Assert
	require.True(t, outcome.Status.Solved())
	assert.NoError(t, Verify(snapshot, timetable))
	assert.Len(t, timetable, 7)
	assert.True(t, lo.EveryBy(timetable, func(lesson Lesson) bool { return lesson.Weekday <= 5 && lesson.Lesson <= 4 }))
}

func TestBuildSyntheticSnapshots(t *testing.T) {
	for seed := range uint64(3) {
		//** Arrange
		snapshot := SyntheticSnapshot(SyntheticParams{Classes: 2, Subjects: 5, Rooms: 2, Seed: seed})
		require.True(t, Validate(snapshot).Ok, "seed %v", seed)

		//** Act
		timetable, outcome := solve(t, snapshot, BuildOptions{})

		//** Assert
		require.True(t, outcome.Status.Solved(), "seed %v: status %v", seed, outcome.Status)
		assert.NoError(t, Verify(snapshot, timetable), "seed %v", seed)
	}
}

func TestBuildEncodingScalesWithSchoolSize(t *testing.T) {
	//** Arrange
	// The largest size the benchmark runs
	snapshot := SyntheticSnapshot(SyntheticParams{Classes: 12, Subjects: 10, Rooms: 8, Load: 0.8})
	require.True(t, Validate(snapshot).Ok)

	//** Act
	problem, err := Build(snapshot, BuildOptions{})
	require.NoError(t, err)
	variables, clauses := cp.EncodedSize(problem.Model)

	//** Assert
	assert.Less(t, variables, uint64(8*problem.Assignments))
	assert.Less(t, clauses, 40*problem.Assignments)
}

func TestBuildSolvesBenchmarkSizedSchool(t *testing.T) {
	if testing.Short() {
		t.Skip("solves a twelve class school")
	}

	//** Arrange
	snapshot := SyntheticSnapshot(SyntheticParams{Classes: 12, Subjects: 10, Rooms: 8, Load: 0.8})
	problem, err := Build(snapshot, BuildOptions{})
	require.NoError(t, err)

	//** Act
	outcome, err := cp.Solve(context.Background(), problem.Model, cp.Params{TimeLimit: time.Minute, Workers: 4})

	//** Assert
	require.NoError(t, err)
	require.True(t, outcome.Status.Solved(), "status %v", outcome.Status)
	timetable, err := Decode(problem, outcome.Values)
	require.NoError(t, err)
	assert.NoError(t, Verify(snapshot, timetable))
	assert.LessOrEqual(t, Spread(snapshot, timetable), uint64(outcome.Objective))
}
