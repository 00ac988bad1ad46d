package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/limaJavier/schooltimetable/internal/config"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func schoolSnapshot() model.Snapshot {
	return model.Snapshot{
		Calendar: model.DefaultCalendar(),
		Classes: []model.SchoolClass{
			{Id: 1, Grade: 5, Letter: "A", Shift: model.First},
			{Id: 2, Grade: 6, Letter: "B", Shift: model.Second, StudyPlan: lo.ToPtr[uint64](1)},
		},
		Subjects: []model.Subject{
			{Id: 1, Name: "Math", Difficulty: model.Hard, Area: "Sciences"},
			{Id: 2, Name: "Art", Difficulty: model.Easy},
		},
		Teachers: []model.TeacherProfile{
			{Id: 1, Name: "Ana", Subjects: []uint64{1, 2}, MaxHoursPerWeek: lo.ToPtr[uint64](20)},
			{Id: 2, Name: "Bruno", Subjects: []uint64{2}},
		},
		Rooms: []model.Room{
			{Id: 1, Name: "Studio", Subjects: []uint64{2}},
			{Id: 2, Name: "Room 2"},
		},
		StudyPlans: []model.StudyPlan{
			{Id: 1, Name: "Sixth grade", Entries: []model.StudyPlanEntry{{Subject: 1, HoursPerWeek: 4}, {Subject: 2, HoursPerWeek: 1}}},
		},
		Requirements: []model.HoursRequirement{
			{Class: 1, Subject: 1, Hours: 6},
			{Class: 1, Subject: 2, Hours: 2},
		},
	}
}

func stores(t *testing.T) map[string]Store {
	db, err := Open(config.Database{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "timetable.db")})
	require.NoError(t, err)
	sqlDb, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDb.Close() })

	return map[string]Store{
		"gorm":   NewGormStore(db),
		"memory": NewMemoryStore(model.Snapshot{}),
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			//** Arrange
			ctx := context.Background()
			expected := schoolSnapshot()
			require.NoError(t, store.SaveSnapshot(ctx, expected))

			//** Act
			calendar := model.DefaultCalendar()
			calendar.Weekdays = []uint64{1, 2, 3, 4, 5}
			snapshot, err := store.LoadSnapshot(ctx, calendar)

			//** Assert
			require.NoError(t, err)
			expected.Calendar = calendar
			assert.Equal(t, expected, snapshot)
		})
	}
}

func TestSaveSnapshotRejectsUnknownSubject(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(snapshot *model.Snapshot)
		message string
	}{
		{
			name:    "teacher",
			mutate:  func(snapshot *model.Snapshot) { snapshot.Teachers[1].Subjects = []uint64{1, 99} },
			message: "teacher 2 names subject 99",
		},
		{
			name:    "room",
			mutate:  func(snapshot *model.Snapshot) { snapshot.Rooms[1].Subjects = []uint64{99} },
			message: "room 2 names subject 99",
		},
	}

	for _, test := range tests {
		for name, store := range stores(t) {
			t.Run(test.name+"/"+name, func(t *testing.T) {
				//** Arrange
				ctx := context.Background()
				require.NoError(t, store.SaveSnapshot(ctx, schoolSnapshot()))
				dangling := schoolSnapshot()
				test.mutate(&dangling)

				//** Act
				err := store.SaveSnapshot(ctx, dangling)

				//** Assert
				assert.ErrorIs(t, err, ErrUnknownSubject)
				assert.ErrorContains(t, err, test.message)
				snapshot, err := store.LoadSnapshot(ctx, model.DefaultCalendar())
				require.NoError(t, err)
				assert.Equal(t, schoolSnapshot(), snapshot)
			})
		}
	}
}

func TestReplaceAndListLessons(t *testing.T) {
	lessons := []model.Lesson{
		{Class: 1, Subject: 1, Teacher: 1, Weekday: 2, Lesson: 1, Room: lo.ToPtr[uint64](2)},
		{Class: 1, Subject: 2, Teacher: 2, Weekday: 1, Lesson: 2},
		{Class: 2, Subject: 2, Teacher: 1, Weekday: 1, Lesson: 8, Room: lo.ToPtr[uint64](1)},
		{Class: 1, Subject: 1, Teacher: 1, Weekday: 1, Lesson: 1},
	}

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			//** Arrange
			ctx := context.Background()
			require.NoError(t, store.SaveSnapshot(ctx, schoolSnapshot()))
			require.NoError(t, store.ReplaceLessons(ctx, []model.Lesson{{Class: 2, Subject: 1, Teacher: 1, Weekday: 6, Lesson: 13}}))

			//** Act
			require.NoError(t, store.ReplaceLessons(ctx, lessons))
			all, err := store.ListLessons(ctx, LessonFilter{})
			require.NoError(t, err)
			ofClass, err := store.ListLessons(ctx, LessonFilter{Class: lo.ToPtr[uint64](1)})
			require.NoError(t, err)
			ofTeacher, err := store.ListLessons(ctx, LessonFilter{Teacher: lo.ToPtr[uint64](1)})
			require.NoError(t, err)
			both, err := store.ListLessons(ctx, LessonFilter{Class: lo.ToPtr[uint64](2), Teacher: lo.ToPtr[uint64](2)})
			require.NoError(t, err)

			//** Assert
			assert.Equal(t, []model.Lesson{lessons[3], lessons[1], lessons[2], lessons[0]}, all)
			assert.Equal(t, []model.Lesson{lessons[3], lessons[1], lessons[0]}, ofClass)
			assert.Equal(t, []model.Lesson{lessons[3], lessons[2], lessons[0]}, ofTeacher)
			assert.Empty(t, both)
		})
	}
}

func TestReplaceLessonsIsAtomic(t *testing.T) {
	//** Arrange
	ctx := context.Background()
	store := stores(t)["gorm"]
	previous := []model.Lesson{{Class: 1, Subject: 1, Teacher: 1, Weekday: 1, Lesson: 1}}
	require.NoError(t, store.ReplaceLessons(ctx, previous))

	//** Act
	// Two lessons of the same class in the same slot break the unique index
	err := store.ReplaceLessons(ctx, []model.Lesson{
		{Class: 1, Subject: 1, Teacher: 1, Weekday: 2, Lesson: 1},
		{Class: 1, Subject: 2, Teacher: 2, Weekday: 2, Lesson: 1},
	})

	//** Assert
	assert.ErrorContains(t, err, "cannot replace lessons")
	lessons, err := store.ListLessons(ctx, LessonFilter{})
	require.NoError(t, err)
	assert.Equal(t, previous, lessons)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(config.Database{Driver: "mysql", DSN: "root@/timetable"})
	assert.EqualError(t, err, "unknown database driver \"mysql\"")
}

func TestMemoryStoreHonorsContext(t *testing.T) {
	store := NewMemoryStore(schoolSnapshot())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.LoadSnapshot(ctx, model.DefaultCalendar())
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.ReplaceLessons(ctx, nil), context.Canceled)
}
