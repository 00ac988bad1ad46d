package store

import (
	"context"

	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrUnknownSubject is returned when a teacher or room of a saved snapshot names a subject the snapshot
// does not contain
var ErrUnknownSubject = errors.New("reference to an unknown subject")

// Repository reads the school data a generation run works on
type Repository interface {
	// LoadSnapshot reads every entity in one consistent read. The calendar is not stored and is attached as given.
	LoadSnapshot(ctx context.Context, calendar model.Calendar) (model.Snapshot, error)
}

// Sink owns the materialized timetable
type Sink interface {
	// ReplaceLessons deletes every stored lesson and inserts the given ones, atomically
	ReplaceLessons(ctx context.Context, lessons []model.Lesson) error
	ListLessons(ctx context.Context, filter LessonFilter) ([]model.Lesson, error)
}

type Store interface {
	Repository
	Sink
	// SaveSnapshot replaces the stored school data with the snapshot's entities. It fails with
	// ErrUnknownSubject, storing nothing, when a teacher or room names a missing subject.
	SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error
}

// LessonFilter narrows ListLessons; nil fields match everything
type LessonFilter struct {
	Class   *uint64
	Teacher *uint64
}

func (filter LessonFilter) Matches(lesson model.Lesson) bool {
	return (filter.Class == nil || *filter.Class == lesson.Class) &&
		(filter.Teacher == nil || *filter.Teacher == lesson.Teacher)
}

func checkSubjectReferences(snapshot model.Snapshot) error {
	known := lo.SliceToMap(snapshot.Subjects, func(subject model.Subject) (uint64, bool) { return subject.Id, true })
	for _, teacher := range snapshot.Teachers {
		if missing, ok := lo.Find(teacher.Subjects, func(id uint64) bool { return !known[id] }); ok {
			return errors.Wrapf(ErrUnknownSubject, "teacher %v names subject %v", teacher.Id, missing)
		}
	}
	for _, room := range snapshot.Rooms {
		if missing, ok := lo.Find(room.Subjects, func(id uint64) bool { return !known[id] }); ok {
			return errors.Wrapf(ErrUnknownSubject, "room %v names subject %v", room.Id, missing)
		}
	}
	return nil
}
