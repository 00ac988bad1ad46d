package store

import (
	"context"
	"slices"
	"sync"

	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// MemoryStore keeps a snapshot and its lessons in process. It backs offline runs and tests.
type MemoryStore struct {
	mutex    sync.RWMutex
	snapshot model.Snapshot
	lessons  []model.Lesson
}

func NewMemoryStore(snapshot model.Snapshot) *MemoryStore {
	return &MemoryStore{snapshot: snapshot}
}

func (store *MemoryStore) LoadSnapshot(ctx context.Context, calendar model.Calendar) (model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	snapshot := store.snapshot
	snapshot.Calendar = calendar
	return snapshot, nil
}

func (store *MemoryStore) ReplaceLessons(ctx context.Context, lessons []model.Lesson) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.lessons = slices.Clone(lessons)
	return nil
}

func (store *MemoryStore) ListLessons(ctx context.Context, filter LessonFilter) ([]model.Lesson, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store.mutex.RLock()
	defer store.mutex.RUnlock()

	lessons := lo.Filter(store.lessons, func(lesson model.Lesson, _ int) bool { return filter.Matches(lesson) })
	model.SortLessons(lessons)
	return lessons, nil
}

func (store *MemoryStore) SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkSubjectReferences(snapshot); err != nil {
		return errors.Wrap(err, "cannot save snapshot")
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()

	store.snapshot = snapshot
	store.lessons = nil
	return nil
}
