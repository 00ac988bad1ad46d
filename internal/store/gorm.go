package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/limaJavier/schooltimetable/internal/config"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates every table
func Open(database config.Database) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch database.Driver {
	case "postgres":
		dialector = postgres.Open(database.DSN)
	case "sqlite":
		dialector = sqlite.Open(database.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver \"%v\"", database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot connect to %v database", database.Driver)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, errors.Wrap(err, "cannot migrate database")
	}
	return db, nil
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (store *GormStore) LoadSnapshot(ctx context.Context, calendar model.Calendar) (model.Snapshot, error) {
	var (
		classes  []ClassRecord
		subjects []SubjectRecord
		teachers []TeacherRecord
		rooms    []RoomRecord
		plans    []StudyPlanRecord
		hours    []SubjectHoursRecord
	)

	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		queries := []*gorm.DB{
			tx.Order("id").Find(&classes),
			tx.Order("id").Find(&subjects),
			tx.Preload("Subjects", orderById).Order("id").Find(&teachers),
			tx.Preload("Subjects", orderById).Order("id").Find(&rooms),
			tx.Preload("Entries", orderById).Order("id").Find(&plans),
			tx.Order("class_id, subject_id").Find(&hours),
		}
		for _, query := range queries {
			if query.Error != nil {
				return query.Error
			}
		}
		return nil
	}, &sql.TxOptions{ReadOnly: store.db.Dialector.Name() == "postgres"})
	if err != nil {
		return model.Snapshot{}, errors.Wrap(err, "cannot load snapshot")
	}

	return model.Snapshot{
		Calendar:     calendar,
		Classes:      lo.Map(classes, func(record ClassRecord, _ int) model.SchoolClass { return record.toModel() }),
		Subjects:     lo.Map(subjects, func(record SubjectRecord, _ int) model.Subject { return record.toModel() }),
		Teachers:     lo.Map(teachers, func(record TeacherRecord, _ int) model.TeacherProfile { return record.toModel() }),
		Rooms:        lo.Map(rooms, func(record RoomRecord, _ int) model.Room { return record.toModel() }),
		StudyPlans:   lo.Map(plans, func(record StudyPlanRecord, _ int) model.StudyPlan { return record.toModel() }),
		Requirements: lo.Map(hours, func(record SubjectHoursRecord, _ int) model.HoursRequirement { return record.toModel() }),
	}, nil
}

func (store *GormStore) ReplaceLessons(ctx context.Context, lessons []model.Lesson) error {
	records := lo.Map(lessons, func(lesson model.Lesson, _ int) LessonRecord { return lessonRecord(lesson) })

	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&LessonRecord{}).Error; err != nil {
			return err
		}
		return create(tx, records)
	})
	return errors.Wrap(err, "cannot replace lessons")
}

func (store *GormStore) ListLessons(ctx context.Context, filter LessonFilter) ([]model.Lesson, error) {
	query := store.db.WithContext(ctx).Order("weekday, lesson, class_id")
	if filter.Class != nil {
		query = query.Where("class_id = ?", *filter.Class)
	}
	if filter.Teacher != nil {
		query = query.Where("teacher_id = ?", *filter.Teacher)
	}

	var records []LessonRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "cannot list lessons")
	}
	return lo.Map(records, func(record LessonRecord, _ int) model.Lesson { return record.toModel() }), nil
}

// SaveSnapshot writes the join rows of teacher and room subjects itself, so a reference to a missing
// subject never turns into a placeholder subject row
func (store *GormStore) SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	if err := checkSubjectReferences(snapshot); err != nil {
		return errors.Wrap(err, "cannot save snapshot")
	}
	rows := snapshotRecords(snapshot)

	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"lessons", "subject_hours", "room_subjects", "teacher_subjects", "rooms", "teachers", "school_classes", "study_plan_entries", "study_plans", "subjects"} {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %v", table)).Error; err != nil {
				return err
			}
		}
		steps := []func() error{
			func() error { return create(tx, rows.subjects) },
			func() error { return create(tx, rows.plans) },
			func() error { return create(tx, rows.classes) },
			func() error { return create(tx.Omit(clause.Associations), rows.teachers) },
			func() error { return create(tx.Omit(clause.Associations), rows.rooms) },
			func() error { return create(tx, rows.teacherSubjects) },
			func() error { return create(tx, rows.roomSubjects) },
			func() error { return create(tx, rows.hours) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrap(err, "cannot save snapshot")
}

func create[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(&rows, 500).Error
}

func orderById(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
