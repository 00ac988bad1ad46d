package store

import (
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/samber/lo"
)

type SubjectRecord struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"not null"`
	Difficulty string `gorm:"not null;default:medium"`
	Area       string
}

func (SubjectRecord) TableName() string { return "subjects" }

type StudyPlanRecord struct {
	ID      uint64                 `gorm:"primaryKey;autoIncrement:false"`
	Name    string                 `gorm:"not null"`
	Entries []StudyPlanEntryRecord `gorm:"foreignKey:StudyPlanID;constraint:OnDelete:CASCADE"`
}

func (StudyPlanRecord) TableName() string { return "study_plans" }

type StudyPlanEntryRecord struct {
	ID           uint64 `gorm:"primaryKey"`
	StudyPlanID  uint64 `gorm:"not null;uniqueIndex:idx_study_plan_subject"`
	SubjectID    uint64 `gorm:"not null;uniqueIndex:idx_study_plan_subject"`
	HoursPerWeek uint64 `gorm:"not null"`
}

func (StudyPlanEntryRecord) TableName() string { return "study_plan_entries" }

type ClassRecord struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	Grade       uint64 `gorm:"not null"`
	Letter      string `gorm:"not null"`
	Shift       string `gorm:"not null"`
	StudyPlanID *uint64
}

func (ClassRecord) TableName() string { return "school_classes" }

type TeacherRecord struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement:false"`
	Name            string `gorm:"not null"`
	MaxHoursPerWeek *uint64
	Subjects        []SubjectRecord `gorm:"many2many:teacher_subjects;joinForeignKey:TeacherID;joinReferences:SubjectID"`
}

func (TeacherRecord) TableName() string { return "teachers" }

type RoomRecord struct {
	ID       uint64          `gorm:"primaryKey;autoIncrement:false"`
	Name     string          `gorm:"not null"`
	Subjects []SubjectRecord `gorm:"many2many:room_subjects;joinForeignKey:RoomID;joinReferences:SubjectID"`
}

func (RoomRecord) TableName() string { return "rooms" }

// TeacherSubjectRecord is a row of the join table behind TeacherRecord.Subjects
type TeacherSubjectRecord struct {
	TeacherID uint64 `gorm:"primaryKey;autoIncrement:false"`
	SubjectID uint64 `gorm:"primaryKey;autoIncrement:false"`
}

func (TeacherSubjectRecord) TableName() string { return "teacher_subjects" }

// RoomSubjectRecord is a row of the join table behind RoomRecord.Subjects
type RoomSubjectRecord struct {
	RoomID    uint64 `gorm:"primaryKey;autoIncrement:false"`
	SubjectID uint64 `gorm:"primaryKey;autoIncrement:false"`
}

func (RoomSubjectRecord) TableName() string { return "room_subjects" }

// SubjectHoursRecord is an explicit hours requirement of a class
type SubjectHoursRecord struct {
	ID        uint64 `gorm:"primaryKey"`
	ClassID   uint64 `gorm:"not null;uniqueIndex:idx_class_subject"`
	SubjectID uint64 `gorm:"not null;uniqueIndex:idx_class_subject"`
	Hours     uint64 `gorm:"not null"`
}

func (SubjectHoursRecord) TableName() string { return "subject_hours" }

type LessonRecord struct {
	ID        uint64 `gorm:"primaryKey"`
	ClassID   uint64 `gorm:"not null;uniqueIndex:idx_class_slot"`
	SubjectID uint64 `gorm:"not null"`
	TeacherID uint64 `gorm:"not null;index"`
	Weekday   uint64 `gorm:"not null;uniqueIndex:idx_class_slot"`
	Lesson    uint64 `gorm:"not null;uniqueIndex:idx_class_slot"`
	RoomID    *uint64
}

func (LessonRecord) TableName() string { return "lessons" }

// Models lists every table AutoMigrate creates
func Models() []any {
	return []any{
		&SubjectRecord{},
		&StudyPlanRecord{},
		&StudyPlanEntryRecord{},
		&ClassRecord{},
		&TeacherRecord{},
		&RoomRecord{},
		&SubjectHoursRecord{},
		&LessonRecord{},
	}
}

func subjectIds(subjects []SubjectRecord) []uint64 {
	if len(subjects) == 0 {
		return nil
	}
	return lo.Map(subjects, func(subject SubjectRecord, _ int) uint64 { return subject.ID })
}

func (record ClassRecord) toModel() model.SchoolClass {
	return model.SchoolClass{
		Id:        record.ID,
		Grade:     record.Grade,
		Letter:    record.Letter,
		Shift:     model.Shift(record.Shift),
		StudyPlan: record.StudyPlanID,
	}
}

func (record SubjectRecord) toModel() model.Subject {
	return model.Subject{
		Id:         record.ID,
		Name:       record.Name,
		Difficulty: model.Difficulty(record.Difficulty),
		Area:       record.Area,
	}
}

func (record TeacherRecord) toModel() model.TeacherProfile {
	return model.TeacherProfile{
		Id:              record.ID,
		Name:            record.Name,
		Subjects:        subjectIds(record.Subjects),
		MaxHoursPerWeek: record.MaxHoursPerWeek,
	}
}

func (record RoomRecord) toModel() model.Room {
	return model.Room{Id: record.ID, Name: record.Name, Subjects: subjectIds(record.Subjects)}
}

func (record StudyPlanRecord) toModel() model.StudyPlan {
	return model.StudyPlan{
		Id:   record.ID,
		Name: record.Name,
		Entries: lo.Map(record.Entries, func(entry StudyPlanEntryRecord, _ int) model.StudyPlanEntry {
			return model.StudyPlanEntry{Subject: entry.SubjectID, HoursPerWeek: entry.HoursPerWeek}
		}),
	}
}

func (record SubjectHoursRecord) toModel() model.HoursRequirement {
	return model.HoursRequirement{Class: record.ClassID, Subject: record.SubjectID, Hours: record.Hours}
}

func (record LessonRecord) toModel() model.Lesson {
	return model.Lesson{
		Class:   record.ClassID,
		Subject: record.SubjectID,
		Teacher: record.TeacherID,
		Weekday: record.Weekday,
		Lesson:  record.Lesson,
		Room:    record.RoomID,
	}
}

func lessonRecord(lesson model.Lesson) LessonRecord {
	return LessonRecord{
		ClassID:   lesson.Class,
		SubjectID: lesson.Subject,
		TeacherID: lesson.Teacher,
		Weekday:   lesson.Weekday,
		Lesson:    lesson.Lesson,
		RoomID:    lesson.Room,
	}
}

// snapshotRows holds the rows SaveSnapshot writes, parents before children
type snapshotRows struct {
	subjects        []SubjectRecord
	plans           []StudyPlanRecord
	classes         []ClassRecord
	teachers        []TeacherRecord
	rooms           []RoomRecord
	teacherSubjects []TeacherSubjectRecord
	roomSubjects    []RoomSubjectRecord
	hours           []SubjectHoursRecord
}

func snapshotRecords(snapshot model.Snapshot) snapshotRows {
	return snapshotRows{
		subjects: lo.Map(snapshot.Subjects, func(subject model.Subject, _ int) SubjectRecord {
			difficulty := string(subject.Difficulty)
			if difficulty == "" {
				difficulty = string(model.Medium)
			}
			return SubjectRecord{ID: subject.Id, Name: subject.Name, Difficulty: difficulty, Area: subject.Area}
		}),
		plans: lo.Map(snapshot.StudyPlans, func(plan model.StudyPlan, _ int) StudyPlanRecord {
			return StudyPlanRecord{
				ID:   plan.Id,
				Name: plan.Name,
				Entries: lo.Map(plan.Entries, func(entry model.StudyPlanEntry, _ int) StudyPlanEntryRecord {
					return StudyPlanEntryRecord{SubjectID: entry.Subject, HoursPerWeek: entry.HoursPerWeek}
				}),
			}
		}),
		classes: lo.Map(snapshot.Classes, func(class model.SchoolClass, _ int) ClassRecord {
			return ClassRecord{ID: class.Id, Grade: class.Grade, Letter: class.Letter, Shift: string(class.Shift), StudyPlanID: class.StudyPlan}
		}),
		teachers: lo.Map(snapshot.Teachers, func(teacher model.TeacherProfile, _ int) TeacherRecord {
			return TeacherRecord{ID: teacher.Id, Name: teacher.Name, MaxHoursPerWeek: teacher.MaxHoursPerWeek}
		}),
		rooms: lo.Map(snapshot.Rooms, func(room model.Room, _ int) RoomRecord {
			return RoomRecord{ID: room.Id, Name: room.Name}
		}),
		teacherSubjects: lo.FlatMap(snapshot.Teachers, func(teacher model.TeacherProfile, _ int) []TeacherSubjectRecord {
			return lo.Map(teacher.Subjects, func(subject uint64, _ int) TeacherSubjectRecord {
				return TeacherSubjectRecord{TeacherID: teacher.Id, SubjectID: subject}
			})
		}),
		roomSubjects: lo.FlatMap(snapshot.Rooms, func(room model.Room, _ int) []RoomSubjectRecord {
			return lo.Map(room.Subjects, func(subject uint64, _ int) RoomSubjectRecord {
				return RoomSubjectRecord{RoomID: room.Id, SubjectID: subject}
			})
		}),
		hours: lo.Map(snapshot.Requirements, func(requirement model.HoursRequirement, _ int) SubjectHoursRecord {
			return SubjectHoursRecord{ClassID: requirement.Class, SubjectID: requirement.Subject, Hours: requirement.Hours}
		}),
	}
}
