package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/limaJavier/schooltimetable/internal/generator"
	"github.com/limaJavier/schooltimetable/internal/store"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type Generator interface {
	Generate(ctx context.Context) (generator.Run, error)
}

type ScheduleController struct {
	generator Generator
	lessons   store.Sink
}

func NewScheduleController(generator Generator, lessons store.Sink) *ScheduleController {
	return &ScheduleController{generator: generator, lessons: lessons}
}

type violationResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type lessonResponse struct {
	ClassId   uint64  `json:"class_id"`
	SubjectId uint64  `json:"subject_id"`
	TeacherId uint64  `json:"teacher_id"`
	Weekday   uint64  `json:"weekday"`
	Lesson    uint64  `json:"lesson_number"`
	RoomId    *uint64 `json:"room_id"`
}

// Generate runs generate_schedule and maps its typed failures to status codes
func (ctrl *ScheduleController) Generate(c *fiber.Ctx) error {
	run, err := ctrl.generator.Generate(c.UserContext())
	if err == nil {
		return c.JSON(fiber.Map{"data": run})
	}

	body := fiber.Map{"error": err.Error(), "run": run}
	if failed, ok := generator.AsValidationFailed(err); ok {
		body["violations"] = lo.Map(failed.Violations, func(violation model.Violation, _ int) violationResponse {
			return violationResponse{Kind: violation.Kind(), Message: violation.String()}
		})
		return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, generator.ErrInfeasible), errors.Is(err, generator.ErrRunInProgress):
		status = fiber.StatusConflict
	case errors.Is(err, generator.ErrSolverTimeout):
		status = fiber.StatusGatewayTimeout
	}
	return c.Status(status).JSON(body)
}

// Lessons lists the stored timetable, optionally narrowed by class_id and teacher_id
func (ctrl *ScheduleController) Lessons(c *fiber.Ctx) error {
	var filter store.LessonFilter
	for parameter, target := range map[string]**uint64{"class_id": &filter.Class, "teacher_id": &filter.Teacher} {
		raw := c.Query(parameter)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": parameter + " must be a positive integer",
			})
		}
		*target = &id
	}

	lessons, err := ctrl.lessons.ListLessons(c.UserContext(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"data": lo.Map(lessons, func(lesson model.Lesson, _ int) lessonResponse {
			return lessonResponse{
				ClassId:   lesson.Class,
				SubjectId: lesson.Subject,
				TeacherId: lesson.Teacher,
				Weekday:   lesson.Weekday,
				Lesson:    lesson.Lesson,
				RoomId:    lesson.Room,
			}
		}),
	})
}
