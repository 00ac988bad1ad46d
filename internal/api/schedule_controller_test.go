package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/limaJavier/schooltimetable/internal/generator"
	"github.com/limaJavier/schooltimetable/internal/store"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	run generator.Run
	err error
}

func (fake fakeGenerator) Generate(context.Context) (generator.Run, error) {
	return fake.run, fake.err
}

func newApp(generator Generator, lessons store.Sink) *fiber.App {
	app := fiber.New()
	ScheduleRoutes(app, NewScheduleController(generator, lessons))
	return app
}

func request(t *testing.T, app *fiber.App, method, target string) (int, map[string]any) {
	t.Helper()
	response, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return response.StatusCode, body
}

func TestGenerateStatusCodes(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"done":                {nil, http.StatusOK},
		"validation failed":   {&generator.ValidationFailed{}, http.StatusUnprocessableEntity},
		"infeasible":          {generator.ErrInfeasible, http.StatusConflict},
		"run in progress":     {generator.ErrRunInProgress, http.StatusConflict},
		"solver timeout":      {generator.ErrSolverTimeout, http.StatusGatewayTimeout},
		"persistence failure": {&generator.PersistenceFailure{Err: errors.New("disk full")}, http.StatusInternalServerError},
		"engine error":        {errors.Wrap(errors.New("exec: not found"), "solver failed"), http.StatusInternalServerError},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			app := newApp(fakeGenerator{run: generator.Run{Id: uuid.New(), State: generator.Done}, err: c.err}, store.NewMemoryStore(model.Snapshot{}))

			status, body := request(t, app, http.MethodPost, "/api/schedule/generate")

			assert.Equal(t, c.status, status)
			if c.err == nil {
				assert.Equal(t, "DONE", body["data"].(map[string]any)["state"])
			} else {
				assert.Equal(t, c.err.Error(), body["error"])
			}
		})
	}
}

func TestGenerateReportsViolations(t *testing.T) {
	//** Arrange
	violation := model.ClassOverloaded{Class: 1, ClassName: "5A", Requested: 50, Available: 42}
	app := newApp(
		fakeGenerator{run: generator.Run{State: generator.Invalid}, err: &generator.ValidationFailed{Violations: []model.Violation{violation}}},
		store.NewMemoryStore(model.Snapshot{}),
	)

	//** Act
	status, body := request(t, app, http.MethodPost, "/api/schedule/generate")

	//** Assert
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, []any{map[string]any{"kind": "class_overloaded", "message": violation.String()}}, body["violations"])
	assert.Equal(t, "INVALID", body["run"].(map[string]any)["state"])
}

func TestLessons(t *testing.T) {
	//** Arrange
	memory := store.NewMemoryStore(model.Snapshot{})
	require.NoError(t, memory.ReplaceLessons(context.Background(), []model.Lesson{
		{Class: 1, Subject: 1, Teacher: 1, Weekday: 1, Lesson: 1, Room: lo.ToPtr[uint64](3)},
		{Class: 2, Subject: 2, Teacher: 2, Weekday: 1, Lesson: 8},
		{Class: 1, Subject: 2, Teacher: 2, Weekday: 2, Lesson: 1},
	}))
	app := newApp(fakeGenerator{}, memory)

	//** Act
	allStatus, all := request(t, app, http.MethodGet, "/api/lessons")
	_, ofClass := request(t, app, http.MethodGet, "/api/lessons?class_id=1")
	_, ofBoth := request(t, app, http.MethodGet, "/api/lessons?class_id=1&teacher_id=2")
	badStatus, bad := request(t, app, http.MethodGet, "/api/lessons?teacher_id=ana")

	//** Assert
	assert.Equal(t, http.StatusOK, allStatus)
	assert.Len(t, all["data"], 3)
	assert.Len(t, ofClass["data"], 2)
	assert.Equal(t, []any{map[string]any{
		"class_id": 1.0, "subject_id": 2.0, "teacher_id": 2.0, "weekday": 2.0, "lesson_number": 1.0, "room_id": nil,
	}}, ofBoth["data"])
	assert.Equal(t, map[string]any{
		"class_id": 1.0, "subject_id": 1.0, "teacher_id": 1.0, "weekday": 1.0, "lesson_number": 1.0, "room_id": 3.0,
	}, all["data"].([]any)[0])
	assert.Equal(t, http.StatusBadRequest, badStatus)
	assert.Equal(t, "teacher_id must be a positive integer", bad["error"])
}
