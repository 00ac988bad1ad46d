package api

import (
	"github.com/gofiber/fiber/v2"
)

func ScheduleRoutes(app *fiber.App, ctrl *ScheduleController) {
	api := app.Group("/api")
	api.Post("/schedule/generate", ctrl.Generate)
	api.Get("/lessons", ctrl.Lessons)
}
