package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/limaJavier/schooltimetable/internal/api"
	"github.com/limaJavier/schooltimetable/internal/config"
	"github.com/limaJavier/schooltimetable/internal/generator"
	"github.com/limaJavier/schooltimetable/internal/lock"
	"github.com/limaJavier/schooltimetable/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	configFilePtr := flag.String("config", "", "Path to the configuration file")
	flag.Parse()

	configuration, err := config.Load(*configFilePtr)
	if err != nil {
		slog.Error("cannot load configuration", "error", err)
		os.Exit(1)
	}

	db, err := store.Open(configuration.Database)
	if err != nil {
		slog.Error("cannot open database", "driver", configuration.Database.Driver, "error", err)
		os.Exit(1)
	}
	gormStore := store.NewGormStore(db)

	options, err := generator.OptionsFromConfig(configuration)
	if err != nil {
		slog.Error("cannot initialize solver", "solver", configuration.Solver.Name, "error", err)
		os.Exit(1)
	}
	service := generator.NewService(gormStore, gormStore, lock.New(configuration.Redis), options)

	// A generation may take the whole solver time limit
	app := fiber.New(fiber.Config{
		AppName:      "timetable",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: configuration.Solver.TimeLimit + time.Minute,
	})
	app.Use(recover.New())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	api.ScheduleRoutes(app, api.NewScheduleController(service, gormStore))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("cannot shut down", "error", err)
		}
	}()

	slog.Info("listening", "addr", configuration.Server.Addr, "solver", configuration.Solver.Name,
		"time_limit", configuration.Solver.TimeLimit, "workers", configuration.Solver.Workers)
	if err := app.Listen(configuration.Server.Addr); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
