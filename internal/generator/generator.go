package generator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/limaJavier/schooltimetable/internal/config"
	"github.com/limaJavier/schooltimetable/internal/lock"
	"github.com/limaJavier/schooltimetable/internal/store"
	"github.com/limaJavier/schooltimetable/pkg/cp"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/limaJavier/schooltimetable/pkg/sat"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("timetable/generator")

type Options struct {
	Calendar  model.Calendar
	Penalties map[string]uint64
	Rooms     model.RoomPolicy
	TimeLimit time.Duration
	Workers   int
	Solver    sat.SATSolver
}

// OptionsFromConfig resolves the configured solver backend
func OptionsFromConfig(configuration *config.Config) (Options, error) {
	solver, err := sat.NewSolver(configuration.Solver.Name, configuration.Solver.Paths)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Calendar:  configuration.Calendar,
		Penalties: configuration.Penalties,
		Rooms:     configuration.Rooms.Policy,
		TimeLimit: configuration.Solver.TimeLimit,
		Workers:   configuration.Solver.Workers,
		Solver:    solver,
	}, nil
}

// Service runs generate_schedule: validate the school snapshot, solve it, and replace the stored lessons
// with the result. The stored lessons change only when a run reaches Done.
type Service struct {
	repository store.Repository
	sink       store.Sink
	lock       lock.RunLock
	options    Options
	logger     *slog.Logger
}

func NewService(repository store.Repository, sink store.Sink, runLock lock.RunLock, options Options) *Service {
	if options.Rooms == "" {
		options.Rooms = model.RoomsMatching
	}
	return &Service{
		repository: repository,
		sink:       sink,
		lock:       runLock,
		options:    options,
		logger:     slog.Default().With("component", "generator"),
	}
}

// Generate runs the whole pipeline once. The returned run reports how far it got even when err is set.
func (service *Service) Generate(ctx context.Context) (run Run, err error) {
	run = Run{Id: uuid.New(), State: Idle, Started: time.Now()}
	logger := service.logger.With("run_id", run.Id.String())

	ctx, span := tracer.Start(ctx, "generator.Generate", trace.WithAttributes(attribute.String("run_id", run.Id.String())))
	defer func() {
		run.Elapsed = time.Since(run.Started)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("state", string(run.State)))
		span.End()
		runsTotal.WithLabelValues(string(run.State)).Inc()
		runDuration.WithLabelValues("total").Observe(run.Elapsed.Seconds())
		logger.Info("run finished", "state", run.State, "elapsed", run.Elapsed, "lessons", run.Lessons)
	}()

	release, err := service.lock.Acquire(ctx)
	if err != nil {
		if !errors.Is(err, ErrRunInProgress) {
			err = errors.Wrap(err, "cannot acquire run lock")
		}
		run.State = Failed
		return run, err
	}
	defer release()

	transition := func(state State) {
		logger.Info("state transition", "from", run.State, "to", state)
		run.State = state
	}

	//** Validating
	transition(Validating)
	var snapshot model.Snapshot
	err = stage(ctx, "validate", func(ctx context.Context) error {
		snapshot, err = service.repository.LoadSnapshot(ctx, service.options.Calendar)
		if err != nil {
			return errors.Wrap(err, "cannot load snapshot")
		}
		result := model.Validate(snapshot)
		if result.Ok {
			return nil
		}
		for _, violation := range result.Violations {
			logger.Error("validation violation", "kind", violation.Kind(), "violation", violation.String())
		}
		return &ValidationFailed{Violations: result.Violations}
	})
	if _, ok := AsValidationFailed(err); ok {
		transition(Invalid)
		return run, err
	} else if err != nil {
		transition(Failed)
		return run, err
	}

	//** Building
	transition(Building)
	var problem *model.Problem
	err = stage(ctx, "build", func(ctx context.Context) error {
		problem, err = model.Build(snapshot, model.BuildOptions{Penalties: service.options.Penalties})
		if err != nil {
			return errors.Wrap(err, "cannot build constraint model")
		}
		logger.Info("model built", "assignments", problem.Assignments, "bindings", problem.Bindings, "variables", problem.Model.NumVars())
		return nil
	})
	if err != nil {
		transition(Failed)
		return run, err
	}

	//** Solving
	transition(Solving)
	var outcome cp.Outcome
	err = stage(ctx, "solve", func(ctx context.Context) error {
		outcome, err = cp.Solve(ctx, problem.Model, cp.Params{
			TimeLimit: service.options.TimeLimit,
			Workers:   service.options.Workers,
			Solver:    service.options.Solver,
		})
		if err != nil {
			return errors.Wrap(err, "solver failed")
		}
		return nil
	})
	if err != nil {
		transition(Failed)
		return run, err
	}
	run.Status = outcome.Status.String()
	run.Objective, run.Bound = outcome.Objective, outcome.Bound
	run.Variables, run.Clauses = outcome.Variables, outcome.Clauses
	run.SolveTime, run.SolverCalls = outcome.Elapsed, outcome.Calls
	modelVariables.Set(float64(outcome.Variables))
	modelClauses.Set(float64(outcome.Clauses))
	logger.Info("solver finished", "status", run.Status, "objective", outcome.Objective, "bound", outcome.Bound,
		"variables", outcome.Variables, "clauses", outcome.Clauses, "calls", outcome.Calls, "elapsed", outcome.Elapsed)

	switch outcome.Status {
	case cp.Infeasible:
		transition(Infeasible)
		return run, ErrInfeasible
	case cp.Timeout:
		transition(Timeout)
		return run, ErrSolverTimeout
	}

	//** Materializing
	transition(Materializing)
	err = stage(ctx, "materialize", func(ctx context.Context) error {
		timetable, err := model.Decode(problem, outcome.Values)
		if err != nil {
			return err
		}
		timetable, err = model.AssignRooms(snapshot, timetable, service.options.Rooms)
		if err != nil {
			return err
		}
		if err := model.Verify(snapshot, timetable); err != nil {
			return errors.Wrap(err, "solved timetable breaks a hard rule")
		}
		if err := service.sink.ReplaceLessons(ctx, timetable); err != nil {
			return &PersistenceFailure{Err: err}
		}
		run.Lessons = len(timetable)
		run.Spread = model.Spread(snapshot, timetable)
		return nil
	})
	if err != nil {
		transition(Failed)
		return run, err
	}

	lessonsWritten.Set(float64(run.Lessons))
	logger.Info("timetable stored", "lessons", run.Lessons, "spread", run.Spread, "objective", run.Objective)
	transition(Done)
	return run, nil
}

// stage runs one step of the pipeline inside its own span and records its duration
func stage(ctx context.Context, name string, step func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "generator."+name)
	defer span.End()
	timer := prometheus.NewTimer(runDuration.WithLabelValues(name))
	defer timer.ObserveDuration()

	err := step(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
