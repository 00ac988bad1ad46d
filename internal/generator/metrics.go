package generator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_runs_total",
		Help: "Generation runs by final state",
	}, []string{"result"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timetable_run_duration_seconds",
		Help:    "Duration of every stage of a generation run",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 180},
	}, []string{"stage"})

	modelVariables = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_model_variables",
		Help: "SAT variables of the last solved model",
	})

	modelClauses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_model_clauses",
		Help: "SAT clauses of the last solved model",
	})

	lessonsWritten = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "timetable_lessons_written",
		Help: "Lessons materialized by the last successful run",
	})
)
