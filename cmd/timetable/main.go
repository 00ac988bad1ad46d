package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/limaJavier/schooltimetable/internal/config"
	"github.com/limaJavier/schooltimetable/internal/generator"
	"github.com/limaJavier/schooltimetable/internal/lock"
	"github.com/limaJavier/schooltimetable/internal/store"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/limaJavier/schooltimetable/pkg/sat"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Exit codes, the first two follow the SAT competition convention
const (
	exitSolved     = 10
	exitInfeasible = 20
	exitInvalid    = 15
	exitTimeout    = 30
)

const usage = `Usage: timetable <command> [flags]

Commands:
  generate   synthesize the weekly timetable and replace the stored lessons
  lessons    print the stored lessons
  validate   check the school data without solving
  import     replace the stored school data with a snapshot file

Exit codes: 10 timetable generated (or data valid), 20 infeasible, 15 invalid data, 30 solver timeout`

var Days = map[uint64]string{
	1: "Monday",
	2: "Tuesday",
	3: "Wednesday",
	4: "Thursday",
	5: "Friday",
	6: "Saturday",
	7: "Sunday",
}

type lessonOutput struct {
	Weekday uint64  `json:"weekday"`
	Day     string  `json:"day,omitempty"`
	Lesson  uint64  `json:"lesson"`
	Subject uint64  `json:"subject"`
	Teacher uint64  `json:"teacher"`
	Room    *uint64 `json:"room"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	command, arguments := strings.ToLower(os.Args[1]), os.Args[2:]
	switch command {
	case "generate":
		generate(arguments)
	case "lessons":
		lessons(arguments)
	case "validate":
		validate(arguments)
	case "import":
		importSnapshot(arguments)
	default:
		fmt.Fprintln(os.Stderr, usage)
		log.Fatalf("%v is not a valid command", command)
	}
}

type commonFlags struct {
	configFile *string
	snapshot   *string
}

func newFlagSet(name string) (*flag.FlagSet, commonFlags) {
	flags := flag.NewFlagSet(name, flag.ExitOnError)
	return flags, commonFlags{
		configFile: flags.String("config", "", "Path to the configuration file; if empty, config.json or config.yaml is looked up in the working and executable directories"),
		snapshot:   flags.String("snapshot", "", "Path to a JSON snapshot; when given, the database is not used and the run is kept in memory"),
	}
}

// open returns the configuration and the store the command works on
func (common commonFlags) open() (*config.Config, store.Store) {
	configuration, err := config.Load(*common.configFile)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}

	if *common.snapshot != "" {
		snapshot, err := model.SnapshotFromJson(*common.snapshot)
		if err != nil {
			log.Fatalf("cannot parse snapshot file: %v", err)
		}
		return configuration, store.NewMemoryStore(snapshot)
	}

	db, err := store.Open(configuration.Database)
	if err != nil {
		log.Fatalf("cannot open database: %v", err)
	}
	return configuration, store.NewGormStore(db)
}

func generate(arguments []string) {
	flags, common := newFlagSet("generate")
	solverPtr := flags.String("solver", "", fmt.Sprintf("SAT solver to use, overriding the configuration. Allowed values are: %v", sat.Solvers()))
	timeLimitPtr := flags.Duration("time-limit", 0, "Solver time limit, overriding the configuration (e.g. 90s)")
	workersPtr := flags.Int("workers", 0, "Objective bounds probed in parallel, overriding the configuration")
	penaltiesPtr := flags.String("penalties", "", fmt.Sprintf("Comma separated penalties with optional weights (e.g. \"balance,last-slot=2\"), overriding the configuration. Allowed penalties are: %v", model.Penalties()))
	roomsPtr := flags.String("rooms", "", fmt.Sprintf("Room policy, overriding the configuration. Allowed values are: %v", model.RoomPolicies))
	outFilePtr := flags.String("out", "", "Path to the file where the generated timetable will be written; if empty, it'll be written into the Standard Output")
	flags.Parse(arguments)

	configuration, st := common.open()
	if *solverPtr != "" {
		if !slices.Contains(sat.Solvers(), *solverPtr) {
			log.Fatalf("%v is not a valid solver", *solverPtr)
		}
		configuration.Solver.Name = *solverPtr
	}
	if *timeLimitPtr < 0 {
		log.Fatalf("time-limit must be positive: %v", *timeLimitPtr)
	} else if *timeLimitPtr > 0 {
		configuration.Solver.TimeLimit = *timeLimitPtr
	}
	if *workersPtr < 0 {
		log.Fatalf("workers must be positive: %v", *workersPtr)
	} else if *workersPtr > 0 {
		configuration.Solver.Workers = *workersPtr
	}
	if *penaltiesPtr != "" {
		penalties, err := parsePenalties(*penaltiesPtr)
		if err != nil {
			log.Fatal(err)
		}
		configuration.Penalties = penalties
	}
	if *roomsPtr != "" {
		if !slices.Contains(model.RoomPolicies, model.RoomPolicy(*roomsPtr)) {
			log.Fatalf("%v is not a valid room policy", *roomsPtr)
		}
		configuration.Rooms.Policy = model.RoomPolicy(*roomsPtr)
	}

	options, err := generator.OptionsFromConfig(configuration)
	if err != nil {
		log.Fatalf("cannot initialize solver: %v", err)
	}
	service := generator.NewService(st, st, lock.New(configuration.Redis), options)

	run, err := service.Generate(context.Background())
	printRun(run)
	if failed, ok := generator.AsValidationFailed(err); ok {
		for _, violation := range failed.Violations {
			fmt.Fprintln(os.Stderr, violation.String())
		}
		os.Exit(exitInvalid)
	} else if errors.Is(err, generator.ErrInfeasible) {
		os.Exit(exitInfeasible)
	} else if errors.Is(err, generator.ErrSolverTimeout) {
		os.Exit(exitTimeout)
	} else if err != nil {
		log.Fatalf("an error occurred during timetable construction: %v", err)
	}

	stored, err := st.ListLessons(context.Background(), store.LessonFilter{})
	if err != nil {
		log.Fatalf("cannot read the generated lessons: %v", err)
	}
	writeOutput(perClassTimetable(stored), *outFilePtr)
	os.Exit(exitSolved)
}

func lessons(arguments []string) {
	flags, common := newFlagSet("lessons")
	classPtr := flags.Uint64("class", 0, "Only print the lessons of this class")
	teacherPtr := flags.Uint64("teacher", 0, "Only print the lessons of this teacher")
	outFilePtr := flags.String("out", "", "Path to the output file; if empty, it'll be written into the Standard Output")
	flags.Parse(arguments)

	_, st := common.open()
	var filter store.LessonFilter
	if *classPtr != 0 {
		filter.Class = classPtr
	}
	if *teacherPtr != 0 {
		filter.Teacher = teacherPtr
	}

	stored, err := st.ListLessons(context.Background(), filter)
	if err != nil {
		log.Fatalf("cannot list lessons: %v", err)
	}
	writeOutput(perClassTimetable(stored), *outFilePtr)
}

func validate(arguments []string) {
	flags, common := newFlagSet("validate")
	flags.Parse(arguments)

	configuration, st := common.open()
	snapshot, err := st.LoadSnapshot(context.Background(), configuration.Calendar)
	if err != nil {
		log.Fatalf("cannot load snapshot: %v", err)
	}

	result := model.Validate(snapshot)
	for _, violation := range result.Violations {
		fmt.Printf("%v: %v\n", violation.Kind(), violation.String())
	}
	if !result.Ok {
		os.Exit(exitInvalid)
	}
	fmt.Printf("Classes: %v\n", len(snapshot.Classes))
	fmt.Printf("Requirements: %v\n", len(snapshot.EffectiveRequirements()))
	os.Exit(exitSolved)
}

func importSnapshot(arguments []string) {
	flags, common := newFlagSet("import")
	flags.Parse(arguments)
	if *common.snapshot == "" {
		log.Fatal("a snapshot file must be specified")
	}

	snapshot, err := model.SnapshotFromJson(*common.snapshot)
	if err != nil {
		log.Fatalf("cannot parse snapshot file: %v", err)
	}
	configuration, err := config.Load(*common.configFile)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}
	db, err := store.Open(configuration.Database)
	if err != nil {
		log.Fatalf("cannot open database: %v", err)
	}
	if err := store.NewGormStore(db).SaveSnapshot(context.Background(), snapshot); err != nil {
		log.Fatalf("cannot import snapshot: %v", err)
	}
	fmt.Printf("Imported %v classes, %v subjects, %v teachers and %v rooms\n",
		len(snapshot.Classes), len(snapshot.Subjects), len(snapshot.Teachers), len(snapshot.Rooms))
}

// parsePenalties reads "name[=weight],..." where a missing weight is 1
func parsePenalties(value string) (map[string]uint64, error) {
	penalties := make(map[string]uint64)
	for _, entry := range strings.Split(value, ",") {
		name, weightStr, hasWeight := strings.Cut(strings.TrimSpace(entry), "=")
		if !slices.Contains(model.Penalties(), name) {
			return nil, fmt.Errorf("%v is not a valid penalty", name)
		}
		weight := uint64(1)
		if hasWeight {
			parsed, err := strconv.ParseUint(weightStr, 10, 64)
			if err != nil || parsed == 0 {
				return nil, fmt.Errorf("weight of penalty %v must be a positive integer: %v", name, weightStr)
			}
			weight = parsed
		}
		penalties[name] = weight
	}
	return penalties, nil
}

func perClassTimetable(lessons []model.Lesson) map[uint64][]lessonOutput {
	grouped := lo.GroupBy(lessons, func(lesson model.Lesson) uint64 { return lesson.Class })
	return lo.MapValues(grouped, func(lessons []model.Lesson, _ uint64) []lessonOutput {
		return lo.Map(lessons, func(lesson model.Lesson, _ int) lessonOutput {
			return lessonOutput{
				Weekday: lesson.Weekday,
				Day:     Days[lesson.Weekday],
				Lesson:  lesson.Lesson,
				Subject: lesson.Subject,
				Teacher: lesson.Teacher,
				Room:    lesson.Room,
			}
		})
	})
}

func writeOutput(output any, outFile string) {
	outputJson, err := json.Marshal(output)
	if err != nil {
		log.Fatalf("an error occurred while building output json: %v", err)
	}

	// Verify outfile is empty, if so then write the results to the Standard Output
	if outFile == "" {
		fmt.Println(string(outputJson))
	} else if err := os.WriteFile(outFile, outputJson, 0666); err != nil {
		log.Fatalf("an error occurred while writing to the output file: %v", err)
	}
}

func printRun(run generator.Run) {
	fmt.Fprintf(os.Stderr, "Run: %v\n", run.Id)
	fmt.Fprintf(os.Stderr, "State: %v\n", run.State)
	if run.Status != "" {
		fmt.Fprintf(os.Stderr, "Status: %v\n", run.Status)
		fmt.Fprintf(os.Stderr, "Objective: %v (bound %v)\n", run.Objective, run.Bound)
	}
	if run.State == generator.Done {
		fmt.Fprintf(os.Stderr, "Spread: %v\n", run.Spread)
	}
	fmt.Fprintf(os.Stderr, "Variables: %v\n", run.Variables)
	fmt.Fprintf(os.Stderr, "Clauses: %v\n", run.Clauses)
	fmt.Fprintf(os.Stderr, "Elapsed: %v\n", run.Elapsed.Round(time.Millisecond))
}
