package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/limaJavier/schooltimetable/pkg/sat"

	"github.com/samber/lo"
)

const (
	executablePath   = "../../bin/timetable"
	defaultTimeLimit = "120s"
)

type ResultType int

const (
	solved ResultType = iota
	unsatisfiable
	invalid
	timeout
)

var resultTypes = map[ResultType]string{
	solved:        "solved",
	unsatisfiable: "unsatisfiable",
	invalid:       "invalid",
	timeout:       "timeout",
}

var exitCodes = map[int]ResultType{
	10: solved,
	20: unsatisfiable,
	15: invalid,
	30: timeout,
}

type TestMetadata struct {
	Name         string
	Classes      int
	Subjects     int
	Teachers     int
	Rooms        int
	Requirements int
	WeeklyHours  uint64
}

type BenchmarkResult struct {
	Solver        string
	Penalties     string
	Test          TestMetadata
	Duration      int64
	Memory        float32
	CpuPercentage int64
	Result        ResultType
}

// Synthetic school sizes, every one generated with each seed
var sizes = []model.SyntheticParams{
	{Classes: 2, Subjects: 4, Rooms: 2, Load: 0.5},
	{Classes: 4, Subjects: 6, Rooms: 3, Load: 0.6},
	{Classes: 8, Subjects: 8, Rooms: 6, Load: 0.7},
	{Classes: 12, Subjects: 10, Rooms: 8, Load: 0.8},
}

func main() {
	seedsPtr := flag.Int("seeds", 3, "Number of synthetic snapshots generated per size")
	solversPtr := flag.String("solvers", strings.Join(sat.Solvers(), ","), "Comma separated SAT solvers to benchmark")
	timeLimitPtr := flag.String("time-limit", defaultTimeLimit, "Solver time limit of every run")
	outFilePtr := flag.String("out", "benchmark_results.csv", "Path to the CSV file")
	flag.Parse()

	tests := getTests(*seedsPtr)
	solvers := strings.Split(*solversPtr, ",")
	penalties := getPenaltyConfigs()
	results := make([]BenchmarkResult, 0, len(tests)*len(solvers)*len(penalties))

	for _, test := range tests {
		for _, penalty := range penalties {
			for _, solver := range solvers {
				fmt.Printf("Benchmarking test \"%v\" with solver \"%v\" and penalties \"%v\"\n", test.Name, solver, penalty)

				duration, maxMemory, cpuPercentage, result := measure(solver, penalty, *timeLimitPtr, test.Name)

				results = append(results, BenchmarkResult{
					Solver:        solver,
					Penalties:     penalty,
					Test:          test,
					Duration:      duration,
					Memory:        maxMemory,
					CpuPercentage: cpuPercentage,
					Result:        result,
				})
			}
		}
	}

	toCsv(results, *outFilePtr)
}

// getTests writes one snapshot file per size and seed and describes them
func getTests(seeds int) []TestMetadata {
	directory, err := os.MkdirTemp("", "timetable-benchmark")
	if err != nil {
		log.Fatalf("cannot create snapshot directory: %v", err)
	}

	tests := make([]TestMetadata, 0, len(sizes)*seeds)
	for _, size := range sizes {
		for seed := range seeds {
			params := size
			params.Seed = uint64(seed)
			snapshot := model.SyntheticSnapshot(params)

			filename := filepath.Join(directory, fmt.Sprintf("c%v-s%v-seed%v.json", params.Classes, params.Subjects, seed))
			snapshotJson := lo.Must(json.Marshal(snapshot))
			if err := os.WriteFile(filename, snapshotJson, 0666); err != nil {
				log.Fatalf("cannot write snapshot file: %v", err)
			}

			requirements := snapshot.EffectiveRequirements()
			tests = append(tests, TestMetadata{
				Name:         filename,
				Classes:      len(snapshot.Classes),
				Subjects:     len(snapshot.Subjects),
				Teachers:     len(snapshot.Teachers),
				Rooms:        len(snapshot.Rooms),
				Requirements: len(requirements),
				WeeklyHours:  lo.SumBy(requirements, func(requirement model.HoursRequirement) uint64 { return requirement.Hours }),
			})
		}
	}

	return tests
}

// Every configuration is a -penalties value of the timetable command
func getPenaltyConfigs() []string {
	return []string{
		model.BalancePenalty,
		strings.Join(model.Penalties(), ","),
	}
}

func measure(solver, penalties, timeLimit, testFile string) (duration int64, maxMemory float32, cpuPercentage int64, result ResultType) {
	cmd := exec.Command("/usr/bin/time", "-v", executablePath, "generate", "-snapshot", testFile, "-solver", solver, "-time-limit", timeLimit, "-penalties", penalties, "-out", os.DevNull)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	result, ok := exitCodes[cmd.ProcessState.ExitCode()]
	if !ok {
		log.Fatalf("an error occurred during the execution \"timetable\" at test \"%v\" using solver \"%v\": %v\n", testFile, solver, stdErr.String())
	}
	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			log.Fatalf("Substring \"%v\" could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, result
}

func toCsv(results []BenchmarkResult, path string) {
	file, err := os.Create(path)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Solver", "Penalties", "Test", "Classes", "Subjects", "Teachers", "Rooms", "Requirements", "WeeklyHours", "Duration(ms)", "Memory(MB)", "CPU(%)", "Result"}
	if err := writer.Write(header); err != nil {
		log.Panicf("cannot write CSV header: %v", err)
	}

	for _, result := range results {
		record := []string{
			result.Solver,
			result.Penalties,
			result.Test.Name,
			fmt.Sprintf("%d", result.Test.Classes),
			fmt.Sprintf("%d", result.Test.Subjects),
			fmt.Sprintf("%d", result.Test.Teachers),
			fmt.Sprintf("%d", result.Test.Rooms),
			fmt.Sprintf("%d", result.Test.Requirements),
			fmt.Sprintf("%d", result.Test.WeeklyHours),
			fmt.Sprintf("%d", result.Duration),
			fmt.Sprintf("%.1f", result.Memory),
			fmt.Sprintf("%d", result.CpuPercentage),
			resultTypes[result.Result],
		}
		if err := writer.Write(record); err != nil {
			log.Panicf("cannot write CSV record: %v", err)
		}
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsStr := parts[len(parts)-1]
	secondsParts := strings.Split(secondsStr, ".")

	var duration int64
	if len(parts) == 3 { // h:mm:ss
		hours := lo.Must(strconv.Atoi(parts[0]))
		minutes := lo.Must(strconv.Atoi(parts[1]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else if len(parts) == 2 { // m:ss
		minutes := lo.Must(strconv.Atoi(parts[0]))
		seconds := lo.Must(strconv.Atoi(secondsParts[0]))
		hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
		duration = int64(minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
	} else {
		log.Fatalf("unexpected duration format: %v", durationStr)
	}
	return duration
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.Split(line, ":")[1][1:]
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) / 1024
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.Split(line, ":")[1][1:]
	percentageStr = percentageStr[:len(percentageStr)-1]
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
