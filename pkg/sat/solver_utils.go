package sat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// parseSolution reads the "v ..." lines printed by competition-format solvers
func parseSolution(solverOutput string) (SATSolution, error) {
	fields := lo.FlatMap(
		lo.Filter(strings.Split(solverOutput, "\n"), func(line string, _ int) bool {
			return len(line) > 0 && line[0] == 'v'
		}),
		func(line string, _ int) []string {
			return strings.Fields(line[1:])
		},
	)
	return parseLiterals(fields)
}

// parseResultFile reads a model written to a result file, optionally preceded by a SAT/UNSAT header line
func parseResultFile(output string, header bool) (SATSolution, error) {
	if header {
		lines := strings.SplitN(output, "\n", 2)
		if strings.TrimSpace(lines[0]) != "SAT" {
			return nil, fmt.Errorf("unexpected solver result header %q", lines[0])
		}
		if len(lines) < 2 {
			return SATSolution{}, nil
		}
		output = lines[1]
	}
	return parseLiterals(strings.Fields(output))
}

func parseLiterals(fields []string) (SATSolution, error) {
	solution := make(SATSolution, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid literal in solver output: %v", err)
		}
		if value == 0 { // Terminator
			break
		}
		solution = append(solution, value)
	}
	return solution, nil
}
