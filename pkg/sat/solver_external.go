package sat

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// outputMode tells where an external solver leaves its model
type outputMode int

const (
	// The model is printed in "v ..." lines on standard output
	valueLines outputMode = iota
	// The model is written to a second file argument, preceded by a SAT/UNSAT header line
	resultFile
	// The model is written to a second file argument as a bare list of literals
	bareResultFile
)

type dialect struct {
	args      []string
	inputFile bool // DIMACS is passed as a file argument instead of standard input
	output    outputMode
}

var dialects = map[string]dialect{
	"kissat":        {args: []string{"-q", "--relaxed"}},
	"cadical":       {args: []string{"-q"}},
	"cryptominisat": {args: []string{"--verb", "0"}},
	"slime":         {inputFile: true},
	"ortoolsat":     {inputFile: true},
	"minisat":       {args: []string{"-verb=0"}, inputFile: true, output: resultFile},
	"glucose-simp":  {args: []string{"-verb=0"}, inputFile: true, output: bareResultFile},
}

type externalSolver struct {
	executable string
	dialect    dialect
}

func newExternalSolver(executable string, dialect dialect) SATSolver {
	return &externalSolver{executable: executable, dialect: dialect}
}

func (solver *externalSolver) Solve(ctx context.Context, sat SAT) (SATSolution, error) {
	if ctx.Err() != nil {
		return nil, contextError(ctx)
	}

	dimacs := sat.ToDIMACS() // Transform SAT into DIMACS-CNF string format

	cmd := exec.CommandContext(ctx, solver.executable, solver.dialect.args...)
	if solver.dialect.inputFile {
		// Create a temporary file to hold the DIMACS content
		inputTempFile, err := os.CreateTemp("", "dimacs-*.cnf")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary file: %v", err)
		}
		defer os.Remove(inputTempFile.Name())

		if _, err := inputTempFile.WriteString(dimacs); err != nil {
			return nil, fmt.Errorf("failed to write DIMACS to temporary file: %v", err)
		}
		if err := inputTempFile.Close(); err != nil {
			return nil, fmt.Errorf("failed to close temporary file: %v", err)
		}
		cmd.Args = append(cmd.Args, inputTempFile.Name())
	} else {
		cmd.Stdin = strings.NewReader(dimacs) // Feed dimacs into the solver's standard input
	}

	var outputFile string
	if solver.dialect.output != valueLines {
		outputTempFile, err := os.CreateTemp("", "sat-output-*.txt")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary file: %v", err)
		}
		outputTempFile.Close()
		defer os.Remove(outputTempFile.Name())
		outputFile = outputTempFile.Name()
		cmd.Args = append(cmd.Args, outputFile)
	}

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// Exit-code of 10 stands for satisfiable and exit-code 20 stands for unsatisfiable
	err := cmd.Run()
	if ctx.Err() != nil {
		return nil, contextError(ctx)
	}
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && exitCode != 10 && exitCode != 20 {
		return nil, fmt.Errorf("an error occurred during %v execution: %v : %v", solver.executable, err.Error(), stderr.String())
	} else if exitCode == 20 {
		return nil, nil
	}

	switch solver.dialect.output {
	case resultFile, bareResultFile:
		output, err := os.ReadFile(outputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read output file: %v", err)
		}
		return parseResultFile(string(output), solver.dialect.output == resultFile)
	default:
		return parseSolution(stdOut.String())
	}
}
