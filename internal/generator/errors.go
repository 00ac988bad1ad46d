package generator

import (
	"fmt"

	"github.com/limaJavier/schooltimetable/internal/lock"
	"github.com/limaJavier/schooltimetable/pkg/model"
	"github.com/pkg/errors"
)

var (
	ErrInfeasible    = errors.New("no timetable satisfies every hard rule")
	ErrSolverTimeout = errors.New("solver time limit expired before any timetable was found")
	ErrRunInProgress = lock.ErrRunInProgress
)

// ValidationFailed carries every structural violation found in the snapshot. The solver never ran.
type ValidationFailed struct {
	Violations []model.Violation
}

func (err *ValidationFailed) Error() string {
	return fmt.Sprintf("snapshot failed validation with %d violations", len(err.Violations))
}

// PersistenceFailure means the timetable was solved but could not be written. The previous timetable is intact.
type PersistenceFailure struct {
	Err error
}

func (err *PersistenceFailure) Error() string {
	return fmt.Sprintf("cannot persist timetable: %v", err.Err)
}

func (err *PersistenceFailure) Cause() error {
	return err.Err
}

func (err *PersistenceFailure) Unwrap() error {
	return err.Err
}

func AsValidationFailed(err error) (*ValidationFailed, bool) {
	var failed *ValidationFailed
	ok := errors.As(err, &failed)
	return failed, ok
}

func IsPersistenceFailure(err error) bool {
	var failure *PersistenceFailure
	return errors.As(err, &failure)
}
