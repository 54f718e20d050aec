package timetable

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoOpEdit signals the submitted grid is identical to the current
	// one. Nothing was saved; callers should report "nothing to save",
	// not a failure.
	ErrNoOpEdit = errors.New("edit changes nothing")

	// ErrRestoreNoOp signals the requested history version is already the
	// current state.
	ErrRestoreNoOp = errors.New("requested version is already current")

	// ErrVersionNotFound signals a history version that does not exist for
	// the timetable.
	ErrVersionNotFound = errors.New("history version not found")

	// ErrTimetableArchived rejects mutation of an archived timetable.
	ErrTimetableArchived = errors.New("timetable is archived")
)

// ValidationError carries the full constraint error list for a rejected
// candidate grid. Recoverable: the author corrects and resubmits.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("grid failed validation: %s", strings.Join(e.Errors, "; "))
}
