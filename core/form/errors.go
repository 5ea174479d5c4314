package form

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNotFound   = errors.New("form schema not found")
	ErrNameExists = errors.New("an active form schema with this name already exists")
)

// MissingFieldsError reports required fields left unanswered in a submission.
type MissingFieldsError struct {
	Fields []string
}

func (err *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(err.Fields, ", "))
}

// IsMissingFields returns the causing MissingFieldsError, if any.
func IsMissingFields(err error) (*MissingFieldsError, bool) {
	mfErr, ok := errors.Cause(err).(*MissingFieldsError)
	return mfErr, ok
}

// HasAttendancesError blocks schema deactivation while attendances reference it.
type HasAttendancesError struct {
	Count int
}

func (err *HasAttendancesError) Error() string {
	return fmt.Sprintf("form schema is referenced by %d attendance(s)", err.Count)
}

// IsHasAttendances returns the causing HasAttendancesError, if any.
func IsHasAttendances(err error) (*HasAttendancesError, bool) {
	haErr, ok := errors.Cause(err).(*HasAttendancesError)
	return haErr, ok
}
