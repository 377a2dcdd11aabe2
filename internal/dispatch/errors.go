package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"qgo-dispatch/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrDriverNotFound    = errors.New("driver not found")
	ErrReceiptNotFound   = errors.New("receipt not found")
	ErrDriverExists      = errors.New("driver already exists")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// ValidationError lists the fields that failed validation
type ValidationError struct {
	Fields []string
	err    error
}

func newValidationError(err error) *ValidationError {
	ve := &ValidationError{err: err}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, fe := range errs {
			ve.Fields = append(ve.Fields, fmt.Sprintf("%s:%s", fe.Field(), fe.Tag()))
		}
	}
	return ve
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("validation error: %v", e.err)
	}
	return "validation error: " + strings.Join(e.Fields, ", ")
}

func (e *ValidationError) Unwrap() error { return e.err }

// PartialUpdateError means the job was written but its driver was not.
// The two documents disagree until the next successful transition.
type PartialUpdateError struct {
	JobID    string
	DriverID string
	Status   models.JobStatus
	Err      error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("job %s moved to %s but driver %s status was not updated: %v", e.JobID, e.Status, e.DriverID, e.Err)
}

func (e *PartialUpdateError) Unwrap() error { return e.Err }
