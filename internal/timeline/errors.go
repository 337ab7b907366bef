package timeline

import (
	"errors"
	"fmt"

	"github.com/rpattn/fleetline/pkg/validation"
)

// Code is the machine-readable classification carried by every timeline
// service error.
type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeDatabase       Code = "DATABASE_ERROR"
	CodeUnexpected     Code = "UNEXPECTED_ERROR"
	CodeExport         Code = "EXPORT_ERROR"
	CodeStats          Code = "STATS_ERROR"
	CodeCSVGeneration  Code = "CSV_GENERATION_ERROR"
	CodeNotImplemented Code = "NOT_IMPLEMENTED"
)

// Error is the service's catch-all typed error. Unexpected failures are
// always re-wrapped rather than leaked raw.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DatabaseError reports that the store failed or returned no data where data
// was expected. The service never retries these itself; retry is a realtime
// manager concern for subscriptions, not for one-shot CRUD calls.
type DatabaseError struct {
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", CodeDatabase, e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// ErrorCode maps any error the service returns onto its taxonomy code.
func ErrorCode(err error) Code {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return CodeValidation
	}
	var dberr *DatabaseError
	if errors.As(err, &dberr) {
		return CodeDatabase
	}
	var terr *Error
	if errors.As(err, &terr) {
		return terr.Code
	}
	return CodeUnexpected
}
