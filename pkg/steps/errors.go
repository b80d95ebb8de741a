package steps

import (
	"errors"
	"fmt"
)

// ErrNonRetriable marks failures that must not be retried by the step runner.
var ErrNonRetriable = errors.New("non-retriable")

// NonRetriableError wraps an error that fails its step immediately.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string {
	return e.Err.Error()
}

func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

func (e *NonRetriableError) Is(target error) bool {
	return target == ErrNonRetriable
}

// NonRetriable wraps err so that runners stop retrying it.
func NonRetriable(err error) error {
	if err == nil {
		return nil
	}

	return &NonRetriableError{Err: err}
}

func NonRetriablef(format string, args ...any) error {
	return NonRetriable(fmt.Errorf(format, args...))
}

func IsNonRetriable(err error) bool {
	return errors.Is(err, ErrNonRetriable)
}
