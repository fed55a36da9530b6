package vtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNilJS is returned by New if the JS adapter is nil.
	ErrNilJS = errors.New(`vtime: js must not be nil`)

	// ErrNilWork is the panic value of Schedule, if work is nil.
	ErrNilWork = errors.New(`vtime: work must not be nil`)

	// ErrNilStrategy is returned by WithDrainStrategy, for a nil strategy.
	ErrNilStrategy = errors.New(`vtime: drain strategy must not be nil`)
)

// ExecutionError is the rejection reason of Flush, if an action failed,
// either by returning an error, or by panicking, in which case Cause is an
// [eventloop.PanicError].
type ExecutionError struct {
	Cause error
	Frame int64
	Index int64
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf(`vtime: action %d failed at frame %d: %v`, e.Index, e.Frame, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }
