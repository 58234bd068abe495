package target

import (
	"fmt"
	"strings"
)

// AllTargetsExhaustedError is returned when every ordered target failed.
type AllTargetsExhaustedError struct {
	Log *AttemptLog
}

func (e *AllTargetsExhaustedError) Error() string {
	last, ok := e.Log.Last()
	if !ok {
		return "no targets to attempt"
	}
	return fmt.Sprintf("all targets exhausted after %d attempts; last: %s attempt %d: %s: %v",
		e.Log.Len(), last.Target, last.Number, last.Reason, last.Err)
}

// CancelledError is returned when the caller's context ends during
// resolution. It unwraps to the context error.
type CancelledError struct {
	Log *AttemptLog
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("target resolution cancelled after %d attempts: %v", e.Log.Len(), e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// UnknownStrategyError is returned for a strategy that is not registered.
// No target is attempted.
type UnknownStrategyError struct {
	Name  Strategy
	Known []Strategy
}

func (e *UnknownStrategyError) Error() string {
	names := make([]string, len(e.Known))
	for i, k := range e.Known {
		names[i] = string(k)
	}
	return fmt.Sprintf("unknown strategy %q (supported: %s)", e.Name, strings.Join(names, ", "))
}
