package service

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrFatal marks an error that must abort the pipeline.
	ErrFatal = errors.New("fatal pipeline error")
	// ErrInvalidRequest is returned for requests that cannot start a run.
	ErrInvalidRequest = errors.New("invalid request")
)

// PanicError wraps a value recovered from a panicking stage.
type PanicError struct {
	Stage Stage
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.Stage, e.Value)
}
