package worker

import (
	"errors"
	"fmt"
)

// ErrUninitialized is returned when data reaches a worker before its init
// sequence has completed.
var ErrUninitialized = errors.New("data received on uninitialised worker")

// ErrAlreadyInitialized is returned for a second init message.
var ErrAlreadyInitialized = errors.New("worker already initialised")

// ErrPoolClosed is returned by a pool after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// UnknownWorkerError occurs when a worker id was never forked.
type UnknownWorkerError struct {
	ID int
}

func (e *UnknownWorkerError) Error() string {
	return fmt.Sprintf("unknown worker %d", e.ID)
}

// WorkerError wraps a failure inside worker id.
type WorkerError struct {
	ID  int
	Err error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker %d: %v", e.ID, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}
