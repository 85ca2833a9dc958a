package scheduler

import "errors"

var (
	// ErrStarted is returned by Add once the scheduler is running.
	ErrStarted = errors.New("scheduler already started")

	// ErrDuplicateJob is returned when a job name is registered twice.
	ErrDuplicateJob = errors.New("duplicate job name")

	// ErrStopped is returned by Ping after the scheduler has stopped.
	ErrStopped = errors.New("scheduler stopped")
)
