package controller

import "errors"

var (
	ErrNoWorkers = errors.New("at least one worker is required")
	ErrSubmit    = errors.New("submit scan job")
	ErrStopped   = errors.New("pipeline stopped")
)
