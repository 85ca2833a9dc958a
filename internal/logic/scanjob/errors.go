package scanjob

import "errors"

var (
	ErrShuttingDown       = errors.New("orchestrator is shutting down")
	ErrConcurrencyLimit   = errors.New("concurrency limit reached")
	ErrRateLimited        = errors.New("job creation rate limit exceeded")
	ErrCreateJob          = errors.New("create scan job")
	ErrDeleteJob          = errors.New("delete scan job")
	ErrGetJob             = errors.New("get scan job")
	ErrAdoptJobs          = errors.New("adopt scan jobs")
	ErrUnknownRecord      = errors.New("unknown scan job record")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrTooManyCreateFails = errors.New("job creation failure rate above threshold")
	ErrPollStalled        = errors.New("job status polling stalled")
)
