package controller

const (
	discardReasonDeleted   = "deleted"
	discardReasonStale     = "stale-generation"
	discardReasonUnmatched = "unmatched"

	// queueSize is the per-worker buffer between the dispatcher and a worker.
	queueSize = 16
)
