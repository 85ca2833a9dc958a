package scanjob

import (
	"context"
	"time"
)

// Repository is the port interface for scan job operations in the controller namespace.
// Implementations are provided by adapters in the outbound layer.
type Repository interface {
	CreateJobCommand(
		ctx context.Context,
		req JobRequest,
	) error

	GetJobQuery(
		ctx context.Context,
		name string,
	) (JobStatus, error)

	DeleteJobCommand(
		ctx context.Context,
		name string,
	) error

	// ListJobsQuery returns every job carrying the managed label selector.
	ListJobsQuery(
		ctx context.Context,
	) ([]JobStatus, error)
}

// notFound is a private interface for checking "not found" errors
// without importing the adapter package.
type notFound interface {
	IsNotFound()
}

// alreadyExists is a private interface for checking "already exists" errors
// without importing the adapter package.
type alreadyExists interface {
	IsAlreadyExists()
}

// invalid is a private interface for checking rejected job specs
// without importing the adapter package.
type invalid interface {
	IsInvalid()
}

type trackerRecorder interface {
	RecordJobCompleted(namespace, application, state string, duration time.Duration)
	RecordPolicyViolation(namespace, application string)
	RecordJobPurged()
	SetActiveJobs(count int)
}

type orchestratorRecorder interface {
	RecordJobCreated(namespace, application string)
	RecordJobCreateFailure(namespace, application, reason string)
	RecordDuplicateSuppressed(namespace, application string)
	RecordSubmissionDeferred(policy string)
	RecordRateLimited()
}
